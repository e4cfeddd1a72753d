// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/luxfi/crypto"
	ethereum "github.com/luxfi/geth"
	"github.com/luxfi/geth/accounts/abi/bind"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/ids"
	"github.com/luxfi/whisper"
	"github.com/luxfi/whisper/crypto/fhe"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	testContract = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	testSender   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

type transactCall struct {
	method string
	params []interface{}
}

type fakeContract struct {
	lock      sync.Mutex
	results   map[string][]interface{}
	callErr   map[string]error
	calls     map[string]int
	transacts []transactCall
	txErr     error
}

func newFakeContract() *fakeContract {
	return &fakeContract{
		results: make(map[string][]interface{}),
		callErr: make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeContract) Call(_ *bind.CallOpts, results *[]interface{}, method string, _ ...interface{}) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls[method]++
	if err := f.callErr[method]; err != nil {
		return err
	}
	*results = f.results[method]
	return nil
}

func (f *fakeContract) Transact(_ *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.txErr != nil {
		return nil, f.txErr
	}
	f.transacts = append(f.transacts, transactCall{method: method, params: params})
	return types.NewTx(&types.LegacyTx{Nonce: uint64(len(f.transacts))}), nil
}

type fakeReceipts struct {
	lock     sync.Mutex
	notFound int
	status   uint64
	err      error
	calls    int
}

func (f *fakeReceipts) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.notFound {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: f.status, BlockNumber: big.NewInt(7)}, nil
}

type fakeSigner struct {
	connected bool
	err       error
}

func (s *fakeSigner) Address() common.Address { return testSender }
func (s *fakeSigner) Connected() bool         { return s.connected }
func (s *fakeSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &bind.TransactOpts{From: testSender, Context: ctx}, nil
}

func newTestGateway(t *testing.T, contract BoundContract, receipts ReceiptReader, signer Signer) *Gateway {
	g, err := NewGatewayWithContract(Config{
		Address:             testContract,
		ReceiptPollInterval: time.Millisecond,
	}, contract, receipts, signer, zaptest.NewLogger(t))
	require.NoError(t, err)
	return g
}

func TestGatewayReads(t *testing.T) {
	require := require.New(t)
	contract := newFakeContract()
	handle := ids.GenerateTestID()
	contract.results[methodListIDs] = []interface{}{[]string{"msg-2", "msg-1"}}
	contract.results[methodGetRecord] = []interface{}{
		whisper.MessageLabel,
		big.NewInt(5),
		big.NewInt(0),
		"hello",
		testSender,
		big.NewInt(1_700_000_000),
		true,
		uint32(5),
	}
	contract.results[methodGetEncryptedValue] = []interface{}{[32]byte(handle)}
	contract.results[methodIsAvailable] = []interface{}{true}

	g := newTestGateway(t, contract, &fakeReceipts{}, nil)
	ctx := context.Background()

	idList, err := g.ListIDs(ctx)
	require.NoError(err)
	require.Equal([]string{"msg-2", "msg-1"}, idList)

	rec, err := g.GetRecord(ctx, "msg-1")
	require.NoError(err)
	msg := rec.MessageRecord()
	require.Equal("msg-1", msg.ID)
	require.Equal("hello", msg.Content)
	require.Equal(uint64(5), msg.EncryptedValue)
	require.Equal(uint64(1_700_000_000), msg.Timestamp)
	require.Equal(testSender, msg.Sender)
	require.Equal(whisper.Verified(5), msg.Decryption)

	for i := 0; i < 3; i++ {
		got, err := g.GetCiphertextHandle(ctx, "msg-1")
		require.NoError(err)
		require.Equal(handle, got)
	}
	require.Equal(1, contract.calls[methodGetEncryptedValue])

	ok, err := g.ProbeAvailability(ctx)
	require.NoError(err)
	require.True(ok)
	require.Equal(testContract, g.Address())
}

func TestRecordUnverifiedDropsValue(t *testing.T) {
	rec := &Record{
		ID:             "msg-1",
		PublicValue1:   big.NewInt(3),
		Timestamp:      big.NewInt(10),
		DecryptedValue: 99,
	}
	msg := rec.MessageRecord()
	require.False(t, msg.IsVerified())
	_, ok := msg.Decryption.Value()
	require.False(t, ok)
}

func TestGatewayEmptyHandle(t *testing.T) {
	contract := newFakeContract()
	contract.results[methodGetEncryptedValue] = []interface{}{[32]byte{}}
	g := newTestGateway(t, contract, &fakeReceipts{}, nil)

	_, err := g.GetCiphertextHandle(context.Background(), "msg-404")
	require.ErrorIs(t, err, errNoCiphertext)

	// Failures are not cached
	_, err = g.GetCiphertextHandle(context.Background(), "msg-404")
	require.Error(t, err)
	require.Equal(t, 2, contract.calls[methodGetEncryptedValue])
}

func TestGatewayReadFailureClassified(t *testing.T) {
	contract := newFakeContract()
	contract.callErr[methodListIDs] = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
	g := newTestGateway(t, contract, &fakeReceipts{}, nil)

	_, err := g.ListIDs(context.Background())
	require.ErrorIs(t, err, whisper.ErrNetworkFailure)
}

func TestGatewayWritesRequireSigner(t *testing.T) {
	tests := []struct {
		name   string
		signer Signer
	}{
		{name: "no signer"},
		{name: "disconnected signer", signer: &fakeSigner{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			contract := newFakeContract()
			g := newTestGateway(t, contract, &fakeReceipts{}, tt.signer)

			_, err := g.SubmitVerification(context.Background(), "msg-1", nil, nil)
			require.ErrorIs(err, whisper.ErrNotConnected)
			_, err = g.Account()
			require.ErrorIs(err, whisper.ErrNotConnected)
			require.Empty(contract.transacts)
		})
	}
}

func TestGatewayCreate(t *testing.T) {
	require := require.New(t)
	contract := newFakeContract()
	receipts := &fakeReceipts{notFound: 2, status: types.ReceiptStatusSuccessful}
	g := newTestGateway(t, contract, receipts, &fakeSigner{connected: true})
	handle := ids.GenerateTestID()

	tx, err := g.Create(context.Background(), CreateParams{
		ID:             "msg-1",
		Label:          whisper.MessageLabel,
		Payload:        &fhe.EncryptedPayload{Ciphertext: handle, Proof: []byte{0x01}},
		PlaintextValue: 5,
		ClearLabel:     "hello",
	})
	require.NoError(err)
	require.NoError(tx.Wait(context.Background()))
	require.Equal(3, receipts.calls)

	require.Len(contract.transacts, 1)
	call := contract.transacts[0]
	require.Equal(methodCreate, call.method)
	require.Equal("msg-1", call.params[0])
	require.Equal(whisper.MessageLabel, call.params[1])
	require.Equal([32]byte(handle), call.params[2])
	require.Equal([]byte{0x01}, call.params[3])
	require.Equal(0, big.NewInt(5).Cmp(call.params[4].(*big.Int)))
	require.Equal(0, big.NewInt(0).Cmp(call.params[5].(*big.Int)))
	require.Equal("hello", call.params[6])

	account, err := g.Account()
	require.NoError(err)
	require.Equal(testSender, account)
}

func TestPendingTxWait(t *testing.T) {
	tests := []struct {
		name     string
		receipts *fakeReceipts
		timeout  time.Duration
		expected error
	}{
		{
			name:     "confirmed",
			receipts: &fakeReceipts{notFound: 1, status: types.ReceiptStatusSuccessful},
		},
		{
			name:     "reverted",
			receipts: &fakeReceipts{status: types.ReceiptStatusFailed},
			expected: whisper.ErrChainRejected,
		},
		{
			name:     "rpc failure",
			receipts: &fakeReceipts{err: errors.New("connection reset by peer")},
			expected: whisper.ErrNetworkFailure,
		},
		{
			name:     "inclusion timeout",
			receipts: &fakeReceipts{notFound: 1 << 30},
			timeout:  20 * time.Millisecond,
			expected: whisper.ErrNetworkFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract := newFakeContract()
			g, err := NewGatewayWithContract(Config{
				Address:             testContract,
				ReceiptPollInterval: time.Millisecond,
				TxInclusionTimeout:  tt.timeout,
			}, contract, tt.receipts, &fakeSigner{connected: true}, zaptest.NewLogger(t))
			require.NoError(t, err)

			tx, err := g.SubmitVerification(context.Background(), "msg-1", []byte{0x01}, []byte{0x02})
			require.NoError(t, err)
			err = tx.Wait(context.Background())
			if tt.expected == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestPendingTxWaitCanceled(t *testing.T) {
	contract := newFakeContract()
	g := newTestGateway(t, contract, &fakeReceipts{notFound: 1 << 30}, &fakeSigner{connected: true})
	tx, err := g.SubmitVerification(context.Background(), "msg-1", nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, tx.Wait(ctx), whisper.ErrNetworkFailure)
}

func TestGatewaySubmitAlreadyVerified(t *testing.T) {
	contract := newFakeContract()
	contract.txErr = errors.New("execution reverted: Data already verified")
	g := newTestGateway(t, contract, &fakeReceipts{}, &fakeSigner{connected: true})

	_, err := g.SubmitVerification(context.Background(), "msg-1", nil, nil)
	require.ErrorIs(t, err, whisper.ErrAlreadyVerified)
}

func TestKeySignerKnownAddress(t *testing.T) {
	require := require.New(t)

	s, err := NewKeySigner("0x0000000000000000000000000000000000000000000000000000000000000001", big.NewInt(1))
	require.NoError(err)
	require.Equal(common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"), s.Address())
}

func TestKeySigner(t *testing.T) {
	require := require.New(t)
	key, err := crypto.GenerateKey()
	require.NoError(err)
	hexKey := "0x" + hex.EncodeToString(crypto.FromECDSA(key))

	s, err := NewKeySigner(hexKey, big.NewInt(1337))
	require.NoError(err)
	require.True(s.Connected())
	require.Equal(common.Address(crypto.PubkeyToAddress(key.PublicKey)), s.Address())

	ctx := context.Background()
	opts, err := s.TransactOpts(ctx)
	require.NoError(err)
	require.Equal(s.Address(), opts.From)
	require.Equal(ctx, opts.Context)

	_, err = NewKeySigner("not-a-key", big.NewInt(1))
	require.Error(err)
	_, err = NewKeySigner(hexKey, nil)
	require.Error(err)
}
