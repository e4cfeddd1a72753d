// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger provides typed access to the message board contract.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/accounts/abi/bind"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/whisper"
	"github.com/luxfi/whisper/cache"
	"github.com/luxfi/whisper/crypto/fhe"
	"go.uber.org/zap"
)

const defaultHandleCacheSize = 1024

// Backend is a chain connection able to serve contract calls and receipts,
// such as *ethclient.Client.
type Backend interface {
	bind.ContractBackend
	ReceiptReader
}

type Config struct {
	Address             common.Address
	HandleCacheSize     int
	ReceiptPollInterval time.Duration
	// TxInclusionTimeout bounds the receipt wait. Zero waits until the
	// context is done.
	TxInclusionTimeout time.Duration
}

// CreateParams are the arguments of a record creation.
type CreateParams struct {
	ID             string
	Label          string
	Payload        *fhe.EncryptedPayload
	PlaintextValue uint64
	AuxFlag        uint64
	ClearLabel     string
}

// Gateway performs typed reads and writes against the message board. Reads
// need no signer; writes obtain transact options from the signer per call.
type Gateway struct {
	logger           *zap.Logger
	address          common.Address
	contract         BoundContract
	receipts         ReceiptReader
	signer           Signer
	handles          *cache.LRUCache[string, fhe.Handle]
	pollInterval     time.Duration
	inclusionTimeout time.Duration
}

// NewGateway builds a gateway over backend. signer may be nil, in which case
// every mutating call fails with NotConnected.
func NewGateway(cfg Config, backend Backend, signer Signer, logger *zap.Logger) (*Gateway, error) {
	contract, err := NewBoundContract(cfg.Address, backend)
	if err != nil {
		return nil, err
	}
	return NewGatewayWithContract(cfg, contract, backend, signer, logger)
}

func NewGatewayWithContract(
	cfg Config,
	contract BoundContract,
	receipts ReceiptReader,
	signer Signer,
	logger *zap.Logger,
) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := cfg.HandleCacheSize
	if size <= 0 {
		size = defaultHandleCacheSize
	}
	handles, err := cache.NewLRUCache[string, fhe.Handle](size)
	if err != nil {
		return nil, err
	}
	poll := cfg.ReceiptPollInterval
	if poll <= 0 {
		poll = defaultReceiptPollInterval
	}
	return &Gateway{
		logger:           logger.With(zap.Stringer("contract", cfg.Address)),
		address:          cfg.Address,
		contract:         contract,
		receipts:         receipts,
		signer:           signer,
		handles:          handles,
		pollInterval:     poll,
		inclusionTimeout: cfg.TxInclusionTimeout,
	}, nil
}

// Address is the contract address, used as the encryption target.
func (g *Gateway) Address() common.Address {
	return g.address
}

// Account returns the connected signer's address.
func (g *Gateway) Account() (common.Address, error) {
	if g.signer == nil || !g.signer.Connected() {
		return common.Address{}, whisper.NewError(whisper.KindNotConnected, "account", errNoSigner)
	}
	return g.signer.Address(), nil
}

// ListIDs returns every record id in ledger storage order.
func (g *Gateway) ListIDs(ctx context.Context) ([]string, error) {
	out, err := g.call(ctx, methodListIDs)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d values", errUnexpectedOutput, methodListIDs, len(out))
	}
	return *abi.ConvertType(out[0], new([]string)).(*[]string), nil
}

// GetRecord fetches the raw record for id.
func (g *Gateway) GetRecord(ctx context.Context, id string) (*Record, error) {
	out, err := g.call(ctx, methodGetRecord, id)
	if err != nil {
		return nil, err
	}
	return unpackRecord(id, out)
}

// GetCiphertextHandle returns the handle of id's encrypted value. Handles
// never change once written, so they are cached.
func (g *Gateway) GetCiphertextHandle(ctx context.Context, id string) (fhe.Handle, error) {
	return g.handles.Get(ctx, id, g.fetchHandle)
}

func (g *Gateway) fetchHandle(ctx context.Context, id string) (fhe.Handle, error) {
	out, err := g.call(ctx, methodGetEncryptedValue, id)
	if err != nil {
		return fhe.Handle{}, err
	}
	if len(out) != 1 {
		return fhe.Handle{}, fmt.Errorf("%w: %s returned %d values", errUnexpectedOutput, methodGetEncryptedValue, len(out))
	}
	handle := fhe.Handle(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte))
	if handle == (fhe.Handle{}) {
		return fhe.Handle{}, whisper.NewError(whisper.KindChainRejected, methodGetEncryptedValue, fmt.Errorf("%w: %s", errNoCiphertext, id))
	}
	return handle, nil
}

// Create submits a new record. The record is durable only once the returned
// transaction is confirmed.
func (g *Gateway) Create(ctx context.Context, p CreateParams) (whisper.PendingTx, error) {
	if p.Payload == nil {
		return nil, whisper.NewError(whisper.KindEncryptionFailure, methodCreate, fhe.ErrInvalidCiphertext)
	}
	return g.transact(ctx, methodCreate,
		p.ID,
		p.Label,
		[32]byte(p.Payload.Ciphertext),
		p.Payload.Proof,
		new(big.Int).SetUint64(p.PlaintextValue),
		new(big.Int).SetUint64(p.AuxFlag),
		p.ClearLabel,
	)
}

// SubmitVerification posts the clear values and decryption proof for id.
func (g *Gateway) SubmitVerification(ctx context.Context, id string, encodedClearValues, proof []byte) (whisper.PendingTx, error) {
	return g.transact(ctx, methodVerifyDecryption, id, encodedClearValues, proof)
}

// ProbeAvailability calls the contract's availability check.
func (g *Gateway) ProbeAvailability(ctx context.Context) (bool, error) {
	out, err := g.call(ctx, methodIsAvailable)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("%w: %s returned %d values", errUnexpectedOutput, methodIsAvailable, len(out))
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (g *Gateway) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		g.logger.Debug("Contract call failed",
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, Classify(method, err)
	}
	return out, nil
}

func (g *Gateway) transact(ctx context.Context, method string, params ...interface{}) (whisper.PendingTx, error) {
	if g.signer == nil || !g.signer.Connected() {
		return nil, whisper.NewError(whisper.KindNotConnected, method, errNoSigner)
	}
	opts, err := g.signer.TransactOpts(ctx)
	if err != nil {
		return nil, Classify(method, err)
	}
	tx, err := g.contract.Transact(opts, method, params...)
	if err != nil {
		g.logger.Warn("Failed to send transaction",
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, Classify(method, err)
	}
	g.logger.Info("Sent transaction",
		zap.String("method", method),
		zap.Stringer("txHash", tx.Hash()),
		zap.Uint64("nonce", tx.Nonce()),
	)
	return &pendingTx{op: method, hash: tx.Hash(), gateway: g}, nil
}
