// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package workflow drives the user facing operations: sending an encrypted
// message and requesting its verified decryption.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/whisper"
	"github.com/luxfi/whisper/crypto/fhe"
	"github.com/luxfi/whisper/ledger"
	"github.com/luxfi/whisper/status"
	"github.com/luxfi/whisper/store"
	"github.com/luxfi/whisper/verification"
	"go.uber.org/zap"
)

// Status messages shown to the user.
const (
	MsgConnectWallet       = "Please connect wallet first"
	MsgInitFailed          = "FHE initialization failed"
	MsgEncrypting          = "Encrypting message with FHE..."
	MsgSending             = "Sending encrypted message..."
	MsgSent                = "Message sent successfully!"
	MsgTxRejected          = "Transaction rejected"
	MsgSendFailed          = "Send failed: "
	MsgAlreadyVerified     = "Message already verified"
	MsgVerifying           = "Verifying decryption..."
	MsgDecrypted           = "Message decrypted successfully!"
	MsgVerifiedElsewhere   = "Message is already verified"
	MsgDecryptFailed       = "Decryption failed: "
	MsgLoadFailed          = "Failed to load data"
	MsgContractAvailable   = "Contract is available!"
	MsgContractUnavailable = "Contract is not available"
	MsgContractCallFailed  = "Contract call failed"
)

var (
	ErrSendInProgress    = errors.New("send already in progress")
	ErrDecryptInProgress = errors.New("decryption already in progress for message")
)

// Encrypter is the encryption client.
type Encrypter interface {
	Initialize(ctx context.Context) error
	Encrypt(ctx context.Context, contract, user common.Address, value uint64) (*fhe.EncryptedPayload, error)
}

// Ledger is the contract gateway.
type Ledger interface {
	Address() common.Address
	Account() (common.Address, error)
	GetRecord(ctx context.Context, id string) (*ledger.Record, error)
	GetCiphertextHandle(ctx context.Context, id string) (fhe.Handle, error)
	Create(ctx context.Context, p ledger.CreateParams) (whisper.PendingTx, error)
	SubmitVerification(ctx context.Context, id string, encodedClearValues, proof []byte) (whisper.PendingTx, error)
	ProbeAvailability(ctx context.Context) (bool, error)
}

// Verifier runs decryption with proof submission.
type Verifier interface {
	Verify(ctx context.Context, req verification.Request) (*verification.Result, error)
}

// Store is the message cache.
type Store interface {
	Reload(ctx context.Context) error
	Get(id string) (*whisper.MessageRecord, bool)
	Filter(term string) []*whisper.MessageRecord
	Stats(now time.Time) store.Stats
	Digest() common.Hash
}

type Config struct {
	Encrypter Encrypter
	Ledger    Ledger
	Verifier  Verifier
	Store     Store
	Status    *status.Tracker
	// Metrics may be nil.
	Metrics *Metrics
	Logger  *zap.Logger
}

// GuardState reports which operations are in flight.
type GuardState struct {
	Sending    bool     `json:"sending"`
	Decrypting []string `json:"decrypting"`
}

// Controller composes the workflow components. Every operation catches its
// own failures, reports them through the status tracker and returns them as
// a classified error.
type Controller struct {
	logger    *zap.Logger
	metrics   *Metrics
	encrypter Encrypter
	ledger    Ledger
	verifier  Verifier
	store     Store
	status    *status.Tracker

	sending    Guard
	decrypting *KeyedGuard
}

func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracker := cfg.Status
	if tracker == nil {
		tracker = status.NewTracker(status.Config{}, logger)
	}
	return &Controller{
		logger:     logger,
		metrics:    cfg.Metrics,
		encrypter:  cfg.Encrypter,
		ledger:     cfg.Ledger,
		verifier:   cfg.Verifier,
		store:      cfg.Store,
		status:     tracker,
		decrypting: NewKeyedGuard(),
	}
}

// Initialize establishes the encryption session.
func (c *Controller) Initialize(ctx context.Context) error {
	start := time.Now()
	err := c.encrypter.Initialize(ctx)
	c.metrics.observe(opInitialize, outcomeOf(err), start)
	if err != nil {
		c.logger.Error("Failed to initialize encryption session", zap.Error(err))
		c.status.Fail(MsgInitFailed)
		return classified(opInitialize, err)
	}
	return nil
}

// Send encrypts content, records it on the ledger and reloads the store. It
// returns the new message id. A send while another is outstanding is
// rejected with ErrSendInProgress.
func (c *Controller) Send(ctx context.Context, content string) (string, error) {
	release, ok := c.sending.TryAcquire()
	if !ok {
		c.metrics.rejected(opSend)
		return "", ErrSendInProgress
	}
	defer release()

	start := time.Now()
	id, err := c.send(ctx, content)
	c.metrics.observe(opSend, outcomeOf(err), start)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *Controller) send(ctx context.Context, content string) (string, error) {
	user, err := c.ledger.Account()
	if err != nil {
		c.status.Fail(MsgConnectWallet)
		return "", classified(opSend, err)
	}

	c.status.Start(MsgEncrypting)

	id, err := whisper.NewMessageID()
	if err != nil {
		return "", c.failSend(err)
	}
	value := whisper.PlaintextValue(content)
	logger := c.logger.With(zap.String("id", id))

	payload, err := c.encrypter.Encrypt(ctx, c.ledger.Address(), user, value)
	if err != nil {
		return "", c.failSend(err)
	}

	tx, err := c.ledger.Create(ctx, ledger.CreateParams{
		ID:             id,
		Label:          whisper.MessageLabel,
		Payload:        payload,
		PlaintextValue: value,
		ClearLabel:     content,
	})
	if err != nil {
		return "", c.failSend(err)
	}

	c.status.Start(MsgSending)
	if err := tx.Wait(ctx); err != nil {
		return "", c.failSend(err)
	}

	c.status.Succeed(MsgSent)
	logger.Info("Sent message",
		zap.Stringer("txHash", tx.Hash()),
		zap.Uint64("value", value),
	)
	c.reloadAfter(ctx, opSend)
	return id, nil
}

func (c *Controller) failSend(err error) error {
	c.logger.Warn("Send failed", zap.Error(err))
	if whisper.IsKind(err, whisper.KindUserRejected) {
		c.status.Fail(MsgTxRejected)
	} else {
		c.status.Fail(MsgSendFailed + err.Error())
	}
	return classified(opSend, err)
}

// RequestDecryption publicly decrypts message id and verifies the result
// on-chain. A record that is already verified returns its stored value
// without contacting the oracle. Concurrent requests for the same id are
// rejected with ErrDecryptInProgress.
//
// When another actor verified the record first, the value is taken from the
// reloaded store, then from the oracle's result, then from a fresh ledger
// read. If none of them has it yet, the verification still succeeded and
// RequestDecryption returns Unverified with a nil error; a later reload
// shows the value.
func (c *Controller) RequestDecryption(ctx context.Context, id string) (whisper.Decryption, error) {
	release, ok := c.decrypting.TryAcquire(id)
	if !ok {
		c.metrics.rejected(opDecrypt)
		return whisper.Unverified(), ErrDecryptInProgress
	}
	defer release()

	start := time.Now()
	d, outcome, err := c.decrypt(ctx, id)
	c.metrics.observe(opDecrypt, outcome, start)
	return d, err
}

func (c *Controller) decrypt(ctx context.Context, id string) (whisper.Decryption, string, error) {
	if _, err := c.ledger.Account(); err != nil {
		c.status.Fail(MsgConnectWallet)
		return whisper.Unverified(), outcomeOf(err), classified(opDecrypt, err)
	}
	logger := c.logger.With(zap.String("id", id))

	raw, err := c.ledger.GetRecord(ctx, id)
	if err != nil {
		return c.failDecrypt(err)
	}
	known := raw.MessageRecord().Decryption
	if known.IsVerified() {
		c.status.Succeed(MsgAlreadyVerified)
		logger.Debug("Record already verified")
		return known, outcomeAlreadyVerified, nil
	}

	handle, err := c.ledger.GetCiphertextHandle(ctx, id)
	if err != nil {
		return c.failDecrypt(err)
	}

	c.status.Start(MsgVerifying)
	res, err := c.verifier.Verify(ctx, verification.Request{
		Handles:  []fhe.Handle{handle},
		Contract: c.ledger.Address(),
		Submit: func(ctx context.Context, encoded, proof []byte) (whisper.PendingTx, error) {
			c.metrics.submitted()
			return c.ledger.SubmitVerification(ctx, id, encoded, proof)
		},
		Known: known,
	})
	if err != nil {
		return c.failDecrypt(err)
	}

	if res.AlreadyVerified {
		c.reloadAfter(ctx, opDecrypt)
		c.status.Succeed(MsgVerifiedElsewhere)
		logger.Info("Record was verified concurrently")
		if rec, ok := c.store.Get(id); ok && rec.IsVerified() {
			return rec.Decryption, outcomeAlreadyVerified, nil
		}
		if v, ok := res.Value(handle); ok {
			return whisper.Verified(v), outcomeAlreadyVerified, nil
		}
		if raw, err := c.ledger.GetRecord(ctx, id); err == nil {
			if d := raw.MessageRecord().Decryption; d.IsVerified() {
				return d, outcomeAlreadyVerified, nil
			}
		} else {
			logger.Warn("Failed to read verified record", zap.Error(err))
		}
		logger.Warn("Record reported verified but no value is readable yet")
		return whisper.Unverified(), outcomeAlreadyVerified, nil
	}

	v, ok := res.Value(handle)
	if !ok {
		return c.failDecrypt(verification.ErrMissingClearValue)
	}
	c.reloadAfter(ctx, opDecrypt)
	c.status.Succeed(MsgDecrypted)
	logger.Info("Decrypted message",
		zap.Uint64("value", v),
		zap.Stringer("txHash", res.TxHash),
	)
	return whisper.Verified(v), outcomeSuccess, nil
}

func (c *Controller) failDecrypt(err error) (whisper.Decryption, string, error) {
	c.logger.Warn("Decryption failed", zap.Error(err))
	c.status.Fail(MsgDecryptFailed + err.Error())
	return whisper.Unverified(), outcomeOf(err), classified(opDecrypt, err)
}

// Reload rebuilds the message store. A failure is reported through status.
func (c *Controller) Reload(ctx context.Context) error {
	start := time.Now()
	err := c.store.Reload(ctx)
	c.metrics.observe(opReload, outcomeOf(err), start)
	if err != nil {
		c.status.Fail(MsgLoadFailed)
		return classified(opReload, err)
	}
	return nil
}

// reloadAfter refreshes the store once a write is durable. The write already
// succeeded, so a failed reload is only logged.
func (c *Controller) reloadAfter(ctx context.Context, op string) {
	if err := c.store.Reload(ctx); err != nil {
		c.logger.Warn("Failed to reload messages",
			zap.String("after", op),
			zap.Error(err),
		)
	}
}

// Probe checks contract availability and reports it through status.
func (c *Controller) Probe(ctx context.Context) (bool, error) {
	start := time.Now()
	ok, err := c.ledger.ProbeAvailability(ctx)
	c.metrics.observe(opProbe, outcomeOf(err), start)
	switch {
	case err != nil:
		c.status.Fail(MsgContractCallFailed)
		return false, classified(opProbe, err)
	case !ok:
		c.status.Fail(MsgContractUnavailable)
	default:
		c.status.Succeed(MsgContractAvailable)
	}
	return ok, nil
}

// Messages returns the cached records matching term.
func (c *Controller) Messages(term string) []*whisper.MessageRecord {
	return c.store.Filter(term)
}

func (c *Controller) Message(id string) (*whisper.MessageRecord, bool) {
	return c.store.Get(id)
}

func (c *Controller) Stats(now time.Time) store.Stats {
	return c.store.Stats(now)
}

func (c *Controller) Digest() common.Hash {
	return c.store.Digest()
}

func (c *Controller) Status() status.Record {
	return c.status.Current()
}

// Subscribe streams status transitions. See status.Tracker.Subscribe.
func (c *Controller) Subscribe() (<-chan status.Record, func()) {
	return c.status.Subscribe()
}

func (c *Controller) Guards() GuardState {
	return GuardState{
		Sending:    c.sending.Held(),
		Decrypting: c.decrypting.Keys(),
	}
}

// classified makes sure err carries a taxonomy kind for callers.
func classified(op string, err error) error {
	var werr *whisper.Error
	if errors.As(err, &werr) {
		return err
	}
	return whisper.NewError(whisper.KindUnknown, op, err)
}
