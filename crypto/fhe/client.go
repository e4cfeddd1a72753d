// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhe

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/whisper"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	opInitialize = "initialize fhe session"
	opEncrypt    = "encrypt"
)

// Client guards access to the encryption oracle. It tracks whether the
// session handshake completed and allows a single outstanding encryption.
type Client struct {
	logger *zap.Logger
	oracle EncryptionOracle

	initGroup   singleflight.Group
	initialized atomic.Bool
	busy        atomic.Bool
}

func NewClient(oracle EncryptionOracle, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		logger: logger,
		oracle: oracle,
	}
}

// Initialize performs the oracle handshake once. Concurrent callers share the
// same attempt; after a failure the next call tries again.
func (c *Client) Initialize(ctx context.Context) error {
	if c.initialized.Load() {
		return nil
	}
	_, err, _ := c.initGroup.Do("init", func() (interface{}, error) {
		if c.initialized.Load() {
			return nil, nil
		}
		if err := c.oracle.InitSession(ctx); err != nil {
			return nil, err
		}
		c.initialized.Store(true)
		c.logger.Info("FHE session initialized")
		return nil, nil
	})
	if err != nil {
		c.logger.Warn("FHE session initialization failed", zap.Error(err))
		return classify(opInitialize, err)
	}
	return nil
}

// Initialized reports whether the handshake completed.
func (c *Client) Initialized() bool {
	return c.initialized.Load()
}

// Busy reports whether an encryption is outstanding.
func (c *Client) Busy() bool {
	return c.busy.Load()
}

// Encrypt encrypts value for contract on behalf of user. It is a single
// attempt; failures are returned to the caller.
func (c *Client) Encrypt(ctx context.Context, contract, user common.Address, value uint64) (*EncryptedPayload, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrEncryptionInProgress
	}
	defer c.busy.Store(false)

	if !c.initialized.Load() {
		return nil, whisper.NewError(whisper.KindEncryptionFailure, opEncrypt, ErrSessionNotInitialized)
	}
	if value > MaxPlaintext {
		return nil, whisper.Errorf(whisper.KindEncryptionFailure, opEncrypt,
			"value %d exceeds the encrypted type maximum %d", value, uint64(MaxPlaintext))
	}

	payload, err := c.oracle.Encrypt(ctx, contract, user, value)
	if err != nil {
		c.logger.Debug("Oracle rejected encryption",
			zap.Stringer("contract", contract),
			zap.Error(err),
		)
		return nil, classify(opEncrypt, err)
	}
	if payload == nil || payload.Ciphertext == (Handle{}) {
		return nil, whisper.NewError(whisper.KindEncryptionFailure, opEncrypt, ErrInvalidCiphertext)
	}

	c.logger.Debug("Encrypted value",
		zap.Stringer("contract", contract),
		zap.Stringer("handle", payload.Ciphertext),
	)
	return payload, nil
}

// classify keeps errors the oracle already classified and treats everything
// else as a rejected encryption.
func classify(op string, err error) error {
	var werr *whisper.Error
	if errors.As(err, &werr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return whisper.NewError(whisper.KindNetworkFailure, op, err)
	}
	return whisper.NewError(whisper.KindEncryptionFailure, op, err)
}
