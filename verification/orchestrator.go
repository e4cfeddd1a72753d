// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package verification coordinates public decryption with the on-chain
// submission of the decryption proof.
package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/whisper"
	"github.com/luxfi/whisper/crypto/fhe"
	"go.uber.org/zap"
)

var (
	ErrNoHandles          = errors.New("no handles to verify")
	ErrNoSubmitter        = errors.New("no submitter")
	ErrClearValueMismatch = errors.New("encoded clear values do not match decrypted values")
	ErrMissingClearValue  = errors.New("oracle did not decrypt handle")
)

// Submitter performs the on-chain write of the clear values and proof. It is
// supplied by the caller so the orchestrator stays independent of the ledger.
type Submitter func(ctx context.Context, encodedClearValues, proof []byte) (whisper.PendingTx, error)

type Request struct {
	Handles  []fhe.Handle
	Contract common.Address
	Submit   Submitter
	// Known is the decryption state already observed upstream. A verified
	// state short circuits the oracle.
	Known whisper.Decryption
}

type Result struct {
	ClearValues map[fhe.Handle]uint64
	Encoded     []byte
	Proof       []byte
	TxHash      common.Hash
	// AlreadyVerified is set when another actor verified the handles first.
	// ClearValues may then be empty and the caller should reload.
	AlreadyVerified bool
	// FromCache is set when the upstream state was already verified and
	// nothing was requested.
	FromCache bool
}

// Value returns the clear value of h.
func (r *Result) Value(h fhe.Handle) (uint64, bool) {
	v, ok := r.ClearValues[h]
	return v, ok
}

type Orchestrator struct {
	logger *zap.Logger
	oracle fhe.DecryptionOracle
}

func NewOrchestrator(oracle fhe.DecryptionOracle, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		logger: logger,
		oracle: oracle,
	}
}

// Verify decrypts req.Handles, submits the proof through req.Submit and waits
// for confirmation. An "already verified" report from the oracle, the
// submission or the confirmation is a success with AlreadyVerified set.
func (o *Orchestrator) Verify(ctx context.Context, req Request) (*Result, error) {
	if v, ok := req.Known.Value(); ok {
		res := &Result{FromCache: true, ClearValues: make(map[fhe.Handle]uint64, len(req.Handles))}
		for _, h := range req.Handles {
			res.ClearValues[h] = v
		}
		return res, nil
	}
	if len(req.Handles) == 0 {
		return nil, ErrNoHandles
	}
	if req.Submit == nil {
		return nil, ErrNoSubmitter
	}

	dec, err := o.oracle.PublicDecrypt(ctx, req.Handles, req.Contract)
	if whisper.IsKind(err, whisper.KindAlreadyVerified) {
		o.logger.Info("Oracle reports handles already verified", zap.Int("handles", len(req.Handles)))
		return &Result{AlreadyVerified: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt handles: %w", err)
	}

	encoded, err := encodedClearValues(req.Handles, dec)
	if err != nil {
		return nil, err
	}
	res := &Result{
		ClearValues: dec.ClearValues,
		Encoded:     encoded,
		Proof:       dec.DecryptionProof,
	}

	tx, err := req.Submit(ctx, encoded, dec.DecryptionProof)
	if whisper.IsKind(err, whisper.KindAlreadyVerified) {
		o.logger.Info("Verification already submitted by another actor")
		res.AlreadyVerified = true
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to submit verification: %w", err)
	}
	res.TxHash = tx.Hash()

	if err := tx.Wait(ctx); err != nil {
		if whisper.IsKind(err, whisper.KindAlreadyVerified) {
			res.AlreadyVerified = true
			return res, nil
		}
		return nil, fmt.Errorf("failed to confirm verification %s: %w", res.TxHash, err)
	}

	o.logger.Info("Verified decryption",
		zap.Stringer("txHash", res.TxHash),
		zap.Int("handles", len(req.Handles)),
	)
	return res, nil
}

// encodedClearValues returns the blob to submit. The oracle's blob is used
// when present, after checking it agrees with its per-handle values.
func encodedClearValues(handles []fhe.Handle, dec *fhe.DecryptionResult) ([]byte, error) {
	ordered := make([]uint64, len(handles))
	for i, h := range handles {
		v, ok := dec.ClearValues[h]
		if !ok {
			return nil, fmt.Errorf("%w %s", ErrMissingClearValue, h)
		}
		ordered[i] = v
	}
	if len(dec.AbiEncodedClearValues) == 0 {
		return whisper.EncodeClearValues(ordered), nil
	}

	decoded, err := whisper.DecodeClearValues(dec.AbiEncodedClearValues)
	if err != nil {
		return nil, err
	}
	if len(decoded) != len(ordered) {
		return nil, fmt.Errorf("%w: %d encoded for %d handles", ErrClearValueMismatch, len(decoded), len(ordered))
	}
	for i := range ordered {
		if decoded[i] != ordered[i] {
			return nil, fmt.Errorf("%w: handle %d", ErrClearValueMismatch, i)
		}
	}
	return dec.AbiEncodedClearValues, nil
}
