// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

//go:generate go run go.uber.org/mock/mockgen -source=$GOFILE -destination=./mocks/mock_fhe.go -package=mocks

// Package fhe is the client side of the homomorphic encryption oracle. The
// oracle turns a plaintext into a ciphertext handle plus input proof, and
// later publicly decrypts handles with a proof that the ledger can check.
package fhe

import (
	"context"
	"errors"
	"math"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// MaxPlaintext is the largest value of the encrypted integer type.
const MaxPlaintext = math.MaxUint32

var (
	// ErrEncryptionInProgress is returned when Encrypt is called while another
	// encryption is outstanding.
	ErrEncryptionInProgress = errors.New("encryption already in progress")
	// ErrSessionNotInitialized is returned when the oracle handshake has not
	// completed.
	ErrSessionNotInitialized = errors.New("fhe session not initialized")
	// ErrInvalidCiphertext is returned when the oracle returns a malformed
	// handle.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// Handle references a ciphertext stored by the ledger.
type Handle = ids.ID

// EncryptedPayload is the oracle output for one plaintext: the ciphertext
// handle and the input proof the ledger checks on create.
type EncryptedPayload struct {
	Ciphertext Handle
	Proof      []byte
}

// DecryptionResult is the public decryption of a set of handles.
type DecryptionResult struct {
	ClearValues           map[Handle]uint64
	AbiEncodedClearValues []byte
	DecryptionProof       []byte
}

// EncryptionOracle encrypts plaintexts for a target contract.
type EncryptionOracle interface {
	// InitSession performs the oracle handshake.
	InitSession(ctx context.Context) error
	// Encrypt encrypts value for contract on behalf of user.
	Encrypt(ctx context.Context, contract, user common.Address, value uint64) (*EncryptedPayload, error)
}

// DecryptionOracle publicly decrypts handles owned by contract.
type DecryptionOracle interface {
	PublicDecrypt(ctx context.Context, handles []Handle, contract common.Address) (*DecryptionResult, error)
}
