// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package whisper

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/luxfi/geth/common"
)

const (
	// MessageIDPrefix prefixes every message id created by this client.
	MessageIDPrefix = "msg-"

	// MessageLabel is the public label stored next to every chat message.
	MessageLabel = "Chat Message"
)

// Decryption is the verification state of a record. The zero value is
// unverified; a verified Decryption always carries its cleartext.
type Decryption struct {
	verified bool
	value    uint64
}

// Unverified returns the Decryption of a record whose value has not been
// verified on-chain.
func Unverified() Decryption {
	return Decryption{}
}

// Verified returns the Decryption of a record verified on-chain with value.
func Verified(value uint64) Decryption {
	return Decryption{verified: true, value: value}
}

// Value returns the decrypted value and whether it is available.
func (d Decryption) Value() (uint64, bool) {
	return d.value, d.verified
}

// IsVerified reports whether the value was verified on-chain.
func (d Decryption) IsVerified() bool {
	return d.verified
}

func (d Decryption) String() string {
	if !d.verified {
		return "unverified"
	}
	return "verified(" + strconv.FormatUint(d.value, 10) + ")"
}

// MessageRecord is the client side view of a message stored on the ledger.
// Content is a cache of the cleartext label; the ledger stays authoritative.
type MessageRecord struct {
	ID             string
	Content        string
	Timestamp      uint64
	Sender         common.Address
	EncryptedValue uint64
	Decryption     Decryption
}

// IsVerified reports whether the record's value was verified on-chain.
func (r *MessageRecord) IsVerified() bool {
	return r.Decryption.IsVerified()
}

// PendingTx is a submitted ledger write awaiting confirmation.
type PendingTx interface {
	// Hash identifies the transaction.
	Hash() common.Hash
	// Wait blocks until the transaction is confirmed or fails.
	Wait(ctx context.Context) error
}

// NewMessageID returns a fresh, time ordered message id.
func NewMessageID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate message id: %w", err)
	}
	return MessageIDPrefix + id.String(), nil
}

// PlaintextValue is the quantity that gets encrypted for a message: its
// length in UTF-16 code units.
func PlaintextValue(content string) uint64 {
	return uint64(len(utf16.Encode([]rune(content))))
}
