// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package whisper

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/rlp"
)

// WordLen is the size of one ABI encoded clear value.
const WordLen = 32

var (
	ErrMalformedClearValues = errors.New("malformed clear values")
	ErrClearValueOverflow   = errors.New("clear value overflows uint64")
)

// EncodeClearValues ABI encodes values as a tuple of uint256 words, the
// layout the verification contract expects.
func EncodeClearValues(values []uint64) []byte {
	out := make([]byte, 0, len(values)*WordLen)
	for _, v := range values {
		word := uint256.NewInt(v).Bytes32()
		out = append(out, word[:]...)
	}
	return out
}

// DecodeClearValues parses the ABI encoded clear values returned by the
// decryption oracle. Every word must fit in a uint64.
func DecodeClearValues(b []byte) ([]uint64, error) {
	if len(b)%WordLen != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrMalformedClearValues, len(b), WordLen)
	}
	values := make([]uint64, 0, len(b)/WordLen)
	for i := 0; i < len(b); i += WordLen {
		word := new(uint256.Int).SetBytes32(b[i : i+WordLen])
		if !word.IsUint64() {
			return nil, fmt.Errorf("%w: word %d", ErrClearValueOverflow, i/WordLen)
		}
		values = append(values, word.Uint64())
	}
	return values, nil
}

// digestEntry is the RLP shape of a record inside a snapshot digest.
type digestEntry struct {
	ID             string
	Content        string
	Timestamp      uint64
	Sender         common.Address
	EncryptedValue uint64
	Verified       bool
	DecryptedValue uint64
}

// Digest returns a stable fingerprint of an ordered record collection.
func Digest(records []*MessageRecord) (common.Hash, error) {
	entries := make([]digestEntry, 0, len(records))
	for _, r := range records {
		value, verified := r.Decryption.Value()
		entries = append(entries, digestEntry{
			ID:             r.ID,
			Content:        r.Content,
			Timestamp:      r.Timestamp,
			Sender:         r.Sender,
			EncryptedValue: r.EncryptedValue,
			Verified:       verified,
			DecryptedValue: value,
		})
	}
	b, err := rlp.EncodeToBytes(entries)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return common.Hash(crypto.Keccak256Hash(b)), nil
}
