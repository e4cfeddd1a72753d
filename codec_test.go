// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package whisper

import (
	"bytes"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestEncodeClearValues(t *testing.T) {
	require := require.New(t)

	encoded := EncodeClearValues([]uint64{5, 0x0102})
	require.Len(encoded, 2*WordLen)

	// Big endian words, left padded
	require.Equal(byte(5), encoded[WordLen-1])
	require.True(bytes.Equal(make([]byte, WordLen-1), encoded[:WordLen-1]))
	require.Equal([]byte{0x01, 0x02}, encoded[2*WordLen-2:])

	decoded, err := DecodeClearValues(encoded)
	require.NoError(err)
	require.Equal([]uint64{5, 0x0102}, decoded)

	empty, err := DecodeClearValues(nil)
	require.NoError(err)
	require.Empty(empty)
}

func TestDecodeClearValuesErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected error
	}{
		{
			name:     "short word",
			input:    make([]byte, WordLen-1),
			expected: ErrMalformedClearValues,
		},
		{
			name: "value above uint64",
			input: func() []byte {
				b := make([]byte, WordLen)
				b[WordLen-9] = 1
				return b
			}(),
			expected: ErrClearValueOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClearValues(tt.input)
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestDigest(t *testing.T) {
	require := require.New(t)

	records := []*MessageRecord{
		{ID: "msg-1", Content: "hello", Timestamp: 10, Sender: common.HexToAddress("0x01"), EncryptedValue: 5},
		{ID: "msg-2", Content: "hey", Timestamp: 11, Sender: common.HexToAddress("0x02"), EncryptedValue: 3},
	}

	d1, err := Digest(records)
	require.NoError(err)
	d2, err := Digest(records)
	require.NoError(err)
	require.Equal(d1, d2)

	// Order matters
	swapped, err := Digest([]*MessageRecord{records[1], records[0]})
	require.NoError(err)
	require.NotEqual(d1, swapped)

	// Verification changes the digest
	verified := *records[0]
	verified.Decryption = Verified(5)
	changed, err := Digest([]*MessageRecord{&verified, records[1]})
	require.NoError(err)
	require.NotEqual(d1, changed)
}

func TestDigestEmptyIsKeccakOfEmptyList(t *testing.T) {
	require := require.New(t)

	d, err := Digest(nil)
	require.NoError(err)
	// keccak256(rlp([])), the empty uncle hash.
	require.Equal(common.HexToHash("0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347"), d)
}
