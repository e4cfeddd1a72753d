// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/luxfi/whisper"
	"github.com/stretchr/testify/require"
)

type codedError struct {
	code int
	msg  string
}

func (e *codedError) Error() string  { return e.msg }
func (e *codedError) ErrorCode() int { return e.code }

type revertError struct{}

func (*revertError) Error() string          { return "vm error" }
func (*revertError) ErrorData() interface{} { return "0x08c379a0" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected whisper.ErrorKind
	}{
		{
			name:     "already verified revert",
			err:      errors.New("execution reverted: Data already verified"),
			expected: whisper.KindAlreadyVerified,
		},
		{
			name:     "user rejected by code",
			err:      &codedError{code: userRejectedCode, msg: "nope"},
			expected: whisper.KindUserRejected,
		},
		{
			name:     "user denied message",
			err:      errors.New("MetaMask Tx Signature: User denied transaction signature."),
			expected: whisper.KindUserRejected,
		},
		{
			name:     "revert",
			err:      errors.New("execution reverted: Business ID already exists"),
			expected: whisper.KindChainRejected,
		},
		{
			name:     "revert data",
			err:      fmt.Errorf("estimate gas: %w", &revertError{}),
			expected: whisper.KindChainRejected,
		},
		{
			name:     "transport",
			err:      errors.New("Post \"http://localhost:8545\": EOF"),
			expected: whisper.KindNetworkFailure,
		},
		{
			name:     "canceled",
			err:      context.Canceled,
			expected: whisper.KindNetworkFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("op", tt.err)
			require.Equal(t, tt.expected, whisper.KindOf(err))
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassifyKeepsClassified(t *testing.T) {
	require := require.New(t)
	require.NoError(Classify("op", nil))

	orig := whisper.NewError(whisper.KindEncryptionFailure, "encrypt", errors.New("revert"))
	require.Same(orig, Classify("op", orig))
}
