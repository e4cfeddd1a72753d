// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/luxfi/whisper"
)

// userRejectedCode is the EIP-1193 code for a request the user declined.
const userRejectedCode = 4001

var (
	errUnexpectedOutput = errors.New("unexpected contract output")
	errNoCiphertext     = errors.New("record has no ciphertext")
	errTxReverted       = errors.New("transaction reverted")
	errNoSigner         = errors.New("no signer connected")
)

var (
	alreadyVerifiedMarkers = []string{"already verified"}
	userRejectedMarkers    = []string{"user rejected", "user denied", "rejected by user", "request rejected"}
	revertMarkers          = []string{"execution reverted", "revert", "out of gas", "invalid opcode"}
)

type rpcError interface {
	ErrorCode() int
}

type dataError interface {
	ErrorData() interface{}
}

// Classify maps a chain or signer error onto the workflow taxonomy. Already
// classified errors are returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var werr *whisper.Error
	if errors.As(err, &werr) {
		return err
	}
	return whisper.NewError(kindOf(err), op, err)
}

func kindOf(err error) whisper.ErrorKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return whisper.KindNetworkFailure
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, alreadyVerifiedMarkers) {
		return whisper.KindAlreadyVerified
	}

	var rerr rpcError
	if errors.As(err, &rerr) && rerr.ErrorCode() == userRejectedCode {
		return whisper.KindUserRejected
	}
	if containsAny(msg, userRejectedMarkers) {
		return whisper.KindUserRejected
	}

	var derr dataError
	if errors.As(err, &derr) && derr.ErrorData() != nil {
		return whisper.KindChainRejected
	}
	if containsAny(msg, revertMarkers) {
		return whisper.KindChainRejected
	}
	return whisper.KindNetworkFailure
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
