// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package whisper

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the message workflow.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	// KindNotConnected means no wallet or session is available.
	KindNotConnected
	// KindEncryptionFailure means the encryption oracle rejected the input
	// or its session was not established.
	KindEncryptionFailure
	// KindUserRejected means the signer declined a mutating call.
	KindUserRejected
	// KindChainRejected means the remote call reverted.
	KindChainRejected
	// KindAlreadyVerified is reported when the record was verified by
	// someone else. Callers treat it as success.
	KindAlreadyVerified
	// KindNetworkFailure is a transport level failure to the oracle or chain.
	KindNetworkFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotConnected:
		return "not connected"
	case KindEncryptionFailure:
		return "encryption failure"
	case KindUserRejected:
		return "user rejected"
	case KindChainRejected:
		return "chain rejected"
	case KindAlreadyVerified:
		return "already verified"
	case KindNetworkFailure:
		return "network failure"
	default:
		return "unknown"
	}
}

var (
	ErrNotConnected      = &Error{Kind: KindNotConnected}
	ErrEncryptionFailure = &Error{Kind: KindEncryptionFailure}
	ErrUserRejected      = &Error{Kind: KindUserRejected}
	ErrChainRejected     = &Error{Kind: KindChainRejected}
	ErrAlreadyVerified   = &Error{Kind: KindAlreadyVerified}
	ErrNetworkFailure    = &Error{Kind: KindNetworkFailure}
)

// Error represents a classified workflow error
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// NewError creates a classified error for op wrapping err.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf creates a classified error for op with a formatted message.
func Errorf(kind ErrorKind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the package level sentinels can
// be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
