// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// WithRetries runs operation with an exponential backoff until it succeeds,
// it returns a backoff.Permanent error, or ctx is done. opts tune the policy;
// backoff.WithMaxElapsedTime(0) removes the overall deadline. notify may be
// nil.
func WithRetries(
	ctx context.Context,
	operation backoff.Operation,
	notify backoff.Notify,
	opts ...backoff.ExponentialBackOffOpts,
) error {
	expBackOff := backoff.NewExponentialBackOff(opts...)
	return backoff.RetryNotify(operation, backoff.WithContext(expBackOff, ctx), notify)
}
