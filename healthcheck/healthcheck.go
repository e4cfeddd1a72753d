// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package healthcheck

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexliesenfeld/health"
	"github.com/luxfi/whisper/cache"
	"go.uber.org/zap"
)

const (
	CheckName    = "contract-availability"
	probeKey     = "probe"
	checkTimeout = 10 * time.Second
)

var errUnavailable = errors.New("contract reports unavailable")

// Prober checks that the contract is reachable and available.
type Prober func(ctx context.Context) (bool, error)

// NewChecker returns a checker over probe. Results, failures included, are
// reused for ttl so frequent health polls do not hammer the RPC endpoint.
func NewChecker(probe Prober, ttl time.Duration, logger *zap.Logger) health.Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := cache.NewTTLCache[string, error](ttl)
	fetch := func(ctx context.Context, _ string) (error, error) {
		ok, err := probe(ctx)
		switch {
		case err != nil:
			logger.Warn("Availability probe failed", zap.Error(err))
			return err, nil
		case !ok:
			return errUnavailable, nil
		default:
			return nil, nil
		}
	}

	return health.NewChecker(
		health.WithDisabledCache(),
		health.WithTimeout(checkTimeout),
		health.WithCheck(health.Check{
			Name: CheckName,
			Check: func(ctx context.Context) error {
				checkErr, err := results.Get(ctx, probeKey, fetch, false)
				if err != nil {
					return err
				}
				return checkErr
			},
		}),
	)
}

// NewHandler serves checker results as JSON.
func NewHandler(checker health.Checker) http.Handler {
	return health.NewHandler(checker)
}
