// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	ethereum "github.com/luxfi/geth"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/whisper"
	"github.com/luxfi/whisper/utils"
	"go.uber.org/zap"
)

const (
	defaultReceiptPollInterval = 500 * time.Millisecond
	maxReceiptPollInterval     = 5 * time.Second
)

var _ whisper.PendingTx = (*pendingTx)(nil)

// ReceiptReader fetches transaction receipts.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type pendingTx struct {
	op      string
	hash    common.Hash
	gateway *Gateway
}

func (p *pendingTx) Hash() common.Hash {
	return p.hash
}

// Wait polls for the receipt until the transaction is included. A receipt
// with failed status is a chain rejection.
func (p *pendingTx) Wait(ctx context.Context) error {
	receipt, err := p.gateway.waitForReceipt(ctx, p.hash)
	if err != nil {
		return Classify(p.op, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return whisper.NewError(whisper.KindChainRejected, p.op, errTxReverted)
	}
	p.gateway.logger.Debug("Transaction confirmed",
		zap.String("op", p.op),
		zap.Stringer("txHash", p.hash),
		zap.Uint64("blockNumber", receipt.BlockNumber.Uint64()),
	)
	return nil
}

// waitForReceipt polls with exponential backoff while the receipt is not
// found. Any other error ends the wait. There is no deadline unless a tx
// inclusion timeout is configured.
func (g *Gateway) waitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	operation := func() error {
		r, err := g.receipts.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			receipt = r
			return nil
		case errors.Is(err, ethereum.NotFound):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	notify := func(_ error, next time.Duration) {
		g.logger.Debug("Receipt not available yet",
			zap.Stringer("txHash", hash),
			zap.Duration("retryIn", next),
		)
	}
	err := utils.WithRetries(ctx, operation, notify,
		backoff.WithInitialInterval(g.pollInterval),
		backoff.WithMaxInterval(max(g.pollInterval, maxReceiptPollInterval)),
		backoff.WithMaxElapsedTime(g.inclusionTimeout),
	)
	if err != nil {
		g.logger.Error("Failed to get transaction receipt",
			zap.Stringer("txHash", hash),
			zap.Error(err),
		)
		return nil, err
	}
	return receipt, nil
}
