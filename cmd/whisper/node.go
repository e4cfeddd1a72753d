// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"

	"github.com/luxfi/geth/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/luxfi/whisper/config"
	"github.com/luxfi/whisper/crypto/fhe"
	"github.com/luxfi/whisper/crypto/fhe/relayer"
	"github.com/luxfi/whisper/ledger"
	"github.com/luxfi/whisper/status"
	"github.com/luxfi/whisper/store"
	"github.com/luxfi/whisper/verification"
	"github.com/luxfi/whisper/workflow"
)

// node is the fully wired client.
type node struct {
	client     *ethclient.Client
	gateway    *ledger.Gateway
	encrypter  *fhe.Client
	controller *workflow.Controller
	registry   *prometheus.Registry
}

func newNode(ctx context.Context, cfg config.Config, logger *zap.Logger) (*node, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}

	var signer ledger.Signer
	if cfg.HasSigner() {
		chainID, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to fetch chain id: %w", err)
		}
		keySigner, err := ledger.NewKeySigner(cfg.PrivateKey, chainID)
		if err != nil {
			client.Close()
			return nil, err
		}
		logger.Info("Loaded signer", zap.Stringer("account", keySigner.Address()))
		signer = keySigner
	} else {
		logger.Info("No private key configured, running read only")
	}

	gateway, err := ledger.NewGateway(
		ledger.Config{
			Address:             cfg.Address(),
			HandleCacheSize:     cfg.HandleCacheSize,
			ReceiptPollInterval: cfg.ReceiptPollInterval,
			TxInclusionTimeout:  cfg.TxInclusionTimeout,
		},
		client,
		signer,
		logger.Named("ledger"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create ledger gateway: %w", err)
	}

	oracle := relayer.NewClient(
		relayer.Config{
			URL:            cfg.RelayerURL,
			RequestTimeout: cfg.RelayerTimeout,
		},
		logger.Named("relayer"),
	)
	encrypter := fhe.NewClient(oracle, logger.Named("fhe"))

	registry := prometheus.NewRegistry()
	tracker := status.NewTracker(
		status.Config{
			SuccessResetDelay: cfg.SuccessResetDelay,
			ErrorResetDelay:   cfg.ErrorResetDelay,
		},
		logger.Named("status"),
	)
	messages := store.New(gateway, store.NewMetrics(registry), logger.Named("store"))

	controller := workflow.NewController(workflow.Config{
		Encrypter: encrypter,
		Ledger:    gateway,
		Verifier:  verification.NewOrchestrator(oracle, logger.Named("verification")),
		Store:     messages,
		Status:    tracker,
		Metrics:   workflow.NewMetrics(registry),
		Logger:    logger,
	})

	return &node{
		client:     client,
		gateway:    gateway,
		encrypter:  encrypter,
		controller: controller,
		registry:   registry,
	}, nil
}

func (n *node) Close() {
	n.client.Close()
}

// withNode builds a node for the duration of run.
func withNode(ctx context.Context, run func(*node) error) error {
	n, err := newNode(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer n.Close()
	return run(n)
}
