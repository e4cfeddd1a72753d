// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/accounts/abi/bind"
	"github.com/luxfi/geth/common"
)

// Signer is the wallet collaborator. Mutating calls request transact options
// from it lazily, once per call.
type Signer interface {
	Address() common.Address
	Connected() bool
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// KeySigner signs with an in-memory secp256k1 key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// NewKeySigner parses a hex encoded private key, with or without 0x prefix.
func NewKeySigner(hexKey string, chainID *big.Int) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	if chainID == nil {
		return nil, fmt.Errorf("chain id is required")
	}
	return &KeySigner{
		key:     key,
		address: common.Address(crypto.PubkeyToAddress(key.PublicKey)),
		chainID: new(big.Int).Set(chainID),
	}, nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) Connected() bool {
	return s.key != nil
}

func (s *KeySigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
