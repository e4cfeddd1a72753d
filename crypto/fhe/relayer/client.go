// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package relayer implements the encryption and decryption oracles over the
// FHE relayer's HTTP API.
package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/whisper"
	"github.com/luxfi/whisper/crypto/fhe"
	"go.uber.org/zap"
)

const (
	KeyURLPath        = "/v1/keyurl"
	InputProofPath    = "/v1/input-proof"
	PublicDecryptPath = "/v1/public-decrypt"

	// EncryptedBits is the width of the encrypted integer type.
	EncryptedBits = 32

	defaultRequestTimeout = 30 * time.Second
	maxResponseBytes      = 4 << 20
)

var (
	_ fhe.EncryptionOracle = (*Client)(nil)
	_ fhe.DecryptionOracle = (*Client)(nil)

	errNoPublicKey     = errors.New("relayer returned no public key")
	errHandleCount     = errors.New("relayer returned unexpected handle count")
	errMissingHandle   = errors.New("relayer omitted clear value for handle")
	errInvalidDecimals = errors.New("invalid clear value")
)

type KeyURLResponse struct {
	PublicKeyID string `json:"publicKeyId"`
	PublicKey   string `json:"publicKeyUrl"`
	CRSID       string `json:"crsId,omitempty"`
}

type InputProofRequest struct {
	ContractAddress common.Address `json:"contractAddress"`
	UserAddress     common.Address `json:"userAddress"`
	PublicKeyID     string         `json:"publicKeyId"`
	// Values are decimal strings, Bits the encrypted width of each value.
	Values []string `json:"values"`
	Bits   []uint   `json:"bits"`
}

type InputProofResponse struct {
	Handles    []common.Hash `json:"handles"`
	InputProof hexutil.Bytes `json:"inputProof"`
}

type PublicDecryptRequest struct {
	ContractAddress common.Address `json:"contractAddress"`
	Handles         []common.Hash  `json:"handles"`
}

type PublicDecryptResponse struct {
	// ClearValues maps hex handles to decimal values.
	ClearValues           map[common.Hash]string `json:"clearValues"`
	AbiEncodedClearValues hexutil.Bytes          `json:"abiEncodedClearValues"`
	DecryptionProof       hexutil.Bytes          `json:"decryptionProof"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type Config struct {
	URL            string
	RequestTimeout time.Duration
}

// Client talks to a relayer. The public key id fetched by InitSession is
// attached to every encryption request.
type Client struct {
	logger  *zap.Logger
	baseURL string
	http    *http.Client

	lock        sync.RWMutex
	publicKeyID string
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		logger:  logger.With(zap.String("relayerURL", cfg.URL)),
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) InitSession(ctx context.Context) error {
	var resp KeyURLResponse
	if err := c.do(ctx, http.MethodGet, KeyURLPath, nil, &resp, whisper.KindEncryptionFailure); err != nil {
		return err
	}
	if resp.PublicKeyID == "" {
		return whisper.NewError(whisper.KindEncryptionFailure, KeyURLPath, errNoPublicKey)
	}

	c.lock.Lock()
	c.publicKeyID = resp.PublicKeyID
	c.lock.Unlock()

	c.logger.Info("Fetched relayer public key", zap.String("publicKeyID", resp.PublicKeyID))
	return nil
}

func (c *Client) Encrypt(ctx context.Context, contract, user common.Address, value uint64) (*fhe.EncryptedPayload, error) {
	c.lock.RLock()
	keyID := c.publicKeyID
	c.lock.RUnlock()
	if keyID == "" {
		return nil, whisper.NewError(whisper.KindEncryptionFailure, InputProofPath, fhe.ErrSessionNotInitialized)
	}

	req := InputProofRequest{
		ContractAddress: contract,
		UserAddress:     user,
		PublicKeyID:     keyID,
		Values:          []string{uint256.NewInt(value).Dec()},
		Bits:            []uint{EncryptedBits},
	}
	var resp InputProofResponse
	if err := c.do(ctx, http.MethodPost, InputProofPath, req, &resp, whisper.KindEncryptionFailure); err != nil {
		return nil, err
	}
	if len(resp.Handles) != 1 {
		return nil, whisper.NewError(whisper.KindEncryptionFailure, InputProofPath,
			fmt.Errorf("%w: %d", errHandleCount, len(resp.Handles)))
	}
	return &fhe.EncryptedPayload{
		Ciphertext: fhe.Handle(resp.Handles[0]),
		Proof:      resp.InputProof,
	}, nil
}

func (c *Client) PublicDecrypt(ctx context.Context, handles []fhe.Handle, contract common.Address) (*fhe.DecryptionResult, error) {
	req := PublicDecryptRequest{
		ContractAddress: contract,
		Handles:         make([]common.Hash, len(handles)),
	}
	for i, h := range handles {
		req.Handles[i] = common.Hash(h)
	}

	var resp PublicDecryptResponse
	if err := c.do(ctx, http.MethodPost, PublicDecryptPath, req, &resp, whisper.KindChainRejected); err != nil {
		return nil, err
	}

	result := &fhe.DecryptionResult{
		ClearValues:           make(map[fhe.Handle]uint64, len(handles)),
		AbiEncodedClearValues: resp.AbiEncodedClearValues,
		DecryptionProof:       resp.DecryptionProof,
	}
	for _, h := range handles {
		dec, ok := resp.ClearValues[common.Hash(h)]
		if !ok {
			return nil, whisper.NewError(whisper.KindNetworkFailure, PublicDecryptPath,
				fmt.Errorf("%w %s", errMissingHandle, common.Hash(h)))
		}
		v, err := uint256.FromDecimal(dec)
		if err != nil || !v.IsUint64() {
			return nil, whisper.NewError(whisper.KindNetworkFailure, PublicDecryptPath,
				fmt.Errorf("%w %q for handle %s", errInvalidDecimals, dec, common.Hash(h)))
		}
		result.ClearValues[h] = v.Uint64()
	}
	return result, nil
}

// do performs one JSON round trip. Transport failures and 5xx responses are
// network failures; 4xx responses carry rejectKind, unless the relayer
// reports the record as already verified.
func (c *Client) do(ctx context.Context, method, path string, body, out any, rejectKind whisper.ErrorKind) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return whisper.NewError(whisper.KindNetworkFailure, path, err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return whisper.NewError(whisper.KindNetworkFailure, path, err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		msg := res.Status
		var errResp ErrorResponse
		if json.Unmarshal(payload, &errResp) == nil && errResp.Message != "" {
			msg = errResp.Message
		}
		c.logger.Debug("Relayer request failed",
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
			zap.String("message", msg),
		)
		kind := rejectKind
		switch {
		case strings.Contains(strings.ToLower(msg), "already verified"):
			kind = whisper.KindAlreadyVerified
		case res.StatusCode >= http.StatusInternalServerError:
			kind = whisper.KindNetworkFailure
		}
		return whisper.Errorf(kind, path, "%s", msg)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return whisper.NewError(whisper.KindNetworkFailure, path, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
