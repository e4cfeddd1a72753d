// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/luxfi/geth/common"
	"go.uber.org/zap/zapcore"
)

const (
	defaultLogLevel            = "info"
	defaultRelayerTimeout      = 30 * time.Second
	defaultSuccessResetDelay   = 2 * time.Second
	defaultErrorResetDelay     = 3 * time.Second
	defaultReceiptPollInterval = 500 * time.Millisecond
	defaultHandleCacheSize     = 1024
	defaultAPIPort             = 8080
	defaultAPIRateLimit        = 5.0
	defaultAPIRateBurst        = 10
	defaultHealthCacheTTL      = 10 * time.Second
)

var (
	errMissingRPCURL       = errors.New("rpc-url is required")
	errMissingRelayerURL   = errors.New("relayer-url is required")
	errInvalidContract     = errors.New("contract-address must be a non-zero hex address")
	errInvalidResetDelay   = errors.New("status reset delays must be positive")
	errInvalidPollInterval = errors.New("receipt-poll-interval must be positive")
	errNegativeTimeout     = errors.New("timeouts must not be negative")
	errInvalidCacheSize    = errors.New("handle-cache-size must be positive")
	errInvalidRateLimit    = errors.New("api-rate-limit must not be negative and api-rate-burst must be positive")
)

// Config is the client configuration. Every field maps to a flag, an
// environment variable and a config file key of the same name.
type Config struct {
	LogLevel            string        `mapstructure:"log-level" json:"log-level"`
	RPCURL              string        `mapstructure:"rpc-url" json:"rpc-url"`
	ContractAddress     string        `mapstructure:"contract-address" json:"contract-address"`
	PrivateKey          string        `mapstructure:"private-key" json:"-"`
	RelayerURL          string        `mapstructure:"relayer-url" json:"relayer-url"`
	RelayerTimeout      time.Duration `mapstructure:"relayer-timeout" json:"relayer-timeout"`
	SuccessResetDelay   time.Duration `mapstructure:"success-reset-delay" json:"success-reset-delay"`
	ErrorResetDelay     time.Duration `mapstructure:"error-reset-delay" json:"error-reset-delay"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt-poll-interval" json:"receipt-poll-interval"`
	// Zero waits for inclusion without a deadline.
	TxInclusionTimeout time.Duration `mapstructure:"tx-inclusion-timeout" json:"tx-inclusion-timeout"`
	HandleCacheSize    int           `mapstructure:"handle-cache-size" json:"handle-cache-size"`
	APIPort            uint16        `mapstructure:"api-port" json:"api-port"`
	// APIRateLimit is requests per second per client on mutating routes.
	// Zero disables rate limiting.
	APIRateLimit   float64       `mapstructure:"api-rate-limit" json:"api-rate-limit"`
	APIRateBurst   int           `mapstructure:"api-rate-burst" json:"api-rate-burst"`
	HealthCacheTTL time.Duration `mapstructure:"health-cache-ttl" json:"health-cache-ttl"`
}

func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log-level: %w", err)
	}
	if c.RPCURL == "" {
		return errMissingRPCURL
	}
	if _, err := url.Parse(c.RPCURL); err != nil {
		return fmt.Errorf("invalid rpc-url: %w", err)
	}
	if c.RelayerURL == "" {
		return errMissingRelayerURL
	}
	if u, err := url.Parse(c.RelayerURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid relayer-url %q", c.RelayerURL)
	}
	if !common.IsHexAddress(c.ContractAddress) || c.Address() == (common.Address{}) {
		return errInvalidContract
	}
	if c.SuccessResetDelay <= 0 || c.ErrorResetDelay <= 0 {
		return errInvalidResetDelay
	}
	if c.ReceiptPollInterval <= 0 {
		return errInvalidPollInterval
	}
	if c.TxInclusionTimeout < 0 || c.RelayerTimeout < 0 || c.HealthCacheTTL < 0 {
		return errNegativeTimeout
	}
	if c.HandleCacheSize <= 0 {
		return errInvalidCacheSize
	}
	if c.APIRateLimit < 0 || (c.APIRateLimit > 0 && c.APIRateBurst <= 0) {
		return errInvalidRateLimit
	}
	return nil
}

// Address is the parsed contract address.
func (c *Config) Address() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// HasSigner reports whether a private key was configured. Without one the
// client is read only.
func (c *Config) HasSigner() bool {
	return c.PrivateKey != ""
}

func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
