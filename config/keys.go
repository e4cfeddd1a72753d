// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	EnvFileKey    = "env-file"

	// Environment variables are the upper cased keys with this prefix, for
	// example WHISPER_RPC_URL.
	EnvPrefix = "WHISPER"

	// Top-level configuration keys
	LogLevelKey            = "log-level"
	RPCURLKey              = "rpc-url"
	ContractAddressKey     = "contract-address"
	PrivateKeyKey          = "private-key"
	RelayerURLKey          = "relayer-url"
	RelayerTimeoutKey      = "relayer-timeout"
	SuccessResetDelayKey   = "success-reset-delay"
	ErrorResetDelayKey     = "error-reset-delay"
	ReceiptPollIntervalKey = "receipt-poll-interval"
	TxInclusionTimeoutKey  = "tx-inclusion-timeout"
	HandleCacheSizeKey     = "handle-cache-size"
	APIPortKey             = "api-port"
	APIRateLimitKey        = "api-rate-limit"
	APIRateBurstKey        = "api-rate-burst"
	HealthCacheTTLKey      = "health-cache-ttl"
)
