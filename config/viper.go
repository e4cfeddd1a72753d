// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func NewConfig(v *viper.Viper) (Config, error) {
	cfg, err := BuildConfig(v)
	if err != nil {
		return cfg, err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

// AddFlags registers every configuration key on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(ConfigFileKey, "", "Path to a JSON or YAML config file")
	fs.String(EnvFileKey, "", "Path to a .env file loaded before reading the environment")
	fs.String(LogLevelKey, defaultLogLevel, "Log level (debug, info, warn, error)")
	fs.String(RPCURLKey, "", "JSON-RPC endpoint of the chain")
	fs.String(ContractAddressKey, "", "Address of the message board contract")
	fs.String(PrivateKeyKey, "", "Hex private key used to sign transactions")
	fs.String(RelayerURLKey, "", "Base URL of the FHE relayer")
	fs.Duration(RelayerTimeoutKey, defaultRelayerTimeout, "Timeout of a single relayer request")
	fs.Duration(SuccessResetDelayKey, defaultSuccessResetDelay, "Delay before a success status resets to idle")
	fs.Duration(ErrorResetDelayKey, defaultErrorResetDelay, "Delay before an error status resets to idle")
	fs.Duration(ReceiptPollIntervalKey, defaultReceiptPollInterval, "Initial interval between receipt polls")
	fs.Duration(TxInclusionTimeoutKey, 0, "Maximum time to wait for a transaction receipt, 0 waits indefinitely")
	fs.Int(HandleCacheSizeKey, defaultHandleCacheSize, "Number of ciphertext handles to cache")
	fs.Uint16(APIPortKey, defaultAPIPort, "Port of the HTTP API served by 'serve'")
	fs.Float64(APIRateLimitKey, defaultAPIRateLimit, "Requests per second per client on mutating routes, 0 disables")
	fs.Int(APIRateBurstKey, defaultAPIRateBurst, "Burst size of the per client rate limit")
	fs.Duration(HealthCacheTTLKey, defaultHealthCacheTTL, "How long a contract availability result is reused by /health")
}

// BuildViper binds flags and environment variables. A config file is read when
// one is provided.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Map flag names to env var names. Flags are capitalized, and hyphens are replaced with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if filename := v.GetString(ConfigFileKey); filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		}
	}
	return v, nil
}

func SetDefaultConfigValues(v *viper.Viper) {
	v.SetDefault(LogLevelKey, defaultLogLevel)
	v.SetDefault(RelayerTimeoutKey, defaultRelayerTimeout)
	v.SetDefault(SuccessResetDelayKey, defaultSuccessResetDelay)
	v.SetDefault(ErrorResetDelayKey, defaultErrorResetDelay)
	v.SetDefault(ReceiptPollIntervalKey, defaultReceiptPollInterval)
	v.SetDefault(HandleCacheSizeKey, defaultHandleCacheSize)
	v.SetDefault(APIPortKey, defaultAPIPort)
	v.SetDefault(APIRateLimitKey, defaultAPIRateLimit)
	v.SetDefault(APIRateBurstKey, defaultAPIRateBurst)
	v.SetDefault(HealthCacheTTLKey, defaultHealthCacheTTL)
}

// BuildConfig constructs the config using Viper.
// The following precedence order is used. Each item takes precedence over the item below it:
//  1. Flags
//  2. Environment variables
//  3. Config file
//  4. Defaults
func BuildConfig(v *viper.Viper) (Config, error) {
	SetDefaultConfigValues(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal viper config: %w", err)
	}
	return cfg, nil
}
