// Package config layers environment overrides over the built-in network
// tables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/banky/hyperliquid-exec/constants"
	"github.com/banky/hyperliquid-exec/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix          = "HYPERLIQUID"
	DefaultHTTPTimeout = 10 * time.Second
)

// Config is the resolved client configuration.
type Config struct {
	Network     constants.Network
	HTTPTimeout time.Duration
	KMS         KMSConfig
}

// KMSConfig locates the KMS endpoint used to decrypt a sealed key.
type KMSConfig struct {
	Region   string
	Endpoint string
}

// Load reads overrides from HYPERLIQUID_* variables, after loading any
// dotenv files (".env" when none are named). Variables already set in the
// process win over dotenv values. An empty env reads HYPERLIQUID_ENVIRONMENT
// and falls back to mainnet.
//
// Network overrides are keyed by environment, e.g.
// HYPERLIQUID_TESTNET_BASE_URL or HYPERLIQUID_MAINNET_SIGNATURE_CHAIN_ID.
func Load(env constants.Environment, dotenvFiles ...string) (*Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", string(constants.Mainnet))
	v.SetDefault("http_timeout", int(DefaultHTTPTimeout/time.Second))
	v.SetDefault("kms.region", "us-east-1")

	if env == "" {
		env = constants.Environment(strings.ToLower(strings.TrimSpace(v.GetString("environment"))))
	}
	network, ok := constants.NetworkFor(env)
	if !ok {
		return nil, types.NewValidationError("environment", "unknown environment %q", env)
	}

	prefix := string(env) + "."

	if raw := strings.TrimSpace(v.GetString(prefix + "base_url")); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, types.NewValidationError("base_url", "must be an absolute http(s) URL, got %q", raw)
		}
		network.BaseURL = strings.TrimRight(raw, "/")
	}

	var err error
	if network.BridgeAddress, err = addressOverride(v, prefix+"bridge_address", network.BridgeAddress); err != nil {
		return nil, err
	}
	if network.UsdcAddress, err = addressOverride(v, prefix+"usdc_address", network.UsdcAddress); err != nil {
		return nil, err
	}

	if raw := strings.TrimSpace(v.GetString(prefix + "signature_chain_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 0, 64)
		if err != nil || id <= 0 {
			return nil, types.NewValidationError("signature_chain_id", "must be a positive integer, got %q", raw)
		}
		network.SignatureChainId = id
	}

	timeout, err := strconv.ParseFloat(strings.TrimSpace(v.GetString("http_timeout")), 64)
	if err != nil || timeout < 0 {
		return nil, types.NewValidationError("http_timeout", "must be a non-negative number of seconds, got %q", v.GetString("http_timeout"))
	}

	return &Config{
		Network:     network,
		HTTPTimeout: time.Duration(timeout * float64(time.Second)),
		KMS: KMSConfig{
			Region:   v.GetString("kms.region"),
			Endpoint: v.GetString("kms.endpoint"),
		},
	}, nil
}

func addressOverride(v *viper.Viper, key string, current common.Address) (common.Address, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return current, nil
	}
	addr, err := types.NormalizeAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", key, err)
	}
	return common.HexToAddress(addr), nil
}
