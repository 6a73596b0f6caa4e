package constants

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const MAINNET_API_URL = "https://api.hyperliquid.xyz"
const TESTNET_API_URL = "https://api.hyperliquid-testnet.xyz"

// Asset index space offsets
const (
	SPOT_ASSET_OFFSET     = 10_000
	PERP_DEX_ASSET_OFFSET = 100_000
	PERP_DEX_ASSET_STRIDE = 10_000
)

// L1 actions are signed under a fixed phantom-agent domain
const (
	L1_DOMAIN_NAME     = "Exchange"
	L1_DOMAIN_VERSION  = "1"
	L1_DOMAIN_CHAIN_ID = 1337
)

// User-signed actions use the environment's signature chain id
const (
	USER_SIGNED_DOMAIN_NAME    = "HyperliquidSignTransaction"
	USER_SIGNED_DOMAIN_VERSION = "1"
)

// METADATA_TTL bounds how long fetched exchange metadata is trusted
const METADATA_TTL = 5 * time.Minute

var ZERO_ADDRESS = common.Address{}

// Environment selects one of the two fixed exchange deployments.
type Environment string

const (
	Mainnet Environment = "mainnet"
	Testnet Environment = "testnet"
)

// Network holds the static per-environment tables.
type Network struct {
	Environment      Environment
	BaseURL          string
	BridgeAddress    common.Address
	UsdcAddress      common.Address
	SignatureChainId int64
}

var networks = map[Environment]Network{
	Mainnet: {
		Environment:      Mainnet,
		BaseURL:          MAINNET_API_URL,
		BridgeAddress:    common.HexToAddress("0x2Df1c51E09aECF9cacB7bc98cB1742757f163dF7"),
		UsdcAddress:      common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
		SignatureChainId: 0xa4b1,
	},
	Testnet: {
		Environment:      Testnet,
		BaseURL:          TESTNET_API_URL,
		BridgeAddress:    common.HexToAddress("0x08cfc1B6b2dCF36A1480b99353A354AA8AC56f89"),
		UsdcAddress:      common.HexToAddress("0x1baAbB04529D43a73232B713C0FE471f7c7334d5"),
		SignatureChainId: 0x66eee,
	},
}

// NetworkFor returns the built-in table for env.
func NetworkFor(env Environment) (Network, bool) {
	n, ok := networks[env]
	return n, ok
}

// IsMainnet reports whether env is the production deployment.
func (env Environment) IsMainnet() bool {
	return env == Mainnet
}

// ChainName is the hyperliquidChain value carried by user-signed actions.
func (env Environment) ChainName() string {
	if env.IsMainnet() {
		return "Mainnet"
	}
	return "Testnet"
}

// PhantomAgentSource is the "source" field of the L1 phantom agent.
func (env Environment) PhantomAgentSource() string {
	if env.IsMainnet() {
		return "a"
	}
	return "b"
}
