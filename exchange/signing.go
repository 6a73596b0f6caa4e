package exchange

import (
	"context"
	"fmt"
	"math/big"

	"github.com/banky/hyperliquid-exec/constants"
	"github.com/banky/hyperliquid-exec/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/samber/mo"
)

var eip712DomainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// userSignedSchema is the EIP-712 struct an account-level action is signed
// as. Field order and types are part of the wire contract.
type userSignedSchema struct {
	primaryType string
	fields      []apitypes.Type
}

var (
	spotSendSchema = userSignedSchema{
		primaryType: "HyperliquidTransaction:SpotSend",
		fields: []apitypes.Type{
			{Name: "hyperliquidChain", Type: "string"},
			{Name: "destination", Type: "string"},
			{Name: "token", Type: "string"},
			{Name: "amount", Type: "string"},
			{Name: "time", Type: "uint64"},
		},
	}

	approveBuilderFeeSchema = userSignedSchema{
		primaryType: "HyperliquidTransaction:ApproveBuilderFee",
		fields: []apitypes.Type{
			{Name: "hyperliquidChain", Type: "string"},
			{Name: "maxFeeRate", Type: "string"},
			{Name: "builder", Type: "address"},
			{Name: "nonce", Type: "uint64"},
		},
	}

	userPortfolioMarginSchema = userSignedSchema{
		primaryType: "HyperliquidTransaction:UserPortfolioMargin",
		fields: []apitypes.Type{
			{Name: "hyperliquidChain", Type: "string"},
			{Name: "user", Type: "address"},
			{Name: "enabled", Type: "bool"},
			{Name: "nonce", Type: "uint64"},
		},
	}

	userDexAbstractionSchema = userSignedSchema{
		primaryType: "HyperliquidTransaction:UserDexAbstraction",
		fields: []apitypes.Type{
			{Name: "hyperliquidChain", Type: "string"},
			{Name: "user", Type: "address"},
			{Name: "enabled", Type: "bool"},
			{Name: "nonce", Type: "uint64"},
		},
	}

	userSetAbstractionSchema = userSignedSchema{
		primaryType: "HyperliquidTransaction:UserSetAbstraction",
		fields: []apitypes.Type{
			{Name: "hyperliquidChain", Type: "string"},
			{Name: "user", Type: "address"},
			{Name: "abstraction", Type: "string"},
			{Name: "nonce", Type: "uint64"},
		},
	}
)

func constructPhantomAgent(hash common.Hash, env constants.Environment) apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"source":       env.PhantomAgentSource(),
		"connectionId": hash,
	}
}

func l1Payload(phantomAgent apitypes.TypedDataMessage) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": eip712DomainType,
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              constants.L1_DOMAIN_NAME,
			Version:           constants.L1_DOMAIN_VERSION,
			ChainId:           math.NewHexOrDecimal256(constants.L1_DOMAIN_CHAIN_ID),
			VerifyingContract: constants.ZERO_ADDRESS.Hex(),
		},
		Message: phantomAgent,
	}
}

func userSignedPayload(
	schema userSignedSchema,
	signatureChainId int64,
	message apitypes.TypedDataMessage,
) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain":     eip712DomainType,
			schema.primaryType: schema.fields,
		},
		PrimaryType: schema.primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              constants.USER_SIGNED_DOMAIN_NAME,
			Version:           constants.USER_SIGNED_DOMAIN_VERSION,
			ChainId:           math.NewHexOrDecimal256(signatureChainId),
			VerifyingContract: constants.ZERO_ADDRESS.Hex(),
		},
		Message: message,
	}
}

// signL1Action signs the phantom agent wrapping the action hash.
func signL1Action(
	ctx context.Context,
	s signer.Signer,
	env constants.Environment,
	action Action,
	nonce int64,
	vaultAddress mo.Option[common.Address],
	expiresAfter mo.Option[int64],
) (Signature, error) {
	hash, err := ActionHash(action, nonce, vaultAddress, expiresAfter)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to create action hash: %w", err)
	}

	return signTypedData(ctx, s, l1Payload(constructPhantomAgent(hash, env)))
}

// signUserSignedAction signs an account-level action under the
// HyperliquidSignTransaction domain.
func signUserSignedAction(
	ctx context.Context,
	s signer.Signer,
	signatureChainId int64,
	action userSignedAction,
) (Signature, error) {
	payload := userSignedPayload(action.schema(), signatureChainId, action.typedMessage())
	return signTypedData(ctx, s, payload)
}

func signTypedData(ctx context.Context, s signer.Signer, data apitypes.TypedData) (Signature, error) {
	raw, err := s.SignTypedData(ctx, data)
	if err != nil {
		return Signature{}, fmt.Errorf("sign typed data: %w", err)
	}
	return SplitSignature(raw)
}

// EIP-712 uint64 values are carried as big integers.
func uint64Value(v int64) *big.Int {
	return new(big.Int).SetUint64(uint64(v))
}

func chainIdHex(id int64) string {
	return hexutil.EncodeUint64(uint64(id))
}
