package exchange

import (
	"github.com/banky/hyperliquid-exec/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Action is the closed set of operations the exchange accepts. Struct
// field order is the wire order: the L1 hash is taken over the encoded
// bytes, so fields must never be reordered.
type Action interface {
	// Kind names the operation, for logs and metrics.
	Kind() string
	accept(v actionVisitor)
}

// actionVisitor has one method per action kind. Adding a kind means
// adding a method here, which breaks every visitor until it is handled.
type actionVisitor interface {
	visitOrder(*OrderAction)
	visitCancel(*CancelAction)
	visitCancelByCloid(*CancelByCloidAction)
	visitCancelAll(*CancelAllAction)
	visitScheduleCancel(*ScheduleCancelAction)
	visitModify(*ModifyAction)
	visitBatchModify(*BatchModifyAction)
	visitTwapOrder(*TwapOrderAction)
	visitTwapCancel(*TwapCancelAction)
	visitUpdateLeverage(*UpdateLeverageAction)
	visitUpdateIsolatedMargin(*UpdateIsolatedMarginAction)
	visitReserveRequestWeight(*ReserveRequestWeightAction)
	visitCreateSubAccount(*CreateSubAccountAction)
	visitSubAccountTransfer(*SubAccountTransferAction)
	visitSpotSend(*SpotSendAction)
	visitApproveBuilderFee(*ApproveBuilderFeeAction)
	visitUserPortfolioMargin(*UserPortfolioMarginAction)
	visitUserDexAbstraction(*UserDexAbstractionAction)
	visitUserSetAbstraction(*UserSetAbstractionAction)
}

// userSignedAction is implemented by account-level actions signed with
// their own EIP-712 schema instead of the phantom agent.
type userSignedAction interface {
	Action
	schema() userSignedSchema
	typedMessage() apitypes.TypedDataMessage
}

// ============================================================================
// Orders
// ============================================================================

type OrderGrouping string

const (
	OrderGroupingNA           OrderGrouping = "na"
	OrderGroupingNormalTpSl   OrderGrouping = "normalTpsl"
	OrderGroupingPositionTpSl OrderGrouping = "positionTpsl"
)

type LimitWire struct {
	Tif Tif `json:"tif"`
}

type TriggerWire struct {
	IsMarket  bool   `json:"isMarket"`
	TriggerPx string `json:"triggerPx"`
	TpSl      TpSl   `json:"tpsl"`
}

// OrderTypeWire holds exactly one of Limit or Trigger.
type OrderTypeWire struct {
	Limit   *LimitWire   `json:"limit,omitempty"`
	Trigger *TriggerWire `json:"trigger,omitempty"`
}

type OrderWire struct {
	A int64         `json:"a"`
	B bool          `json:"b"`
	P string        `json:"p"`
	S string        `json:"s"`
	R bool          `json:"r"`
	T OrderTypeWire `json:"t"`
	C *types.Cloid  `json:"c,omitempty"`
}

type BuilderInfo struct {
	// Lower-case builder address
	B string `json:"b"`
	// Fee in tenths of a basis point
	F int64 `json:"f"`
}

type OrderAction struct {
	Type     string        `json:"type"`
	Orders   []OrderWire   `json:"orders"`
	Grouping OrderGrouping `json:"grouping"`
	Builder  *BuilderInfo  `json:"builder,omitempty"`
}

func (a *OrderAction) Kind() string           { return "order" }
func (a *OrderAction) accept(v actionVisitor) { v.visitOrder(a) }

// ============================================================================
// Cancels
// ============================================================================

type CancelWire struct {
	A int64 `json:"a"`
	O int64 `json:"o"`
}

type CancelAction struct {
	Type    string       `json:"type"`
	Cancels []CancelWire `json:"cancels"`
}

func (a *CancelAction) Kind() string           { return "cancel" }
func (a *CancelAction) accept(v actionVisitor) { v.visitCancel(a) }

type CancelByCloidWire struct {
	Asset int64       `json:"asset"`
	Cloid types.Cloid `json:"cloid"`
}

type CancelByCloidAction struct {
	Type    string              `json:"type"`
	Cancels []CancelByCloidWire `json:"cancels"`
}

func (a *CancelByCloidAction) Kind() string           { return "cancelByCloid" }
func (a *CancelByCloidAction) accept(v actionVisitor) { v.visitCancelByCloid(a) }

// CancelAllAction cancels every listed open order. It goes over the wire
// as a plain "cancel".
type CancelAllAction struct {
	Type    string       `json:"type"`
	Cancels []CancelWire `json:"cancels"`
}

func (a *CancelAllAction) Kind() string           { return "cancelAll" }
func (a *CancelAllAction) accept(v actionVisitor) { v.visitCancelAll(a) }

// ScheduleCancelAction arms the dead man's switch. A nil Time disarms it.
type ScheduleCancelAction struct {
	Type string `json:"type"`
	Time *int64 `json:"time,omitempty"`
}

func (a *ScheduleCancelAction) Kind() string           { return "scheduleCancel" }
func (a *ScheduleCancelAction) accept(v actionVisitor) { v.visitScheduleCancel(a) }

// ============================================================================
// Modify
// ============================================================================

// ModifyAction targets an order by oid (int64) or by cloid (types.Cloid).
type ModifyAction struct {
	Type  string    `json:"type"`
	Oid   any       `json:"oid"`
	Order OrderWire `json:"order"`
}

func (a *ModifyAction) Kind() string           { return "modify" }
func (a *ModifyAction) accept(v actionVisitor) { v.visitModify(a) }

type ModifyWire struct {
	Oid   any       `json:"oid"`
	Order OrderWire `json:"order"`
}

type BatchModifyAction struct {
	Type     string       `json:"type"`
	Modifies []ModifyWire `json:"modifies"`
}

func (a *BatchModifyAction) Kind() string           { return "batchModify" }
func (a *BatchModifyAction) accept(v actionVisitor) { v.visitBatchModify(a) }

// ============================================================================
// TWAP
// ============================================================================

type TwapWire struct {
	A int64  `json:"a"`
	B bool   `json:"b"`
	S string `json:"s"`
	R bool   `json:"r"`
	// Duration in minutes
	M int64 `json:"m"`
	// Randomize slice timing
	T bool `json:"t"`
}

type TwapOrderAction struct {
	Type string   `json:"type"`
	Twap TwapWire `json:"twap"`
}

func (a *TwapOrderAction) Kind() string           { return "twapOrder" }
func (a *TwapOrderAction) accept(v actionVisitor) { v.visitTwapOrder(a) }

type TwapCancelAction struct {
	Type string `json:"type"`
	A    int64  `json:"a"`
	T    int64  `json:"t"`
}

func (a *TwapCancelAction) Kind() string           { return "twapCancel" }
func (a *TwapCancelAction) accept(v actionVisitor) { v.visitTwapCancel(a) }

// ============================================================================
// Margin
// ============================================================================

type UpdateLeverageAction struct {
	Type     string `json:"type"`
	Asset    int64  `json:"asset"`
	IsCross  bool   `json:"isCross"`
	Leverage int64  `json:"leverage"`
}

func (a *UpdateLeverageAction) Kind() string           { return "updateLeverage" }
func (a *UpdateLeverageAction) accept(v actionVisitor) { v.visitUpdateLeverage(a) }

type UpdateIsolatedMarginAction struct {
	Type  string `json:"type"`
	Asset int64  `json:"asset"`
	IsBuy bool   `json:"isBuy"`
	// USD scaled by 1e6; negative removes margin
	Ntli int64 `json:"ntli"`
}

func (a *UpdateIsolatedMarginAction) Kind() string           { return "updateIsolatedMargin" }
func (a *UpdateIsolatedMarginAction) accept(v actionVisitor) { v.visitUpdateIsolatedMargin(a) }

type ReserveRequestWeightAction struct {
	Type   string `json:"type"`
	Weight int64  `json:"weight"`
}

func (a *ReserveRequestWeightAction) Kind() string           { return "reserveRequestWeight" }
func (a *ReserveRequestWeightAction) accept(v actionVisitor) { v.visitReserveRequestWeight(a) }

// ============================================================================
// Sub-accounts
// ============================================================================

type CreateSubAccountAction struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func (a *CreateSubAccountAction) Kind() string           { return "createSubAccount" }
func (a *CreateSubAccountAction) accept(v actionVisitor) { v.visitCreateSubAccount(a) }

type SubAccountTransferAction struct {
	Type           string `json:"type"`
	SubAccountUser string `json:"subAccountUser"`
	IsDeposit      bool   `json:"isDeposit"`
	Usd            int64  `json:"usd"`
}

func (a *SubAccountTransferAction) Kind() string           { return "subAccountTransfer" }
func (a *SubAccountTransferAction) accept(v actionVisitor) { v.visitSubAccountTransfer(a) }

// ============================================================================
// User-signed actions
// ============================================================================

type SpotSendAction struct {
	Type             string `json:"type"`
	SignatureChainId string `json:"signatureChainId"`
	HyperliquidChain string `json:"hyperliquidChain"`
	Destination      string `json:"destination"`
	// NAME:tokenId
	Token  string `json:"token"`
	Amount string `json:"amount"`
	Time   int64  `json:"time"`
}

func (a *SpotSendAction) Kind() string           { return "spotSend" }
func (a *SpotSendAction) accept(v actionVisitor) { v.visitSpotSend(a) }
func (a *SpotSendAction) schema() userSignedSchema {
	return spotSendSchema
}

func (a *SpotSendAction) typedMessage() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"hyperliquidChain": a.HyperliquidChain,
		"destination":      a.Destination,
		"token":            a.Token,
		"amount":           a.Amount,
		"time":             uint64Value(a.Time),
	}
}

type ApproveBuilderFeeAction struct {
	Type             string `json:"type"`
	SignatureChainId string `json:"signatureChainId"`
	HyperliquidChain string `json:"hyperliquidChain"`
	// Percentage text, e.g. "0.001%"
	MaxFeeRate string `json:"maxFeeRate"`
	Builder    string `json:"builder"`
	Nonce      int64  `json:"nonce"`
}

func (a *ApproveBuilderFeeAction) Kind() string           { return "approveBuilderFee" }
func (a *ApproveBuilderFeeAction) accept(v actionVisitor) { v.visitApproveBuilderFee(a) }
func (a *ApproveBuilderFeeAction) schema() userSignedSchema {
	return approveBuilderFeeSchema
}

func (a *ApproveBuilderFeeAction) typedMessage() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"hyperliquidChain": a.HyperliquidChain,
		"maxFeeRate":       a.MaxFeeRate,
		"builder":          a.Builder,
		"nonce":            uint64Value(a.Nonce),
	}
}

type UserPortfolioMarginAction struct {
	Type             string `json:"type"`
	SignatureChainId string `json:"signatureChainId"`
	HyperliquidChain string `json:"hyperliquidChain"`
	User             string `json:"user"`
	Enabled          bool   `json:"enabled"`
	Nonce            int64  `json:"nonce"`
}

func (a *UserPortfolioMarginAction) Kind() string           { return "userPortfolioMargin" }
func (a *UserPortfolioMarginAction) accept(v actionVisitor) { v.visitUserPortfolioMargin(a) }
func (a *UserPortfolioMarginAction) schema() userSignedSchema {
	return userPortfolioMarginSchema
}

func (a *UserPortfolioMarginAction) typedMessage() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"hyperliquidChain": a.HyperliquidChain,
		"user":             a.User,
		"enabled":          a.Enabled,
		"nonce":            uint64Value(a.Nonce),
	}
}

type UserDexAbstractionAction struct {
	Type             string `json:"type"`
	SignatureChainId string `json:"signatureChainId"`
	HyperliquidChain string `json:"hyperliquidChain"`
	User             string `json:"user"`
	Enabled          bool   `json:"enabled"`
	Nonce            int64  `json:"nonce"`
}

func (a *UserDexAbstractionAction) Kind() string           { return "userDexAbstraction" }
func (a *UserDexAbstractionAction) accept(v actionVisitor) { v.visitUserDexAbstraction(a) }
func (a *UserDexAbstractionAction) schema() userSignedSchema {
	return userDexAbstractionSchema
}

func (a *UserDexAbstractionAction) typedMessage() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"hyperliquidChain": a.HyperliquidChain,
		"user":             a.User,
		"enabled":          a.Enabled,
		"nonce":            uint64Value(a.Nonce),
	}
}

type UserSetAbstractionAction struct {
	Type             string `json:"type"`
	SignatureChainId string `json:"signatureChainId"`
	HyperliquidChain string `json:"hyperliquidChain"`
	User             string `json:"user"`
	Abstraction      string `json:"abstraction"`
	Nonce            int64  `json:"nonce"`
}

func (a *UserSetAbstractionAction) Kind() string           { return "userSetAbstraction" }
func (a *UserSetAbstractionAction) accept(v actionVisitor) { v.visitUserSetAbstraction(a) }
func (a *UserSetAbstractionAction) schema() userSignedSchema {
	return userSetAbstractionSchema
}

func (a *UserSetAbstractionAction) typedMessage() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"hyperliquidChain": a.HyperliquidChain,
		"user":             a.User,
		"abstraction":      a.Abstraction,
		"nonce":            uint64Value(a.Nonce),
	}
}

// AbstractionMode is the closed set of account abstraction settings. Each
// mode carries its own wire value.
type AbstractionMode interface {
	wire() string
}

type abstractionMode string

func (m abstractionMode) wire() string { return string(m) }

func (m abstractionMode) String() string { return string(m) }

var (
	AbstractionDisabled        AbstractionMode = abstractionMode("disabled")
	AbstractionUnified         AbstractionMode = abstractionMode("unifiedAccount")
	AbstractionPortfolioMargin AbstractionMode = abstractionMode("portfolioMargin")
)

// ============================================================================
// Signing scheme
// ============================================================================

// signingScheme resolves, per kind, whether an action is signed as an L1
// action or with its own user-signed schema.
type signingScheme struct {
	userSigned userSignedAction
}

func schemeOf(a Action) signingScheme {
	var s signingScheme
	a.accept(&s)
	return s
}

func (s *signingScheme) visitOrder(*OrderAction)                               {}
func (s *signingScheme) visitCancel(*CancelAction)                             {}
func (s *signingScheme) visitCancelByCloid(*CancelByCloidAction)               {}
func (s *signingScheme) visitCancelAll(*CancelAllAction)                       {}
func (s *signingScheme) visitScheduleCancel(*ScheduleCancelAction)             {}
func (s *signingScheme) visitModify(*ModifyAction)                             {}
func (s *signingScheme) visitBatchModify(*BatchModifyAction)                   {}
func (s *signingScheme) visitTwapOrder(*TwapOrderAction)                       {}
func (s *signingScheme) visitTwapCancel(*TwapCancelAction)                     {}
func (s *signingScheme) visitUpdateLeverage(*UpdateLeverageAction)             {}
func (s *signingScheme) visitUpdateIsolatedMargin(*UpdateIsolatedMarginAction) {}
func (s *signingScheme) visitReserveRequestWeight(*ReserveRequestWeightAction) {}
func (s *signingScheme) visitCreateSubAccount(*CreateSubAccountAction)         {}
func (s *signingScheme) visitSubAccountTransfer(*SubAccountTransferAction)     {}

func (s *signingScheme) visitSpotSend(a *SpotSendAction)                       { s.userSigned = a }
func (s *signingScheme) visitApproveBuilderFee(a *ApproveBuilderFeeAction)     { s.userSigned = a }
func (s *signingScheme) visitUserPortfolioMargin(a *UserPortfolioMarginAction) { s.userSigned = a }
func (s *signingScheme) visitUserDexAbstraction(a *UserDexAbstractionAction)   { s.userSigned = a }
func (s *signingScheme) visitUserSetAbstraction(a *UserSetAbstractionAction)   { s.userSigned = a }
