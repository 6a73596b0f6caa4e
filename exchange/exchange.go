package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/banky/hyperliquid-exec/cache"
	"github.com/banky/hyperliquid-exec/constants"
	"github.com/banky/hyperliquid-exec/info"
	"github.com/banky/hyperliquid-exec/internal/metrics"
	"github.com/banky/hyperliquid-exec/internal/utils"
	"github.com/banky/hyperliquid-exec/nonce"
	"github.com/banky/hyperliquid-exec/resolver"
	"github.com/banky/hyperliquid-exec/rest"
	"github.com/banky/hyperliquid-exec/signer"
	"github.com/banky/hyperliquid-exec/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Config for initializing the Exchange client
type Config struct {
	// Environment defaults to mainnet. Ignored when Network is set.
	Environment constants.Environment
	// Network replaces the built-in tables, e.g. with config.Load output
	Network *constants.Network
	// BaseURL overrides the network's API URL
	BaseURL string
	Timeout time.Duration

	// Signer is required
	Signer signer.Signer
	// NonceSource is used when Signer does not provide one
	NonceSource nonce.Source
	// VaultAddress, when non-zero, makes L1 actions act for that vault
	VaultAddress common.Address

	Logger logrus.FieldLogger
	// Markets may be shared between clients. A private cache is created
	// when nil.
	Markets *cache.MarketCache
	// Books serves tick size lookups, defaulting to the REST info client
	Books BookSource
}

// Exchange signs and submits actions to the /exchange endpoint.
type Exchange struct {
	network  constants.Network
	rest     rest.ClientInterface
	info     *info.Info
	resolver *resolver.Resolver
	books    BookSource
	signer   signer.Signer
	nonces   nonce.Source
	vault    mo.Option[common.Address]
	log      logrus.FieldLogger

	mu           sync.RWMutex
	expiresAfter mo.Option[int64]
}

// New creates a new Exchange client
func New(cfg Config) (*Exchange, error) {
	if cfg.Signer == nil {
		return nil, types.NewValidationError("signer", "is required")
	}

	network, err := resolveNetwork(cfg)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	restClient := rest.New(rest.Config{
		BaseUrl: network.BaseURL,
		Timeout: cfg.Timeout,
		Logger:  log,
	})
	infoClient := info.NewWithClient(restClient)

	markets := cfg.Markets
	if markets == nil {
		markets = cache.New(cache.Config{Logger: log})
	}

	books := cfg.Books
	if books == nil {
		books = infoClient
	}

	var vault mo.Option[common.Address]
	if cfg.VaultAddress != constants.ZERO_ADDRESS {
		vault = mo.Some(cfg.VaultAddress)
	}

	return &Exchange{
		network:  network,
		rest:     restClient,
		info:     infoClient,
		resolver: resolver.New(network.Environment, infoClient, markets),
		books:    books,
		signer:   cfg.Signer,
		nonces:   cfg.NonceSource,
		vault:    vault,
		log:      log.WithField("component", "exchange"),
	}, nil
}

func resolveNetwork(cfg Config) (constants.Network, error) {
	var network constants.Network
	if cfg.Network != nil {
		network = *cfg.Network
	} else {
		env := cfg.Environment
		if env == "" {
			env = constants.Mainnet
		}
		n, ok := constants.NetworkFor(env)
		if !ok {
			return constants.Network{}, types.NewValidationError("environment", "unknown environment %q", env)
		}
		network = n
	}

	if cfg.BaseURL != "" {
		network.BaseURL = cfg.BaseURL
	}
	return network, nil
}

func (e *Exchange) Network() constants.Network { return e.network }

func (e *Exchange) Info() *info.Info { return e.info }

func (e *Exchange) Resolver() *resolver.Resolver { return e.resolver }

// Address is the signing wallet.
func (e *Exchange) Address() common.Address { return e.signer.Address() }

// SetExpiresAfter sets the expiry (unix ms) of subsequent L1 actions.
// User-signed actions never carry it.
func (e *Exchange) SetExpiresAfter(ms int64) {
	e.mu.Lock()
	e.expiresAfter = mo.Some(ms)
	e.mu.Unlock()
}

func (e *Exchange) ClearExpiresAfter() {
	e.mu.Lock()
	e.expiresAfter = mo.None[int64]()
	e.mu.Unlock()
}

/*//////////////////////////////////////////////////////////////
                             ORDERS
//////////////////////////////////////////////////////////////*/

// PlaceOrders submits intents as one order action. Statuses come back in
// the same order.
func (e *Exchange) PlaceOrders(ctx context.Context, intents []OrderIntent, opts ...Option) (OrderResponse, error) {
	if len(intents) == 0 {
		return nil, types.NewValidationError("orders", "at least one order is required")
	}
	cfg := applyOptions(opts)

	var builder *BuilderInfo
	if b, ok := cfg.builder.Get(); ok {
		normalized, err := normalizeBuilder(b)
		if err != nil {
			return nil, err
		}
		builder = &normalized
	}

	wires := make([]OrderWire, len(intents))
	for i, intent := range intents {
		wire, err := e.buildOrderWire(ctx, intent)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		wires[i] = wire
	}

	action := &OrderAction{
		Type:     "order",
		Orders:   wires,
		Grouping: cfg.grouping.OrElse(OrderGroupingNA),
		Builder:  builder,
	}

	return submit[OrderResponse](ctx, e, cfg, action)
}

func (e *Exchange) PlaceOrder(ctx context.Context, intent OrderIntent, opts ...Option) (OrderStatus, error) {
	statuses, err := e.PlaceOrders(ctx, []OrderIntent{intent}, opts...)
	if err != nil {
		return OrderStatus{}, err
	}
	return firstStatus(statuses)
}

// MarketOrder sends an Ioc limit order priced slippageBps through the
// current mid. The mid is always fetched fresh unless WithMarkPrice is
// given.
func (e *Exchange) MarketOrder(
	ctx context.Context,
	symbol string,
	side Side,
	size any,
	opts ...Option,
) (OrderStatus, error) {
	cfg := applyOptions(opts)

	mark, ok := cfg.markPrice.Get()
	if !ok {
		mids, err := e.info.AllMids(ctx, utils.GetDex(symbol))
		if err != nil {
			return OrderStatus{}, fmt.Errorf("failed to fetch mid prices: %w", err)
		}
		mid, err := e.lookupMid(ctx, symbol, mids)
		if err != nil {
			return OrderStatus{}, err
		}
		mark = mid.InexactFloat64()
	}

	px, err := ComputeMarketIocLimitPrice(mark, side, cfg.slippageBps, cfg.priceDecimals)
	if err != nil {
		return OrderStatus{}, err
	}

	return e.PlaceOrder(ctx, OrderIntent{
		Symbol:      symbol,
		Side:        side,
		Price:       px,
		Size:        size,
		TimeInForce: Ioc,
	}, opts...)
}

// MidPrice returns the mid of symbol from the market cache.
func (e *Exchange) MidPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	mids, err := e.resolver.Markets().AllMids(ctx, e.resolver.Scope(), utils.GetDex(symbol))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to fetch mid prices: %w", err)
	}
	return e.lookupMid(ctx, symbol, mids)
}

func (e *Exchange) lookupMid(ctx context.Context, symbol string, mids map[string]string) (decimal.Decimal, error) {
	coin, err := e.resolver.CoinName(ctx, symbol)
	if err != nil {
		return decimal.Decimal{}, err
	}

	candidates := []string{coin}
	if dex := utils.GetDex(symbol); dex != "" && !strings.Contains(coin, ":") {
		candidates = append(candidates, dex+":"+coin)
	}

	for _, c := range candidates {
		if text, ok := mids[c]; ok {
			mid, err := decimal.NewFromString(text)
			if err != nil {
				return decimal.Decimal{}, fmt.Errorf("invalid mid price %q for %s: %w", text, coin, err)
			}
			return mid, nil
		}
	}
	return decimal.Decimal{}, types.NewValidationError("symbol", "no mid price for %q", symbol)
}

// TickSize derives the price increment of symbol from its live book.
func (e *Exchange) TickSize(ctx context.Context, symbol string) (decimal.Decimal, error) {
	coin, err := e.resolver.CoinName(ctx, symbol)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return DeriveTickSize(ctx, e.books, coin)
}

/*//////////////////////////////////////////////////////////////
                            CANCELS
//////////////////////////////////////////////////////////////*/

type CancelRequest struct {
	Symbol string
	Oid    int64
}

type CancelByCloidRequest struct {
	Symbol string
	Cloid  string
}

func (e *Exchange) Cancel(ctx context.Context, cancels []CancelRequest, opts ...Option) (CancelResponse, error) {
	if len(cancels) == 0 {
		return nil, types.NewValidationError("cancels", "at least one cancel is required")
	}

	wires := make([]CancelWire, len(cancels))
	for i, c := range cancels {
		asset, err := e.resolver.ResolveAssetIndex(ctx, c.Symbol)
		if err != nil {
			return nil, fmt.Errorf("cancel %d: %w", i, err)
		}
		wires[i] = CancelWire{A: asset, O: c.Oid}
	}

	return submit[CancelResponse](ctx, e, applyOptions(opts), &CancelAction{
		Type:    "cancel",
		Cancels: wires,
	})
}

func (e *Exchange) CancelByCloid(ctx context.Context, cancels []CancelByCloidRequest, opts ...Option) (CancelResponse, error) {
	if len(cancels) == 0 {
		return nil, types.NewValidationError("cancels", "at least one cancel is required")
	}

	wires := make([]CancelByCloidWire, len(cancels))
	for i, c := range cancels {
		cloid, err := types.ParseCloid(c.Cloid)
		if err != nil {
			return nil, fmt.Errorf("cancel %d: %w", i, err)
		}
		asset, err := e.resolver.ResolveAssetIndex(ctx, c.Symbol)
		if err != nil {
			return nil, fmt.Errorf("cancel %d: %w", i, err)
		}
		wires[i] = CancelByCloidWire{Asset: asset, Cloid: cloid}
	}

	return submit[CancelResponse](ctx, e, applyOptions(opts), &CancelByCloidAction{
		Type:    "cancelByCloid",
		Cancels: wires,
	})
}

// CancelAll cancels every open order of the acting account (the vault when
// one is set), optionally limited to symbol. Nothing is submitted when
// there is nothing to cancel.
func (e *Exchange) CancelAll(ctx context.Context, symbol string, opts ...Option) (CancelResponse, error) {
	cfg := applyOptions(opts)

	user := e.signer.Address()
	if v, ok := e.vaultFor(cfg).Get(); ok {
		user = v
	}

	var only mo.Option[resolver.Market]
	if symbol != "" {
		m, err := e.resolver.Resolve(ctx, symbol)
		if err != nil {
			return nil, err
		}
		only = mo.Some(m)
	}

	orders, err := e.info.OpenOrders(ctx, strings.ToLower(user.Hex()), utils.GetDex(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open orders: %w", err)
	}

	var wires []CancelWire
	for _, o := range orders {
		if m, ok := only.Get(); ok {
			if !sameCoin(o.Coin, m.Coin) {
				continue
			}
			wires = append(wires, CancelWire{A: m.Index, O: o.Oid})
			continue
		}

		asset, err := e.resolver.ResolveAssetIndex(ctx, o.Coin)
		if err != nil {
			return nil, fmt.Errorf("open order %d: %w", o.Oid, err)
		}
		wires = append(wires, CancelWire{A: asset, O: o.Oid})
	}

	if len(wires) == 0 {
		e.log.WithField("symbol", symbol).Debug("no open orders to cancel")
		return CancelResponse{}, nil
	}

	return submit[CancelResponse](ctx, e, cfg, &CancelAllAction{
		Type:    "cancel",
		Cancels: wires,
	})
}

func sameCoin(orderCoin, coin string) bool {
	if strings.EqualFold(orderCoin, coin) {
		return true
	}
	_, bare, ok := strings.Cut(orderCoin, ":")
	return ok && strings.EqualFold(bare, coin)
}

// ScheduleCancel arms the dead man's switch for at, or disarms it when at
// is absent.
func (e *Exchange) ScheduleCancel(ctx context.Context, at mo.Option[time.Time], opts ...Option) (DefaultResponse, error) {
	action := &ScheduleCancelAction{Type: "scheduleCancel"}
	if t, ok := at.Get(); ok {
		ms := t.UnixMilli()
		action.Time = &ms
	}
	return submit[DefaultResponse](ctx, e, applyOptions(opts), action)
}

/*//////////////////////////////////////////////////////////////
                             MODIFY
//////////////////////////////////////////////////////////////*/

// ModifyRequest targets an order by exactly one of Oid or Cloid.
type ModifyRequest struct {
	Oid   mo.Option[int64]
	Cloid string
	Order OrderIntent
}

func (e *Exchange) modifyWire(ctx context.Context, req ModifyRequest) (ModifyWire, error) {
	oid, hasOid := req.Oid.Get()
	if hasOid == (req.Cloid != "") {
		return ModifyWire{}, types.NewValidationError("oid", "exactly one of oid or cloid is required")
	}

	var target any = oid
	if !hasOid {
		cloid, err := types.ParseCloid(req.Cloid)
		if err != nil {
			return ModifyWire{}, err
		}
		target = cloid
	}

	order, err := e.buildOrderWire(ctx, req.Order)
	if err != nil {
		return ModifyWire{}, err
	}
	return ModifyWire{Oid: target, Order: order}, nil
}

func (e *Exchange) Modify(ctx context.Context, req ModifyRequest, opts ...Option) (DefaultResponse, error) {
	wire, err := e.modifyWire(ctx, req)
	if err != nil {
		return DefaultResponse{}, err
	}
	return submit[DefaultResponse](ctx, e, applyOptions(opts), &ModifyAction{
		Type:  "modify",
		Oid:   wire.Oid,
		Order: wire.Order,
	})
}

func (e *Exchange) BatchModify(ctx context.Context, reqs []ModifyRequest, opts ...Option) (OrderResponse, error) {
	if len(reqs) == 0 {
		return nil, types.NewValidationError("modifies", "at least one modify is required")
	}

	wires := make([]ModifyWire, len(reqs))
	for i, req := range reqs {
		wire, err := e.modifyWire(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("modify %d: %w", i, err)
		}
		wires[i] = wire
	}

	return submit[OrderResponse](ctx, e, applyOptions(opts), &BatchModifyAction{
		Type:     "batchModify",
		Modifies: wires,
	})
}

/*//////////////////////////////////////////////////////////////
                              TWAP
//////////////////////////////////////////////////////////////*/

type TwapRequest struct {
	Symbol     string
	Side       Side
	Size       any
	ReduceOnly bool
	Minutes    int64
	Randomize  bool
}

func (e *Exchange) TwapOrder(ctx context.Context, req TwapRequest, opts ...Option) (TwapOrderResponse, error) {
	if err := req.Side.validate(); err != nil {
		return TwapOrderResponse{}, err
	}
	sz, err := wireDecimal("size", req.Size)
	if err != nil {
		return TwapOrderResponse{}, err
	}
	if req.Minutes <= 0 {
		return TwapOrderResponse{}, types.NewValidationError("minutes", "must be positive, got %d", req.Minutes)
	}

	asset, err := e.resolver.ResolveAssetIndex(ctx, req.Symbol)
	if err != nil {
		return TwapOrderResponse{}, err
	}

	return submit[TwapOrderResponse](ctx, e, applyOptions(opts), &TwapOrderAction{
		Type: "twapOrder",
		Twap: TwapWire{
			A: asset,
			B: req.Side.isBuy(),
			S: sz,
			R: req.ReduceOnly,
			M: req.Minutes,
			T: req.Randomize,
		},
	})
}

func (e *Exchange) TwapCancel(ctx context.Context, symbol string, twapId int64, opts ...Option) (DefaultResponse, error) {
	asset, err := e.resolver.ResolveAssetIndex(ctx, symbol)
	if err != nil {
		return DefaultResponse{}, err
	}
	return submit[DefaultResponse](ctx, e, applyOptions(opts), &TwapCancelAction{
		Type: "twapCancel",
		A:    asset,
		T:    twapId,
	})
}

/*//////////////////////////////////////////////////////////////
                             MARGIN
//////////////////////////////////////////////////////////////*/

func (e *Exchange) UpdateLeverage(
	ctx context.Context,
	symbol string,
	leverage int64,
	isCross bool,
	opts ...Option,
) (DefaultResponse, error) {
	if leverage <= 0 {
		return DefaultResponse{}, types.NewValidationError("leverage", "must be positive, got %d", leverage)
	}
	asset, err := e.resolver.ResolveAssetIndex(ctx, symbol)
	if err != nil {
		return DefaultResponse{}, err
	}
	return submit[DefaultResponse](ctx, e, applyOptions(opts), &UpdateLeverageAction{
		Type:     "updateLeverage",
		Asset:    asset,
		IsCross:  isCross,
		Leverage: leverage,
	})
}

// UpdateIsolatedMargin adds (positive usd) or removes (negative usd)
// isolated margin.
func (e *Exchange) UpdateIsolatedMargin(
	ctx context.Context,
	symbol string,
	usd float64,
	isBuy bool,
	opts ...Option,
) (DefaultResponse, error) {
	ntli, err := utils.FloatToUsdInt(usd)
	if err != nil {
		return DefaultResponse{}, types.NewValidationError("usd", "%v", err)
	}
	if ntli == 0 {
		return DefaultResponse{}, types.NewValidationError("usd", "must not be zero")
	}

	asset, err := e.resolver.ResolveAssetIndex(ctx, symbol)
	if err != nil {
		return DefaultResponse{}, err
	}
	return submit[DefaultResponse](ctx, e, applyOptions(opts), &UpdateIsolatedMarginAction{
		Type:  "updateIsolatedMargin",
		Asset: asset,
		IsBuy: isBuy,
		Ntli:  ntli,
	})
}

func (e *Exchange) ReserveRequestWeight(ctx context.Context, weight int64, opts ...Option) (DefaultResponse, error) {
	if weight <= 0 {
		return DefaultResponse{}, types.NewValidationError("weight", "must be positive, got %d", weight)
	}
	return submit[DefaultResponse](ctx, e, applyOptions(opts), &ReserveRequestWeightAction{
		Type:   "reserveRequestWeight",
		Weight: weight,
	})
}

/*//////////////////////////////////////////////////////////////
                          SUB-ACCOUNTS
//////////////////////////////////////////////////////////////*/

// CreateSubAccount returns the address of the new sub-account.
func (e *Exchange) CreateSubAccount(ctx context.Context, name string, opts ...Option) (common.Address, error) {
	if strings.TrimSpace(name) == "" {
		return common.Address{}, types.NewValidationError("name", "is required")
	}

	resp, err := submit[DefaultResponse](ctx, e, applyOptions(opts), &CreateSubAccountAction{
		Type: "createSubAccount",
		Name: name,
	})
	if err != nil {
		return common.Address{}, err
	}

	var addr string
	if err := json.Unmarshal(resp.Data, &addr); err != nil {
		return common.Address{}, malformedResponse(resp, err)
	}
	normalized, err := types.NormalizeAddress(addr)
	if err != nil {
		return common.Address{}, malformedResponse(resp, err)
	}
	return common.HexToAddress(normalized), nil
}

// SubAccountTransfer moves usd (raw integer units, 1e6 per dollar) between
// the master account and a sub-account.
func (e *Exchange) SubAccountTransfer(
	ctx context.Context,
	subAccountUser string,
	isDeposit bool,
	usd int64,
	opts ...Option,
) (DefaultResponse, error) {
	user, err := types.NormalizeAddress(subAccountUser)
	if err != nil {
		return DefaultResponse{}, err
	}
	if usd <= 0 {
		return DefaultResponse{}, types.NewValidationError("usd", "must be positive, got %d", usd)
	}
	return submit[DefaultResponse](ctx, e, applyOptions(opts), &SubAccountTransferAction{
		Type:           "subAccountTransfer",
		SubAccountUser: user,
		IsDeposit:      isDeposit,
		Usd:            usd,
	})
}

/*//////////////////////////////////////////////////////////////
                       USER-SIGNED ACTIONS
//////////////////////////////////////////////////////////////*/

// SpotSend transfers amount of a spot token to destination.
func (e *Exchange) SpotSend(
	ctx context.Context,
	destination string,
	token string,
	amount any,
	opts ...Option,
) (DefaultResponse, error) {
	dest, err := types.NormalizeAddress(destination)
	if err != nil {
		return DefaultResponse{}, err
	}
	_, amt, err := utils.ParsePositiveDecimal("amount", amount)
	if err != nil {
		return DefaultResponse{}, err
	}
	tok, err := e.resolver.SpotToken(ctx, token)
	if err != nil {
		return DefaultResponse{}, err
	}

	cfg := applyOptions(opts)
	n, err := e.nextNonce(cfg)
	if err != nil {
		return DefaultResponse{}, err
	}

	return send[DefaultResponse](ctx, e, cfg, n, &SpotSendAction{
		Type:             "spotSend",
		SignatureChainId: chainIdHex(e.network.SignatureChainId),
		HyperliquidChain: e.network.Environment.ChainName(),
		Destination:      dest,
		Token:            tok.Name + ":" + tok.TokenId,
		Amount:           amt,
		Time:             n,
	})
}

// ApproveBuilderFee lets builder charge up to maxFeeRate, a percentage
// such as "0.001%".
func (e *Exchange) ApproveBuilderFee(
	ctx context.Context,
	builder string,
	maxFeeRate string,
	opts ...Option,
) (DefaultResponse, error) {
	b, err := types.NormalizeAddress(builder)
	if err != nil {
		return DefaultResponse{}, err
	}
	rate, ok := strings.CutSuffix(strings.TrimSpace(maxFeeRate), "%")
	if !ok {
		return DefaultResponse{}, types.NewValidationError("maxFeeRate", "must be a percentage, got %q", maxFeeRate)
	}
	if _, _, err := utils.ParsePositiveDecimal("maxFeeRate", rate); err != nil {
		return DefaultResponse{}, err
	}

	cfg := applyOptions(opts)
	n, err := e.nextNonce(cfg)
	if err != nil {
		return DefaultResponse{}, err
	}

	return send[DefaultResponse](ctx, e, cfg, n, &ApproveBuilderFeeAction{
		Type:             "approveBuilderFee",
		SignatureChainId: chainIdHex(e.network.SignatureChainId),
		HyperliquidChain: e.network.Environment.ChainName(),
		MaxFeeRate:       strings.TrimSpace(maxFeeRate),
		Builder:          b,
		Nonce:            n,
	})
}

func (e *Exchange) UserPortfolioMargin(ctx context.Context, enabled bool, opts ...Option) (DefaultResponse, error) {
	cfg := applyOptions(opts)
	n, err := e.nextNonce(cfg)
	if err != nil {
		return DefaultResponse{}, err
	}

	return send[DefaultResponse](ctx, e, cfg, n, &UserPortfolioMarginAction{
		Type:             "userPortfolioMargin",
		SignatureChainId: chainIdHex(e.network.SignatureChainId),
		HyperliquidChain: e.network.Environment.ChainName(),
		User:             e.userHex(),
		Enabled:          enabled,
		Nonce:            n,
	})
}

func (e *Exchange) UserDexAbstraction(ctx context.Context, enabled bool, opts ...Option) (DefaultResponse, error) {
	cfg := applyOptions(opts)
	n, err := e.nextNonce(cfg)
	if err != nil {
		return DefaultResponse{}, err
	}

	return send[DefaultResponse](ctx, e, cfg, n, &UserDexAbstractionAction{
		Type:             "userDexAbstraction",
		SignatureChainId: chainIdHex(e.network.SignatureChainId),
		HyperliquidChain: e.network.Environment.ChainName(),
		User:             e.userHex(),
		Enabled:          enabled,
		Nonce:            n,
	})
}

func (e *Exchange) UserSetAbstraction(ctx context.Context, mode AbstractionMode, opts ...Option) (DefaultResponse, error) {
	if mode == nil {
		return DefaultResponse{}, types.NewValidationError("abstraction", "is required")
	}

	cfg := applyOptions(opts)
	n, err := e.nextNonce(cfg)
	if err != nil {
		return DefaultResponse{}, err
	}

	return send[DefaultResponse](ctx, e, cfg, n, &UserSetAbstractionAction{
		Type:             "userSetAbstraction",
		SignatureChainId: chainIdHex(e.network.SignatureChainId),
		HyperliquidChain: e.network.Environment.ChainName(),
		User:             e.userHex(),
		Abstraction:      mode.wire(),
		Nonce:            n,
	})
}

func (e *Exchange) userHex() string {
	return strings.ToLower(e.signer.Address().Hex())
}

/*//////////////////////////////////////////////////////////////
                            SUBMIT
//////////////////////////////////////////////////////////////*/

type exchangePayload struct {
	Action       Action    `json:"action"`
	Nonce        int64     `json:"nonce"`
	Signature    Signature `json:"signature"`
	VaultAddress *string   `json:"vaultAddress,omitempty"`
	ExpiresAfter *int64    `json:"expiresAfter,omitempty"`
}

// nextNonce draws from the signer's own sequence first, then the
// configured source, then a WithNonce literal.
func (e *Exchange) nextNonce(cfg callConfig) (int64, error) {
	if p, ok := e.signer.(signer.NonceProvider); ok {
		if src := p.NonceSource(); src != nil {
			return src(), nil
		}
	}
	if e.nonces != nil {
		return e.nonces(), nil
	}
	if n, ok := cfg.nonce.Get(); ok {
		return n, nil
	}
	return 0, types.NewValidationError(
		"nonce",
		"no nonce source: the signer provides none, Config.NonceSource is unset and WithNonce was not given",
	)
}

func (e *Exchange) vaultFor(cfg callConfig) mo.Option[common.Address] {
	if cfg.noVault {
		return mo.None[common.Address]()
	}
	if _, ok := cfg.vault.Get(); ok {
		return cfg.vault
	}
	return e.vault
}

func (e *Exchange) expiryFor(cfg callConfig) mo.Option[int64] {
	if _, ok := cfg.expiresAfter.Get(); ok {
		return cfg.expiresAfter
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.expiresAfter
}

// submit acquires a nonce and sends an action whose fields do not depend
// on it.
func submit[T any](ctx context.Context, e *Exchange, cfg callConfig, action Action) (T, error) {
	n, err := e.nextNonce(cfg)
	if err != nil {
		var zero T
		return zero, err
	}
	return send[T](ctx, e, cfg, n, action)
}

func send[T any](ctx context.Context, e *Exchange, cfg callConfig, n int64, action Action) (T, error) {
	var zero T
	kind := action.Kind()
	log := e.log.WithFields(logrus.Fields{"action": kind, "nonce": n})

	payload := exchangePayload{Action: action, Nonce: n}

	start := time.Now()
	var sig Signature
	var err error
	if us := schemeOf(action).userSigned; us != nil {
		sig, err = signUserSignedAction(ctx, e.signer, e.network.SignatureChainId, us)
	} else {
		vault := e.vaultFor(cfg)
		expiry := e.expiryFor(cfg)
		sig, err = signL1Action(ctx, e.signer, e.network.Environment, action, n, vault, expiry)

		if v, ok := vault.Get(); ok {
			addr := strings.ToLower(v.Hex())
			payload.VaultAddress = &addr
		}
		if x, ok := expiry.Get(); ok {
			payload.ExpiresAfter = &x
		}
	}
	if err != nil {
		metrics.ActionsTotal.WithLabelValues(kind, metrics.OutcomeError).Inc()
		return zero, fmt.Errorf("failed to sign %s: %w", kind, err)
	}
	payload.Signature = sig

	log.Debug("submitting exchange action")

	var body json.RawMessage
	err = e.rest.Post(ctx, "/exchange", payload, &body)
	metrics.SubmitLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := metrics.OutcomeError
		var apiErr *rest.APIError
		if errors.As(err, &apiErr) {
			outcome = metrics.OutcomeRejected
			log.WithField("status", apiErr.Status).Warn("exchange rejected action")
		}
		metrics.ActionsTotal.WithLabelValues(kind, outcome).Inc()
		return zero, fmt.Errorf("failed to post %s: %w", kind, err)
	}

	result, err := decodeResponse[T](body)
	if err != nil {
		var apiErr *rest.APIError
		if errors.As(err, &apiErr) {
			log.WithFields(logrus.Fields{
				"status":  apiErr.Status,
				"message": apiErr.Message,
			}).Warn("exchange rejected action")
		}
		metrics.ActionsTotal.WithLabelValues(kind, metrics.OutcomeRejected).Inc()
		return zero, err
	}

	metrics.ActionsTotal.WithLabelValues(kind, metrics.OutcomeOK).Inc()
	return result, nil
}

func firstStatus(statuses OrderResponse) (OrderStatus, error) {
	if len(statuses) == 0 {
		return OrderStatus{}, &rest.APIError{
			StatusCode: http.StatusOK,
			Status:     "malformed",
			Message:    "order response has no statuses",
		}
	}
	return statuses[0], nil
}

func malformedResponse(resp DefaultResponse, err error) error {
	return &rest.APIError{
		StatusCode: http.StatusOK,
		Status:     "malformed",
		Message:    err.Error(),
		Body:       string(resp.Data),
	}
}

func normalizeBuilder(b BuilderInfo) (BuilderInfo, error) {
	addr, err := types.NormalizeAddress(b.B)
	if err != nil {
		return BuilderInfo{}, err
	}
	if b.F < 0 {
		return BuilderInfo{}, types.NewValidationError("builderFee", "must not be negative, got %d", b.F)
	}
	return BuilderInfo{B: addr, F: b.F}, nil
}
