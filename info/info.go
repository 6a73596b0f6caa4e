// Package info queries the read-only /info endpoint.
package info

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banky/hyperliquid-exec/rest"
	"github.com/sirupsen/logrus"
)

// Info provides access to market metadata and account data via the REST API
type Info struct {
	rest rest.ClientInterface
}

// Config for initializing the Info client
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// New creates a new Info client
func New(cfg Config) *Info {
	client := rest.New(rest.Config{
		BaseUrl: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Logger:  cfg.Logger,
	})

	return NewWithClient(client)
}

// NewWithClient wraps an existing REST client, which tests use to stub
// the transport.
func NewWithClient(client rest.ClientInterface) *Info {
	return &Info{rest: client}
}

// BaseURL is the API root every query is sent to.
func (i *Info) BaseURL() string {
	return i.rest.BaseURL()
}

// ===== Market Data Queries =====

// AllMids retrieves mid-prices for all coins of a dex ("" is the default dex).
func (i *Info) AllMids(ctx context.Context, dex string) (map[string]string, error) {
	var result map[string]string
	err := fetch(ctx, i, withDex(map[string]any{"type": "allMids"}, dex), &result,
		func() error {
			if result == nil {
				return fmt.Errorf("allMids: expected an object")
			}
			return nil
		},
	)

	return result, err
}

// L2Snapshot retrieves up to 20 levels of the order book for a coin.
func (i *Info) L2Snapshot(ctx context.Context, coin string) (*L2BookSnapshot, error) {
	var result L2BookSnapshot
	err := fetch(ctx, i, map[string]any{"type": "l2Book", "coin": coin}, &result, nil)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Meta retrieves exchange metadata for perpetuals.
func (i *Info) Meta(ctx context.Context, dex string) (*Meta, error) {
	var result Meta
	err := fetch(ctx, i, withDex(map[string]any{"type": "meta"}, dex), &result,
		func() error {
			if result.Universe == nil {
				return fmt.Errorf("meta: missing universe")
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// SpotMeta retrieves exchange metadata for spot trading.
func (i *Info) SpotMeta(ctx context.Context) (*SpotMeta, error) {
	var result SpotMeta
	err := fetch(ctx, i, map[string]any{"type": "spotMeta"}, &result,
		func() error {
			if result.Universe == nil || result.Tokens == nil {
				return fmt.Errorf("spotMeta: missing universe or tokens")
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// PerpDexs retrieves the list of perp dexs.
func (i *Info) PerpDexs(ctx context.Context) (PerpDexs, error) {
	var result PerpDexs
	err := fetch(ctx, i, map[string]any{"type": "perpDexs"}, &result,
		func() error {
			if result == nil {
				return fmt.Errorf("perpDexs: expected an array")
			}
			return nil
		},
	)

	return result, err
}

// ===== User Account Queries =====

// OpenOrders retrieves a user's active orders.
func (i *Info) OpenOrders(ctx context.Context, address string, dex string) ([]OpenOrder, error) {
	var result []OpenOrder
	err := fetch(ctx, i, withDex(map[string]any{"type": "openOrders", "user": address}, dex), &result, nil)

	return result, err
}

func withDex(body map[string]any, dex string) map[string]any {
	if dex != "" {
		body["dex"] = dex
	}
	return body
}

// fetch posts body to /info and decodes into result. A body that decodes
// but fails check is reported as an *rest.APIError with the raw text.
func fetch(
	ctx context.Context,
	i *Info,
	body map[string]any,
	result any,
	check func() error,
) error {
	var raw json.RawMessage
	if err := i.rest.Post(ctx, "/info", body, &raw); err != nil {
		return err
	}

	if err := json.Unmarshal(raw, result); err != nil {
		return malformed(raw, err)
	}

	if check != nil {
		if err := check(); err != nil {
			return malformed(raw, err)
		}
	}

	return nil
}

func malformed(raw json.RawMessage, err error) error {
	return &rest.APIError{
		StatusCode: 200,
		Status:     "malformed",
		Message:    err.Error(),
		Body:       string(raw),
	}
}
