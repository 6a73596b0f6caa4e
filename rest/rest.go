// Package rest provides core functions for
// network requests to Hyperliquid API endpoints
package rest

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/banky/hyperliquid-exec/constants"
	"github.com/go-resty/resty/v2"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

type Client struct {
	baseUrl string
	timeout mo.Option[time.Duration]
	http    *resty.Client
	log     logrus.FieldLogger
}

// ClientInterface defines the contract for REST API calls
type ClientInterface interface {
	Post(ctx context.Context, path string, body any, result any) error
	BaseURL() string
}

type Config struct {
	// BaseUrl is the base URL for the Hyperliquid API
	// If none is provided, the mainnet url will be used
	BaseUrl string
	// Timeout bounds each request. Zero leaves cancellation to ctx.
	Timeout time.Duration
	// Logger defaults to the logrus standard logger
	Logger logrus.FieldLogger
}

// New creates a new client instance with the
// provided configuration.
func New(c Config) *Client {
	baseUrl := strings.TrimRight(c.BaseUrl, "/")
	if baseUrl == "" {
		baseUrl = constants.MAINNET_API_URL
	}

	var timeout mo.Option[time.Duration]
	if c.Timeout > 0 {
		timeout = mo.Some(c.Timeout)
	}

	log := c.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := resty.
		New().
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetHeader("Content-Type", "application/json")

	return &Client{
		baseUrl: baseUrl,
		timeout: timeout,
		http:    r,
		log:     log,
	}
}

func (c *Client) BaseURL() string {
	return c.baseUrl
}

// Post sends a POST request to the specified path with the provided body
// and decodes a 2xx JSON response into result. Any other outcome is an
// *APIError carrying the raw body.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body any,
	result any,
) error {
	url := c.baseUrl + path

	if timeout, ok := c.timeout.Get(); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(url)
	if err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{
		"path":   path,
		"status": resp.StatusCode(),
	}).Debug("hyperliquid request")

	if err := handleException(resp); err != nil {
		return err
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode(),
			Status:     "malformed",
			Message:    err.Error(),
			Body:       string(resp.Body()),
		}
	}

	return nil
}
