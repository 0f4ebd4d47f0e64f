package assets

import (
	"context"
	"fmt"
	"net/url"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultEndpoint = "http://127.0.0.1:8092"
	defaultTimeout  = 10 * time.Second
)

type Config struct {
	Endpoint string        `long:"endpoint" description:"Base URL of the multi-asset ledger service"`
	Timeout  time.Duration `long:"timeout" description:"Timeout of a single request to the multi-asset ledger"`
}

func DefaultConfig() *Config {
	return &Config{
		Endpoint: defaultEndpoint,
		Timeout:  defaultTimeout,
	}
}

func (cfg *Config) Validate() error {
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return fmt.Errorf("invalid asset ledger endpoint %q: %w", cfg.Endpoint, err)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("asset ledger timeout must be positive")
	}
	return nil
}

// Ledger is the multi-asset ledger the coordinator reports exchange rate
// changes to. Its accounting rules are owned by the ledger itself.
type Ledger interface {
	// TotalIssuance returns the circulating supply of a currency.
	TotalIssuance(ctx context.Context, currency string) (sdkmath.Int, error)
	// Deposit mints amount of currency into account.
	Deposit(ctx context.Context, currency, account string, amount sdkmath.Int) error
}

type issuanceResponse struct {
	Currency      string      `json:"currency"`
	TotalIssuance sdkmath.Int `json:"total_issuance"`
}

type depositRequest struct {
	Currency string      `json:"currency"`
	Account  string      `json:"account"`
	Amount   sdkmath.Int `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client talks to the asset ledger over its HTTP JSON API.
type Client struct {
	rc     *resty.Client
	logger *zap.Logger
}

var _ Ledger = (*Client)(nil)

func NewClient(cfg *Config, logger *zap.Logger) *Client {
	rc := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{rc: rc, logger: logger}
}

func (c *Client) TotalIssuance(ctx context.Context, currency string) (sdkmath.Int, error) {
	var (
		out     issuanceResponse
		errBody errorResponse
	)
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("currency", currency).
		SetResult(&out).
		SetError(&errBody).
		Get("/v1/currencies/{currency}/issuance")
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to query issuance of %s: %w", currency, err)
	}
	if resp.IsError() {
		return sdkmath.Int{}, fmt.Errorf("failed to query issuance of %s: status %d: %s", currency, resp.StatusCode(), errBody.Error)
	}
	if out.TotalIssuance.IsNil() {
		return sdkmath.ZeroInt(), nil
	}

	return out.TotalIssuance, nil
}

func (c *Client) Deposit(ctx context.Context, currency, account string, amount sdkmath.Int) error {
	var errBody errorResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(&depositRequest{Currency: currency, Account: account, Amount: amount}).
		SetError(&errBody).
		Post("/v1/deposits")
	if err != nil {
		return fmt.Errorf("failed to deposit %s %s: %w", amount, currency, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to deposit %s %s: status %d: %s", amount, currency, resp.StatusCode(), errBody.Error)
	}

	c.logger.Debug("deposited to asset ledger",
		zap.String("currency", currency),
		zap.String("account", account),
		zap.String("amount", amount.String()),
	)

	return nil
}
