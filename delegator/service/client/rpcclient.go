package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/go-resty/resty/v2"

	"github.com/omnistake/xcm-delegator/delegator/service"
	"github.com/omnistake/xcm-delegator/delegator/store"
	"github.com/omnistake/xcm-delegator/types"
)

const defaultTimeout = 30 * time.Second

// RemoteError is a coordinator error returned by the daemon. It unwraps to
// the registered error of the same code.
type RemoteError struct {
	Message string
	cause   error
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.cause
}

// CoordinatorRpcClient talks to the admin API of a running xdd.
type CoordinatorRpcClient struct {
	rc *resty.Client
}

// NewCoordinatorRpcClient creates a client authenticating with the given
// API token against the daemon at remoteAddr.
func NewCoordinatorRpcClient(remoteAddr, token string) *CoordinatorRpcClient {
	rc := resty.New().
		SetBaseURL("http://"+remoteAddr).
		SetTimeout(defaultTimeout).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(token)

	return &CoordinatorRpcClient{rc: rc}
}

// do sends the request and decodes either the result or the error body.
func (c *CoordinatorRpcClient) do(ctx context.Context, method, path string, body, result interface{}) error {
	var errRes service.ErrorResponse
	req := c.rc.R().SetContext(ctx).SetError(&errRes)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to send %s %s: %w", method, path, err)
	}
	if !resp.IsError() {
		return nil
	}
	if errRes.Codespace != "" {
		return &RemoteError{
			Message: errRes.Message,
			cause:   errorsmod.ABCIError(errRes.Codespace, errRes.Code, ""),
		}
	}
	if errRes.Message == "" {
		errRes.Message = resp.Status()
	}
	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode(), errRes.Message)
}

func protocolPath(p types.StakingProtocol, format string, args ...interface{}) string {
	return fmt.Sprintf("/v1/protocols/%s", p) + fmt.Sprintf(format, args...)
}

func (c *CoordinatorRpcClient) Health(ctx context.Context) (*service.HealthResponse, error) {
	var res service.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/healthcheck", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoordinatorRpcClient) Delegators(ctx context.Context, p types.StakingProtocol) ([]*store.DelegatorEntry, error) {
	var res []*store.DelegatorEntry
	if err := c.do(ctx, http.MethodGet, protocolPath(p, "/delegators"), nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoordinatorRpcClient) AddDelegator(ctx context.Context, p types.StakingProtocol, index *uint16) (*store.DelegatorEntry, error) {
	var res store.DelegatorEntry
	req := &service.AddDelegatorRequest{Index: index}
	if err := c.do(ctx, http.MethodPost, protocolPath(p, "/delegators"), req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoordinatorRpcClient) RemoveDelegator(ctx context.Context, p types.StakingProtocol, delegator types.Account) error {
	return c.do(ctx, http.MethodDelete, protocolPath(p, "/delegators/%s", delegator), nil, nil)
}

func (c *CoordinatorRpcClient) Ledger(ctx context.Context, p types.StakingProtocol, delegator types.Account) (*types.Ledger, error) {
	var res types.Ledger
	if err := c.do(ctx, http.MethodGet, protocolPath(p, "/delegators/%s/ledger", delegator), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoordinatorRpcClient) SetLedger(ctx context.Context, p types.StakingProtocol, delegator types.Account, ledger *types.Ledger) error {
	return c.do(ctx, http.MethodPut, protocolPath(p, "/delegators/%s/ledger", delegator), ledger, nil)
}

func (c *CoordinatorRpcClient) Validators(ctx context.Context, p types.StakingProtocol, delegator types.Account) ([]types.Account, error) {
	var res []types.Account
	if err := c.do(ctx, http.MethodGet, protocolPath(p, "/delegators/%s/validators", delegator), nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoordinatorRpcClient) AddValidator(ctx context.Context, p types.StakingProtocol, delegator, validator types.Account) error {
	req := &service.ValidatorRequest{Validator: validator}
	return c.do(ctx, http.MethodPost, protocolPath(p, "/delegators/%s/validators", delegator), req, nil)
}

func (c *CoordinatorRpcClient) RemoveValidator(ctx context.Context, p types.StakingProtocol, delegator, validator types.Account) error {
	return c.do(ctx, http.MethodDelete, protocolPath(p, "/delegators/%s/validators/%s", delegator, validator), nil, nil)
}

func (c *CoordinatorRpcClient) DispatchTask(ctx context.Context, p types.StakingProtocol, delegator types.Account, task types.XcmTask) (*types.QueryID, error) {
	var res service.DispatchTaskResponse
	if err := c.do(ctx, http.MethodPost, protocolPath(p, "/delegators/%s/tasks", delegator), &task, &res); err != nil {
		return nil, err
	}
	return res.QueryID, nil
}

func (c *CoordinatorRpcClient) XcmTaskFee(ctx context.Context, p types.StakingProtocol, kind types.TaskKind) (*types.XcmFee, error) {
	var res types.XcmFee
	if err := c.do(ctx, http.MethodGet, protocolPath(p, "/fees/%s", kind), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoordinatorRpcClient) SetXcmTaskFee(ctx context.Context, p types.StakingProtocol, kind types.TaskKind, fee types.XcmFee) error {
	return c.do(ctx, http.MethodPut, protocolPath(p, "/fees/%s", kind), &fee, nil)
}

func (c *CoordinatorRpcClient) SetProtocolFeeRate(ctx context.Context, p types.StakingProtocol, permill uint32) error {
	req := &service.ProtocolFeeRateRequest{Permill: permill}
	return c.do(ctx, http.MethodPut, protocolPath(p, "/fee-rate"), req, nil)
}

func (c *CoordinatorRpcClient) OngoingTimeUnit(ctx context.Context, p types.StakingProtocol) (*types.TimeUnit, error) {
	var res types.TimeUnit
	if err := c.do(ctx, http.MethodGet, protocolPath(p, "/time-unit"), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoordinatorRpcClient) UpdateOngoingTimeUnit(ctx context.Context, p types.StakingProtocol, unit *types.TimeUnit) (*types.TimeUnit, error) {
	var res types.TimeUnit
	req := &service.UpdateTimeUnitRequest{TimeUnit: unit}
	if err := c.do(ctx, http.MethodPost, protocolPath(p, "/time-unit"), req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoordinatorRpcClient) SetUpdateOngoingTimeUnitInterval(ctx context.Context, p types.StakingProtocol, interval time.Duration) error {
	req := &service.TimeUnitIntervalRequest{Interval: interval.String()}
	return c.do(ctx, http.MethodPut, protocolPath(p, "/time-unit-interval"), req, nil)
}

func (c *CoordinatorRpcClient) ExchangeRate(ctx context.Context, p types.StakingProtocol) (*service.ExchangeRate, error) {
	var res service.ExchangeRate
	if err := c.do(ctx, http.MethodGet, protocolPath(p, "/exchange-rate"), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoordinatorRpcClient) UpdateTokenExchangeRate(
	ctx context.Context,
	p types.StakingProtocol,
	delegator types.Account,
	observation sdkmath.Int,
) (*types.TokenExchangeRateUpdated, error) {
	var res types.TokenExchangeRateUpdated
	req := &service.UpdateExchangeRateRequest{Delegator: delegator, Observation: observation}
	if err := c.do(ctx, http.MethodPost, protocolPath(p, "/exchange-rate"), req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoordinatorRpcClient) SetUpdateTokenExchangeRateLimit(ctx context.Context, p types.StakingProtocol, interval time.Duration, maxPermill uint32) error {
	req := &service.ExchangeRateLimitRequest{Interval: interval.String(), MaxPermill: maxPermill}
	return c.do(ctx, http.MethodPut, protocolPath(p, "/exchange-rate-limit"), req, nil)
}

func (c *CoordinatorRpcClient) PendingStatuses(ctx context.Context) ([]*types.PendingStatus, error) {
	var res []*types.PendingStatus
	if err := c.do(ctx, http.MethodGet, "/v1/pending-statuses", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}
