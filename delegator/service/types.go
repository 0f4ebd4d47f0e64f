package service

import (
	sdkmath "cosmossdk.io/math"

	"github.com/omnistake/xcm-delegator/types"
)

// Request and response bodies of the admin API. Durations travel in
// time.ParseDuration form, amounts as decimal strings.

type AddDelegatorRequest struct {
	Index *uint16 `json:"index,omitempty"`
}

type ValidatorRequest struct {
	Validator types.Account `json:"validator"`
}

type ProtocolFeeRateRequest struct {
	Permill uint32 `json:"permill"`
}

type TimeUnitIntervalRequest struct {
	Interval string `json:"interval"`
}

type UpdateTimeUnitRequest struct {
	// TimeUnit is nil to advance the ongoing unit by one.
	TimeUnit *types.TimeUnit `json:"time_unit,omitempty"`
}

type ExchangeRateLimitRequest struct {
	Interval   string `json:"interval"`
	MaxPermill uint32 `json:"max_permill"`
}

type UpdateExchangeRateRequest struct {
	Delegator   types.Account `json:"delegator"`
	Observation sdkmath.Int   `json:"observation"`
}

type DispatchTaskResponse struct {
	QueryID *types.QueryID `json:"query_id,omitempty"`
}

type HealthResponse struct {
	Running bool `json:"running"`
}

// ErrorResponse carries coordinator errors with their registered code so
// that clients can match them with errors.Is.
type ErrorResponse struct {
	Codespace string `json:"codespace,omitempty"`
	Code      uint32 `json:"code,omitempty"`
	Message   string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}
