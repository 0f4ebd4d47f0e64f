package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Event is emitted after every successful state transition.
type Event interface {
	EventName() string
}

type DelegatorAdded struct {
	Protocol  StakingProtocol `json:"protocol"`
	Index     uint16          `json:"index"`
	Delegator Account         `json:"delegator"`
}

type DelegatorRemoved struct {
	Protocol  StakingProtocol `json:"protocol"`
	Delegator Account         `json:"delegator"`
}

type ValidatorAdded struct {
	Protocol  StakingProtocol `json:"protocol"`
	Delegator Account         `json:"delegator"`
	Validator Account         `json:"validator"`
}

type ValidatorRemoved struct {
	Protocol  StakingProtocol `json:"protocol"`
	Delegator Account         `json:"delegator"`
	Validator Account         `json:"validator"`
}

type XcmTaskFeeSet struct {
	Protocol StakingProtocol `json:"protocol"`
	TaskKind TaskKind        `json:"task_kind"`
	Fee      XcmFee          `json:"fee"`
}

type ProtocolFeeRateSet struct {
	Protocol StakingProtocol `json:"protocol"`
	Permill  uint32          `json:"permill"`
}

type UpdateOngoingTimeUnitIntervalSet struct {
	Protocol StakingProtocol `json:"protocol"`
	Interval time.Duration   `json:"interval"`
}

type TimeUnitUpdated struct {
	Protocol StakingProtocol `json:"protocol"`
	TimeUnit TimeUnit        `json:"time_unit"`
}

type UpdateTokenExchangeRateLimitSet struct {
	Protocol   StakingProtocol `json:"protocol"`
	Interval   time.Duration   `json:"interval"`
	MaxPermill uint32          `json:"max_permill"`
}

type TokenExchangeRateUpdated struct {
	Protocol    StakingProtocol `json:"protocol"`
	Delegator   Account         `json:"delegator"`
	Amount      sdkmath.Int     `json:"amount"`
	ProtocolFee sdkmath.Int     `json:"protocol_fee"`
	TokenPool   sdkmath.Int     `json:"token_pool"`
}

type LedgerSet struct {
	Protocol  StakingProtocol `json:"protocol"`
	Delegator Account         `json:"delegator"`
	Ledger    *Ledger         `json:"ledger"`
}

type SendXcmTask struct {
	// QueryID is nil for fire-and-forget tasks.
	QueryID     *QueryID        `json:"query_id,omitempty"`
	Protocol    StakingProtocol `json:"protocol"`
	Delegator   Account         `json:"delegator"`
	Task        XcmTask         `json:"task"`
	Destination Location        `json:"destination"`
}

type NotifyResponseReceived struct {
	Responder Location       `json:"responder"`
	QueryID   QueryID        `json:"query_id"`
	Pending   *PendingStatus `json:"pending_status"`
	Outcome   string         `json:"outcome"`
}

type ResponseApplyFailed struct {
	QueryID QueryID        `json:"query_id"`
	Pending *PendingStatus `json:"pending_status"`
	Reason  string         `json:"reason"`
}

type PendingStatusReaped struct {
	QueryID QueryID        `json:"query_id"`
	Pending *PendingStatus `json:"pending_status"`
}

func (DelegatorAdded) EventName() string                   { return "DelegatorAdded" }
func (DelegatorRemoved) EventName() string                 { return "DelegatorRemoved" }
func (ValidatorAdded) EventName() string                   { return "ValidatorAdded" }
func (ValidatorRemoved) EventName() string                 { return "ValidatorRemoved" }
func (XcmTaskFeeSet) EventName() string                    { return "XcmTaskFeeSet" }
func (ProtocolFeeRateSet) EventName() string               { return "ProtocolFeeRateSet" }
func (UpdateOngoingTimeUnitIntervalSet) EventName() string { return "UpdateOngoingTimeUnitIntervalSet" }
func (TimeUnitUpdated) EventName() string                  { return "TimeUnitUpdated" }
func (UpdateTokenExchangeRateLimitSet) EventName() string  { return "UpdateTokenExchangeRateLimitSet" }
func (TokenExchangeRateUpdated) EventName() string         { return "TokenExchangeRateUpdated" }
func (LedgerSet) EventName() string                        { return "LedgerSet" }
func (SendXcmTask) EventName() string                      { return "SendXcmTask" }
func (NotifyResponseReceived) EventName() string           { return "NotifyResponseReceived" }
func (ResponseApplyFailed) EventName() string              { return "ResponseApplyFailed" }
func (PendingStatusReaped) EventName() string              { return "PendingStatusReaped" }
