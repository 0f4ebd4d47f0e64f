package types

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

// Effect is the ledger change a confirmed task causes.
type Effect uint8

const (
	// EffectNone marks fire-and-forget tasks; no pending status is recorded.
	EffectNone Effect = iota
	EffectLock
	EffectUnlock
	EffectClaimUnlocked
	EffectRelock
	EffectVote
	EffectRemoveVote
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "None"
	case EffectLock:
		return "Lock"
	case EffectUnlock:
		return "Unlock"
	case EffectClaimUnlocked:
		return "ClaimUnlocked"
	case EffectRelock:
		return "Relock"
	case EffectVote:
		return "Vote"
	case EffectRemoveVote:
		return "RemoveVote"
	default:
		return fmt.Sprintf("Effect(%d)", uint8(e))
	}
}

// QueryID correlates an outbound message with its asynchronous response.
type QueryID = uint64

// PendingStatus is what the coordinator remembers about an in-flight task
// until the response for its QueryID arrives.
type PendingStatus struct {
	QueryID   QueryID         `json:"query_id"`
	Protocol  StakingProtocol `json:"protocol"`
	Delegator Account         `json:"delegator"`
	Effect    Effect          `json:"effect"`
	TaskKind  TaskKind        `json:"task_kind"`
	// Amount is set for Lock and Unlock, and for Relock when only part of
	// the unlocking funds is relocked.
	Amount  *sdkmath.Int `json:"amount,omitempty"`
	Targets []Account    `json:"targets,omitempty"`
	// Validator scopes unlock, claim and relock effects on protocols with
	// validator scoped unlocks.
	Validator *Account  `json:"validator,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPendingStatus derives the pending record of a task, or nil when the
// task has no ledger effect.
func NewPendingStatus(queryID QueryID, p StakingProtocol, delegator Account, task XcmTask, now time.Time) *PendingStatus {
	effect := task.Kind.Effect()
	if effect == EffectNone {
		return nil
	}

	ps := &PendingStatus{
		QueryID:   queryID,
		Protocol:  p,
		Delegator: delegator,
		Effect:    effect,
		TaskKind:  task.Kind,
		CreatedAt: now.UTC(),
	}
	switch effect {
	case EffectLock, EffectUnlock, EffectRelock:
		if task.Amount != nil {
			amount := *task.Amount
			ps.Amount = &amount
		}
	case EffectVote:
		ps.Targets = append([]Account{}, task.Validators...)
	}
	if p.Info().ValidatorScopedUnlocks {
		switch effect {
		case EffectUnlock, EffectClaimUnlocked, EffectRelock:
			v := task.Validator()
			ps.Validator = &v
		}
	}

	return ps
}

func (ps *PendingStatus) String() string {
	if ps.Amount != nil {
		return fmt.Sprintf("%s(%s, %s)", ps.Effect, ps.Delegator, ps.Amount)
	}
	return fmt.Sprintf("%s(%s)", ps.Effect, ps.Delegator)
}

// XcmFee is the weight and fee attached to outbound messages of one task
// kind.
type XcmFee struct {
	Weight uint64      `json:"weight"`
	Fee    sdkmath.Int `json:"fee"`
}

func (f XcmFee) Validate() error {
	return ValidateBalance(f.Fee)
}

// Response is the asynchronous acknowledgement of an outbound message.
type Response struct {
	Responder Location `json:"responder"`
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
}

func SuccessResponse(responder Location) Response {
	return Response{Responder: responder, Success: true}
}

func ErrorResponse(responder Location, msg string) Response {
	return Response{Responder: responder, Error: msg}
}

func (r Response) Outcome() string {
	if r.Success {
		return "success"
	}
	return "error"
}
