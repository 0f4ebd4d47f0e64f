package service

import (
	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/types"
)

// NotifyResponse resolves the pending status of queryID. A successful
// response applies the recorded ledger effect; an error response only
// consumes the record. It reports whether a ledger change was applied.
// Unknown query ids, including already resolved or reaped ones, are
// ignored.
func (c *Coordinator) NotifyResponse(origin types.Origin, queryID types.QueryID, resp types.Response) (bool, error) {
	if err := ensureResponse(origin); err != nil {
		return false, err
	}

	ps, err := c.store.GetPendingStatus(queryID)
	if err != nil {
		return false, err
	}
	if ps == nil {
		c.logger.Debug("ignoring response without pending status", zap.Uint64("query_id", queryID))
		return false, nil
	}

	if expected := ps.Protocol.Info().Destination; !resp.Responder.Equal(expected) {
		return false, errorsmod.Wrapf(types.ErrInvalidResponder,
			"response %d came from %s, expected %s", queryID, resp.Responder, expected)
	}

	var ongoing *types.TimeUnit
	if ps.Effect == types.EffectUnlock || ps.Effect == types.EffectClaimUnlocked {
		settings, err := c.store.GetProtocolSettings(ps.Protocol)
		if err != nil {
			return false, err
		}
		ongoing = settings.OngoingTimeUnit
	}

	res, err := c.store.ConsumePendingStatus(queryID, func(ps *types.PendingStatus, ledger *types.Ledger) error {
		if !resp.Success {
			return nil
		}
		return applyEffect(ps, ledger, ongoing)
	})
	if err != nil {
		return false, err
	}
	if res.Pending == nil {
		return false, nil
	}

	protocol := ps.Protocol.String()
	if res.ApplyErr != nil {
		c.metrics.RecordFailedApply(protocol)
		c.logger.Error("failed to apply confirmed task, pending status discarded",
			zap.Uint64("query_id", queryID),
			zap.String("pending", res.Pending.String()),
			zap.Error(res.ApplyErr),
		)
		c.emit(types.ResponseApplyFailed{QueryID: queryID, Pending: res.Pending, Reason: res.ApplyErr.Error()})
		return false, res.ApplyErr
	}

	c.metrics.RecordResponse(protocol, resp.Outcome())
	if resp.Success && res.Ledger != nil {
		c.recordLedger(res.Pending.Protocol, res.Pending.Delegator, res.Ledger)
	}
	c.logger.Info("received response",
		zap.Uint64("query_id", queryID),
		zap.String("pending", res.Pending.String()),
		zap.String("outcome", resp.Outcome()),
		zap.String("error", resp.Error),
	)
	c.emit(types.NotifyResponseReceived{
		Responder: resp.Responder,
		QueryID:   queryID,
		Pending:   res.Pending,
		Outcome:   resp.Outcome(),
	})

	return resp.Success, nil
}

// applyEffect performs the ledger change a confirmed task stands for.
func applyEffect(ps *types.PendingStatus, ledger *types.Ledger, ongoing *types.TimeUnit) error {
	if ledger == nil {
		return errorsmod.Wrapf(types.ErrDelegatorNotFound, "%s of %s", ps.Delegator, ps.Protocol)
	}

	switch ps.Effect {
	case types.EffectLock:
		if ps.Amount == nil {
			return errorsmod.Wrap(types.ErrInvalidAmount, "lock without amount")
		}
		ledger.AddLockAmount(*ps.Amount)
	case types.EffectUnlock:
		if ps.Amount == nil {
			return errorsmod.Wrap(types.ErrInvalidAmount, "unlock without amount")
		}
		if ongoing == nil {
			return errorsmod.Wrapf(types.ErrTimeUnitNotFound, "%s", ps.Protocol)
		}
		if ps.Validator != nil {
			return ledger.SubtractValidatorLockAmount(*ps.Validator, *ps.Amount, *ongoing)
		}
		return ledger.SubtractLockAmount(*ps.Amount, *ongoing)
	case types.EffectClaimUnlocked:
		if ongoing == nil {
			return errorsmod.Wrapf(types.ErrTimeUnitNotFound, "%s", ps.Protocol)
		}
		var err error
		if ps.Validator != nil {
			_, err = ledger.DrainMaturedValidatorUnlocks(*ps.Validator, *ongoing)
		} else {
			_, err = ledger.DrainMaturedUnlocks(*ongoing)
		}
		return err
	case types.EffectRelock:
		if ps.Validator != nil {
			ledger.RelockValidator(*ps.Validator, ps.Amount)
			return nil
		}
		ledger.Relock(ps.Amount)
	case types.EffectVote:
		ledger.SetTargets(ps.Targets)
	case types.EffectRemoveVote:
		ledger.ClearTargets()
	default:
		return errorsmod.Wrapf(types.ErrInvalidTask, "no ledger effect for %s", ps.TaskKind)
	}

	return nil
}

// ReapExpiredPending discards pending statuses older than the configured
// timeout. Responses arriving for them later are ignored.
func (c *Coordinator) ReapExpiredPending() ([]*types.PendingStatus, error) {
	if c.cfg.PendingStatusTimeout <= 0 {
		return nil, nil
	}

	cutoff := c.clock.Now().Add(-c.cfg.PendingStatusTimeout)
	reaped, err := c.store.ReapPendingStatuses(cutoff)
	if err != nil {
		return nil, err
	}

	for _, ps := range reaped {
		c.metrics.RecordReapedStatus(ps.Protocol.String())
		c.logger.Warn("discarded pending status without response",
			zap.Uint64("query_id", ps.QueryID),
			zap.String("pending", ps.String()),
			zap.Time("created_at", ps.CreatedAt),
		)
		c.emit(types.PendingStatusReaped{QueryID: ps.QueryID, Pending: ps})
	}

	return reaped, nil
}

func (c *Coordinator) PendingStatuses() ([]*types.PendingStatus, error) {
	return c.store.ListPendingStatuses()
}
