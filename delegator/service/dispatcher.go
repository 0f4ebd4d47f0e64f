package service

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/types"
	"github.com/omnistake/xcm-delegator/xcm"
)

func (c *Coordinator) SetXcmTaskFee(origin types.Origin, p types.StakingProtocol, kind types.TaskKind, fee types.XcmFee) error {
	if err := ensureControl(origin); err != nil {
		return err
	}
	if err := kind.ValidateFor(p); err != nil {
		return err
	}
	if err := fee.Validate(); err != nil {
		return err
	}

	if err := c.store.SetXcmFee(p, kind, fee); err != nil {
		return err
	}

	c.logger.Info("set xcm task fee",
		zap.String("protocol", p.String()),
		zap.String("task", kind.String()),
		zap.Uint64("weight", fee.Weight),
		zap.String("fee", fee.Fee.String()),
	)
	c.emit(types.XcmTaskFeeSet{Protocol: p, TaskKind: kind, Fee: fee})

	return nil
}

func (c *Coordinator) XcmTaskFee(p types.StakingProtocol, kind types.TaskKind) (*types.XcmFee, error) {
	if err := kind.ValidateFor(p); err != nil {
		return nil, err
	}
	return c.store.GetXcmFee(p, kind)
}

// DispatchTask encodes the task as a call of the delegator's derivative
// account and hands it to the router. Tasks with a ledger effect reserve a
// QueryID right before the send; their pending status is only recorded once
// the router accepted the message.
func (c *Coordinator) DispatchTask(
	ctx context.Context,
	origin types.Origin,
	p types.StakingProtocol,
	delegator types.Account,
	task types.XcmTask,
) (*types.QueryID, error) {
	if err := c.ensureOperator(origin); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := task.ValidateBasic(p); err != nil {
		return nil, err
	}

	index, err := c.store.DelegatorIndex(p, delegator)
	if err != nil {
		return nil, err
	}
	if err := c.checkValidators(p, delegator, task.Validators); err != nil {
		return nil, err
	}

	effect := task.Kind.Effect()
	if effect == types.EffectUnlock || effect == types.EffectClaimUnlocked {
		settings, err := c.store.GetProtocolSettings(p)
		if err != nil {
			return nil, err
		}
		if settings.OngoingTimeUnit == nil {
			return nil, errorsmod.Wrapf(types.ErrTimeUnitNotFound, "%s needs the ongoing time unit of %s", task.Kind, p)
		}
	}

	call, err := c.encoder.EncodeTask(p, index, task)
	if err != nil {
		return nil, err
	}

	fee, err := c.store.GetXcmFee(p, task.Kind)
	if err != nil {
		return nil, err
	}

	var ps *types.PendingStatus
	if effect != types.EffectNone {
		// a reserved id is spent even if the send fails
		queryID, err := c.store.ReserveQueryID()
		if err != nil {
			return nil, fmt.Errorf("failed to reserve query id: %w", err)
		}
		ps = types.NewPendingStatus(queryID, p, delegator, task, c.clock.Now())
	}

	msg := &xcm.Message{
		Protocol:    p,
		Destination: p.Info().Destination,
		Call:        call,
		Weight:      fee.Weight,
		Fee:         fee.Fee,
	}
	if ps != nil {
		queryID := ps.QueryID
		msg.QueryID = &queryID
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.cfg.DispatchTimeout)
	defer cancel()
	if err := c.router.Send(sendCtx, msg); err != nil {
		c.metrics.RecordFailedSend(p.String(), task.Kind.String())
		c.logger.Error("failed to send task",
			zap.String("protocol", p.String()),
			zap.String("task", task.Kind.String()),
			zap.String("delegator", delegator.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", types.ErrSendFailure, err)
	}

	if ps != nil {
		if err := c.store.CommitPendingStatus(ps); err != nil {
			// the message is already out, its response will find no record and
			// is ignored
			c.logger.Error("failed to record pending status of a sent task",
				zap.Uint64("query_id", ps.QueryID),
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("failed to record pending status %d: %w", ps.QueryID, err)
		}
	}

	c.metrics.RecordDispatchedTask(p.String(), task.Kind.String())
	logFields := []zap.Field{
		zap.String("protocol", p.String()),
		zap.String("task", task.Kind.String()),
		zap.String("delegator", delegator.String()),
		zap.String("message_id", msg.ID),
	}
	if msg.QueryID != nil {
		logFields = append(logFields, zap.Uint64("query_id", *msg.QueryID))
	}
	c.logger.Info("dispatched task", logFields...)
	c.emit(types.SendXcmTask{
		QueryID:     msg.QueryID,
		Protocol:    p,
		Delegator:   delegator,
		Task:        task,
		Destination: msg.Destination,
	})

	return msg.QueryID, nil
}

// checkValidators requires every target to be in the delegator's
// validator set.
func (c *Coordinator) checkValidators(p types.StakingProtocol, delegator types.Account, targets []types.Account) error {
	if len(targets) == 0 {
		return nil
	}
	validators, err := c.store.ListValidators(p, delegator)
	if err != nil {
		return err
	}
	set := make(map[types.Account]struct{}, len(validators))
	for _, v := range validators {
		set[v] = struct{}{}
	}
	for _, t := range targets {
		if _, ok := set[t]; !ok {
			return errorsmod.Wrapf(types.ErrValidatorNotFound, "%s is not a validator of %s", t, delegator)
		}
	}
	return nil
}
