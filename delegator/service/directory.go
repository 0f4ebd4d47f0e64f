package service

import (
	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/delegator/store"
	"github.com/omnistake/xcm-delegator/types"
)

// AddDelegator registers the derivative sub-account of a fresh index, or of
// the given one, with an empty ledger.
func (c *Coordinator) AddDelegator(origin types.Origin, p types.StakingProtocol, index *uint16) (*store.DelegatorEntry, error) {
	if err := ensureControl(origin); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	entry, err := c.store.AddDelegator(p, index, func(i uint16) types.Account {
		return c.encoder.DerivativeAccount(p, i)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("added delegator",
		zap.String("protocol", p.String()),
		zap.Uint16("index", entry.Index),
		zap.String("delegator", entry.Delegator.String()),
	)
	c.refreshDelegatorCount(p)
	c.recordLedger(p, entry.Delegator, types.NewLedger(p))
	c.emit(types.DelegatorAdded{Protocol: p, Index: entry.Index, Delegator: entry.Delegator})

	return entry, nil
}

// RemoveDelegator deregisters a delegator whose ledger is empty. Its index
// is never handed out again.
func (c *Coordinator) RemoveDelegator(origin types.Origin, p types.StakingProtocol, delegator types.Account) error {
	if err := ensureControl(origin); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	index, err := c.store.RemoveDelegator(p, delegator)
	if err != nil {
		return err
	}

	c.logger.Info("removed delegator",
		zap.String("protocol", p.String()),
		zap.Uint16("index", index),
		zap.String("delegator", delegator.String()),
	)
	c.refreshDelegatorCount(p)
	c.metrics.RemoveLedger(p.String(), delegator.String())
	c.emit(types.DelegatorRemoved{Protocol: p, Delegator: delegator})

	return nil
}

func (c *Coordinator) AddValidator(origin types.Origin, p types.StakingProtocol, delegator, validator types.Account) error {
	if err := ensureControl(origin); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := p.ValidateValidator(validator); err != nil {
		return err
	}

	if err := c.store.AddValidator(p, delegator, validator); err != nil {
		return err
	}

	c.logger.Info("added validator",
		zap.String("protocol", p.String()),
		zap.String("delegator", delegator.String()),
		zap.String("validator", validator.String()),
	)
	c.emit(types.ValidatorAdded{Protocol: p, Delegator: delegator, Validator: validator})

	return nil
}

func (c *Coordinator) RemoveValidator(origin types.Origin, p types.StakingProtocol, delegator, validator types.Account) error {
	if err := ensureControl(origin); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if err := c.store.RemoveValidator(p, delegator, validator); err != nil {
		return err
	}

	c.logger.Info("removed validator",
		zap.String("protocol", p.String()),
		zap.String("delegator", delegator.String()),
		zap.String("validator", validator.String()),
	)
	c.emit(types.ValidatorRemoved{Protocol: p, Delegator: delegator, Validator: validator})

	return nil
}

// SetLedger overrides the mirrored ledger of a delegator. It is the recovery
// path when the mirror drifted from the remote state.
func (c *Coordinator) SetLedger(origin types.Origin, p types.StakingProtocol, delegator types.Account, ledger *types.Ledger) error {
	if err := ensureControl(origin); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if ledger == nil || ledger.Protocol != p {
		return errorsmod.Wrapf(types.ErrInvalidLedger, "ledger does not belong to %s", p)
	}
	if err := ledger.Validate(); err != nil {
		return err
	}

	if err := c.store.SetLedger(p, delegator, ledger); err != nil {
		return err
	}

	c.logger.Warn("ledger overridden",
		zap.String("protocol", p.String()),
		zap.String("delegator", delegator.String()),
		zap.String("locked", ledger.Locked.String()),
		zap.Int("unlocking_chunks", len(ledger.Unlocking)),
	)
	c.recordLedger(p, delegator, ledger)
	c.emit(types.LedgerSet{Protocol: p, Delegator: delegator, Ledger: ledger})

	return nil
}

func (c *Coordinator) Delegators(p types.StakingProtocol) ([]*store.DelegatorEntry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return c.store.ListDelegators(p)
}

func (c *Coordinator) Validators(p types.StakingProtocol, delegator types.Account) ([]types.Account, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return c.store.ListValidators(p, delegator)
}

func (c *Coordinator) Ledger(p types.StakingProtocol, delegator types.Account) (*types.Ledger, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return c.store.GetLedger(p, delegator)
}
