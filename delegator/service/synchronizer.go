package service

import (
	"context"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/delegator/store"
	"github.com/omnistake/xcm-delegator/types"
)

// PermillDenominator is one whole in parts per million.
const PermillDenominator = 1_000_000

func validatePermill(permill uint32) error {
	if permill > PermillDenominator {
		return errorsmod.Wrapf(types.ErrInvalidPermill, "%d exceeds %d", permill, PermillDenominator)
	}
	return nil
}

// mulPermill returns amount * permill / 1_000_000 rounded down.
func mulPermill(amount sdkmath.Int, permill uint32) sdkmath.Int {
	return amount.Mul(sdkmath.NewIntFromUint64(uint64(permill))).QuoRaw(PermillDenominator)
}

func (c *Coordinator) SetProtocolFeeRate(origin types.Origin, p types.StakingProtocol, permill uint32) error {
	if err := ensureControl(origin); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := validatePermill(permill); err != nil {
		return err
	}

	if _, err := c.store.UpdateProtocolSettings(p, func(s *store.ProtocolSettings) error {
		s.ProtocolFeeRate = permill
		return nil
	}); err != nil {
		return err
	}

	c.logger.Info("set protocol fee rate", zap.String("protocol", p.String()), zap.Uint32("permill", permill))
	c.emit(types.ProtocolFeeRateSet{Protocol: p, Permill: permill})

	return nil
}

// SetUpdateOngoingTimeUnitInterval sets the minimum time between two
// operator advances of the ongoing time unit.
func (c *Coordinator) SetUpdateOngoingTimeUnitInterval(origin types.Origin, p types.StakingProtocol, interval time.Duration) error {
	if err := ensureControl(origin); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if interval < 0 {
		return errorsmod.Wrapf(types.ErrUpdateIntervalTooShort, "negative interval %s", interval)
	}

	if _, err := c.store.UpdateProtocolSettings(p, func(s *store.ProtocolSettings) error {
		s.TimeUnitInterval = interval
		return nil
	}); err != nil {
		return err
	}

	c.logger.Info("set time unit update interval", zap.String("protocol", p.String()), zap.Duration("interval", interval))
	c.emit(types.UpdateOngoingTimeUnitIntervalSet{Protocol: p, Interval: interval})

	return nil
}

// UpdateOngoingTimeUnit moves the protocol clock. Without an explicit unit
// the clock advances by one, which operators may do once per configured
// interval. Setting an explicit unit is reserved to the control origin. The
// clock never goes backwards.
func (c *Coordinator) UpdateOngoingTimeUnit(origin types.Origin, p types.StakingProtocol, unit *types.TimeUnit) (types.TimeUnit, error) {
	if err := c.ensureOperator(origin); err != nil {
		return types.TimeUnit{}, err
	}
	if unit != nil {
		if err := ensureControl(origin); err != nil {
			return types.TimeUnit{}, err
		}
	}
	if err := p.Validate(); err != nil {
		return types.TimeUnit{}, err
	}

	now := c.clock.Now().UTC()
	var next types.TimeUnit
	_, err := c.store.UpdateProtocolSettings(p, func(s *store.ProtocolSettings) error {
		if unit == nil {
			if s.OngoingTimeUnit == nil {
				return errorsmod.Wrapf(types.ErrTimeUnitNotFound, "%s has no ongoing time unit to advance", p)
			}
			next = s.OngoingTimeUnit.Next()
		} else {
			if err := p.ValidateTimeUnit(*unit); err != nil {
				return err
			}
			next = *unit
		}

		if s.OngoingTimeUnit != nil {
			cmp, err := next.Compare(*s.OngoingTimeUnit)
			if err != nil {
				return err
			}
			if cmp < 0 {
				return errorsmod.Wrapf(types.ErrInvalidTimeUnit, "%s is before the ongoing %s", next, s.OngoingTimeUnit)
			}
		}

		if origin.Kind != types.ControlOrigin && !s.TimeUnitUpdatedAt.IsZero() {
			if elapsed := now.Sub(s.TimeUnitUpdatedAt); elapsed < s.TimeUnitInterval {
				return errorsmod.Wrapf(types.ErrUpdateIntervalTooShort,
					"%s since the last update of %s, need %s", elapsed, p, s.TimeUnitInterval)
			}
		}

		s.OngoingTimeUnit = &next
		s.TimeUnitUpdatedAt = now
		return nil
	})
	if err != nil {
		return types.TimeUnit{}, err
	}

	c.metrics.RecordOngoingTimeUnit(p.String(), next.Value)
	c.logger.Info("updated ongoing time unit",
		zap.String("protocol", p.String()),
		zap.String("time_unit", next.String()),
		zap.String("origin", origin.String()),
	)
	c.emit(types.TimeUnitUpdated{Protocol: p, TimeUnit: next})

	return next, nil
}

func (c *Coordinator) OngoingTimeUnit(p types.StakingProtocol) (*types.TimeUnit, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	settings, err := c.store.GetProtocolSettings(p)
	if err != nil {
		return nil, err
	}
	if settings.OngoingTimeUnit == nil {
		return nil, errorsmod.Wrapf(types.ErrTimeUnitNotFound, "%s", p)
	}
	return settings.OngoingTimeUnit, nil
}

func (c *Coordinator) SetUpdateTokenExchangeRateLimit(origin types.Origin, p types.StakingProtocol, interval time.Duration, maxPermill uint32) error {
	if err := ensureControl(origin); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := validatePermill(maxPermill); err != nil {
		return err
	}
	if interval < 0 {
		return errorsmod.Wrapf(types.ErrUpdateIntervalTooShort, "negative interval %s", interval)
	}

	if _, err := c.store.UpdateProtocolSettings(p, func(s *store.ProtocolSettings) error {
		s.ExchangeRateLimit = &store.ExchangeRateLimit{Interval: interval, MaxPermill: maxPermill}
		return nil
	}); err != nil {
		return err
	}

	c.logger.Info("set exchange rate update limit",
		zap.String("protocol", p.String()),
		zap.Duration("interval", interval),
		zap.Uint32("max_permill", maxPermill),
	)
	c.emit(types.UpdateTokenExchangeRateLimitSet{Protocol: p, Interval: interval, MaxPermill: maxPermill})

	return nil
}

// ExchangeRate is the token pool backing the derived currency of a
// protocol and the derived currency's issuance.
type ExchangeRate struct {
	Protocol      types.StakingProtocol `json:"protocol"`
	TokenPool     sdkmath.Int           `json:"token_pool"`
	TotalIssuance sdkmath.Int           `json:"total_issuance"`
}

func (c *Coordinator) ExchangeRate(ctx context.Context, p types.StakingProtocol) (*ExchangeRate, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	settings, err := c.store.GetProtocolSettings(p)
	if err != nil {
		return nil, err
	}
	issuance, err := c.ledger.TotalIssuance(ctx, p.Info().DerivedCurrency)
	if err != nil {
		return nil, err
	}
	return &ExchangeRate{Protocol: p, TokenPool: settings.TokenPool, TotalIssuance: issuance}, nil
}

// UpdateTokenExchangeRate adds the observed staking reward of a delegator to
// the token pool, which moves the exchange rate of the derived currency.
// The observation may be at most max_permill of the pool. The protocol fee
// share of the reward is minted as derived currency to the fee account at
// the rate before the update, once the new pool is stored. An empty pool is seeded without bound at a
// one to one rate.
func (c *Coordinator) UpdateTokenExchangeRate(
	ctx context.Context,
	origin types.Origin,
	p types.StakingProtocol,
	delegator types.Account,
	observation sdkmath.Int,
) (*types.TokenExchangeRateUpdated, error) {
	if err := c.ensureOperator(origin); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := types.ValidateBalance(observation); err != nil {
		return nil, err
	}
	if _, err := c.store.DelegatorIndex(p, delegator); err != nil {
		return nil, err
	}

	settings, err := c.store.GetProtocolSettings(p)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now().UTC()
	if err := checkExchangeRateUpdate(p, settings, observation, now); err != nil {
		return nil, err
	}

	info := p.Info()
	fee := mulPermill(observation, settings.ProtocolFeeRate)
	derivedFee := fee
	if settings.TokenPool.IsPositive() && fee.IsPositive() {
		issuance, err := c.ledger.TotalIssuance(ctx, info.DerivedCurrency)
		if err != nil {
			return nil, fmt.Errorf("failed to query issuance of %s: %w", info.DerivedCurrency, err)
		}
		if issuance.IsPositive() {
			derivedFee = fee.Mul(issuance).Quo(settings.TokenPool)
		}
	}

	updated, err := c.store.UpdateProtocolSettings(p, func(s *store.ProtocolSettings) error {
		if err := checkExchangeRateUpdate(p, s, observation, now); err != nil {
			return err
		}
		s.TokenPool = types.SaturatingAdd(s.TokenPool, observation)
		s.ExchangeRateUpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A failed mint is logged for reconciliation and never retried; the
	// stored update makes the interval refuse a second observation.
	var mintErr error
	if derivedFee.IsPositive() && c.cfg.FeeAccount != "" {
		if err := c.ledger.Deposit(ctx, info.DerivedCurrency, c.cfg.FeeAccount, derivedFee); err != nil {
			c.logger.Error("protocol fee not minted, reconcile manually",
				zap.String("protocol", p.String()),
				zap.String("currency", info.DerivedCurrency),
				zap.String("fee_account", c.cfg.FeeAccount),
				zap.String("amount", derivedFee.String()),
				zap.Error(err),
			)
			mintErr = errorsmod.Wrapf(types.ErrProtocolFeeNotMinted, "%s of %s: %v", derivedFee, info.DerivedCurrency, err)
			derivedFee = sdkmath.ZeroInt()
		}
	}

	ev := types.TokenExchangeRateUpdated{
		Protocol:    p,
		Delegator:   delegator,
		Amount:      observation,
		ProtocolFee: derivedFee,
		TokenPool:   updated.TokenPool,
	}
	c.logger.Info("updated token exchange rate",
		zap.String("protocol", p.String()),
		zap.String("delegator", delegator.String()),
		zap.String("observation", observation.String()),
		zap.String("protocol_fee", derivedFee.String()),
		zap.String("token_pool", updated.TokenPool.String()),
	)
	c.emit(ev)

	if mintErr != nil {
		return nil, mintErr
	}
	return &ev, nil
}

func checkExchangeRateUpdate(p types.StakingProtocol, s *store.ProtocolSettings, observation sdkmath.Int, now time.Time) error {
	limit := s.ExchangeRateLimit
	if limit == nil {
		return errorsmod.Wrapf(types.ErrConfigurationNotFound, "no exchange rate limit for %s", p)
	}
	if !s.ExchangeRateUpdatedAt.IsZero() {
		if elapsed := now.Sub(s.ExchangeRateUpdatedAt); elapsed < limit.Interval {
			return errorsmod.Wrapf(types.ErrUpdateIntervalTooShort,
				"%s since the last exchange rate update of %s, need %s", elapsed, p, limit.Interval)
		}
	}
	if s.TokenPool.IsPositive() {
		if bound := mulPermill(s.TokenPool, limit.MaxPermill); observation.GT(bound) {
			return errorsmod.Wrapf(types.ErrExchangeRateChangeTooLarge,
				"%s exceeds %d permill of the pool %s", observation, limit.MaxPermill, s.TokenPool)
		}
	}
	return nil
}
