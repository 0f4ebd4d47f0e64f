package service

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/facebookgo/clock"
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/assets"
	xddcfg "github.com/omnistake/xcm-delegator/delegator/config"
	"github.com/omnistake/xcm-delegator/delegator/store"
	"github.com/omnistake/xcm-delegator/metrics"
	"github.com/omnistake/xcm-delegator/types"
	"github.com/omnistake/xcm-delegator/xcm"
)

// EventSink receives the events of committed state transitions.
type EventSink interface {
	Emit(ev types.Event)
}

// Coordinator implements every state transition of the delegation
// coordinator. It is not safe for concurrent use; App serializes the calls.
type Coordinator struct {
	cfg       *xddcfg.CoordinatorConfig
	operators map[string]struct{}

	store   *store.CoordinatorStore
	encoder *xcm.Encoder
	router  xcm.Router
	ledger  assets.Ledger
	clock   clock.Clock
	sink    EventSink
	metrics *metrics.DelegatorMetrics
	logger  *zap.Logger
}

func NewCoordinator(
	cfg *xddcfg.CoordinatorConfig,
	s *store.CoordinatorStore,
	router xcm.Router,
	ledger assets.Ledger,
	clk clock.Clock,
	sink EventSink,
	m *metrics.DelegatorMetrics,
	logger *zap.Logger,
) *Coordinator {
	operators := make(map[string]struct{}, len(cfg.Operators))
	for account := range cfg.Operators {
		operators[account] = struct{}{}
	}

	return &Coordinator{
		cfg:       cfg,
		operators: operators,
		store:     s,
		encoder:   xcm.NewEncoder(cfg.ParachainID),
		router:    router,
		ledger:    ledger,
		clock:     clk,
		sink:      sink,
		metrics:   m,
		logger:    logger,
	}
}

func (c *Coordinator) Encoder() *xcm.Encoder {
	return c.encoder
}

func (c *Coordinator) emit(ev types.Event) {
	c.logger.Debug("emitting event", zap.String("event", ev.EventName()))
	c.sink.Emit(ev)
}

func ensureControl(o types.Origin) error {
	if o.Kind != types.ControlOrigin {
		return errorsmod.Wrapf(types.ErrNotAuthorized, "%s is not the control origin", o)
	}
	return nil
}

// ensureOperator accepts the control origin and configured operators.
func (c *Coordinator) ensureOperator(o types.Origin) error {
	switch o.Kind {
	case types.ControlOrigin:
		return nil
	case types.OperatorOrigin:
		if _, ok := c.operators[o.Account]; ok {
			return nil
		}
	}
	return errorsmod.Wrapf(types.ErrNotAuthorized, "%s is not an operator", o)
}

func ensureResponse(o types.Origin) error {
	if o.Kind != types.ResponseOrigin {
		return errorsmod.Wrapf(types.ErrNotAuthorized, "%s cannot deliver responses", o)
	}
	return nil
}

func (c *Coordinator) recordLedger(p types.StakingProtocol, delegator types.Account, l *types.Ledger) {
	locked, _ := l.Locked.ToLegacyDec().Float64()
	unlocking, _ := l.TotalUnlocking().ToLegacyDec().Float64()
	c.metrics.RecordLedger(p.String(), delegator.String(), locked, unlocking)
}

func (c *Coordinator) refreshDelegatorCount(p types.StakingProtocol) {
	entries, err := c.store.ListDelegators(p)
	if err != nil {
		c.logger.Warn("failed to count delegators", zap.String("protocol", p.String()), zap.Error(err))
		return
	}
	c.metrics.SetRegisteredDelegators(p.String(), len(entries))
}

// RefreshMetrics recomputes the gauges derived from the store.
func (c *Coordinator) RefreshMetrics() error {
	pending, err := c.store.ListPendingStatuses()
	if err != nil {
		return fmt.Errorf("failed to list pending statuses: %w", err)
	}
	c.metrics.SetPendingStatuses(len(pending))

	for _, p := range types.AllProtocols {
		entries, err := c.store.ListDelegators(p)
		if err != nil {
			return fmt.Errorf("failed to list delegators of %s: %w", p, err)
		}
		c.metrics.SetRegisteredDelegators(p.String(), len(entries))
		for _, e := range entries {
			l, err := c.store.GetLedger(p, e.Delegator)
			if err != nil {
				return err
			}
			c.recordLedger(p, e.Delegator, l)
		}
	}
	c.metrics.UpdateElapsed()

	return nil
}
