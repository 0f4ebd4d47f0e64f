package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/facebookgo/clock"
	"github.com/lightningnetwork/lnd/kvdb"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/assets"
	xddcfg "github.com/omnistake/xcm-delegator/delegator/config"
	"github.com/omnistake/xcm-delegator/delegator/store"
	"github.com/omnistake/xcm-delegator/metrics"
	"github.com/omnistake/xcm-delegator/queue"
	"github.com/omnistake/xcm-delegator/types"
	"github.com/omnistake/xcm-delegator/xcm"
)

var ErrAppShuttingDown = errors.New("delegation coordinator is shutting down")

type transitionRequest struct {
	ctx             context.Context
	name            string
	run             func(ctx context.Context) error
	errResponse     chan error
	successResponse chan struct{}
}

// App runs the coordinator behind a single event loop so that state
// transitions from the admin API, the response queue and the reaper are
// applied one at a time, in arrival order.
type App struct {
	startOnce sync.Once
	stopOnce  sync.Once
	isStarted *atomic.Bool

	wg   sync.WaitGroup
	quit chan struct{}

	eventWg   sync.WaitGroup
	eventQuit chan struct{}

	config      *xddcfg.Config
	store       *store.CoordinatorStore
	coordinator *Coordinator
	queueClient *queue.Client
	consumer    *queue.ResponseConsumer
	clock       clock.Clock
	metrics     *metrics.DelegatorMetrics
	logger      *zap.Logger

	reapTicker    *clock.Ticker
	metricsTicker *clock.Ticker

	transitionRequestChan chan *transitionRequest
}

// NewAppFromConfig connects to the broker and the asset ledger described by
// the config and builds the app on top of them.
func NewAppFromConfig(
	config *xddcfg.Config,
	db kvdb.Backend,
	logger *zap.Logger,
) (*App, error) {
	qc, err := queue.NewClient(config.Queue, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AMQP client: %w", err)
	}

	sink := MultiEventSink{NewLogEventSink(logger)}
	if ep := qc.EventPublisher(); ep != nil {
		sink = append(sink, ep)
	}

	app, err := NewApp(config, db, qc.Router(), assets.NewClient(config.Assets, logger), sink, clock.New(), logger)
	if err != nil {
		_ = qc.Close()
		return nil, err
	}
	app.queueClient = qc

	return app, nil
}

func NewApp(
	config *xddcfg.Config,
	db kvdb.Backend,
	router xcm.Router,
	ledger assets.Ledger,
	sink EventSink,
	clk clock.Clock,
	logger *zap.Logger,
) (*App, error) {
	s, err := store.NewCoordinatorStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate coordinator store: %w", err)
	}

	m := metrics.NewDelegatorMetrics()

	return &App{
		isStarted:             atomic.NewBool(false),
		config:                config,
		store:                 s,
		coordinator:           NewCoordinator(config.Coordinator, s, router, ledger, clk, sink, m, logger),
		clock:                 clk,
		metrics:               m,
		logger:                logger,
		quit:                  make(chan struct{}),
		eventQuit:             make(chan struct{}),
		transitionRequestChan: make(chan *transitionRequest),
	}, nil
}

func (app *App) GetConfig() *xddcfg.Config {
	return app.config
}

func (app *App) GetCoordinatorStore() *store.CoordinatorStore {
	return app.store
}

func (app *App) Coordinator() *Coordinator {
	return app.coordinator
}

func (app *App) Start() error {
	var startErr error
	app.startOnce.Do(func() {
		app.logger.Info("Starting delegation coordinator")

		if err := app.coordinator.RefreshMetrics(); err != nil {
			startErr = err
			return
		}

		app.eventWg.Add(1)
		go app.eventLoop()

		if app.config.Coordinator.PendingStatusTimeout > 0 {
			app.reapTicker = app.clock.Ticker(app.config.Coordinator.ReapInterval)
			app.wg.Add(1)
			go app.reapLoop()
		}

		app.metricsTicker = app.clock.Ticker(app.config.Metrics.UpdateInterval)
		app.wg.Add(1)
		go app.metricsLoop()

		if app.queueClient != nil {
			consumer, err := app.queueClient.ConsumeResponses(app.handleResponse)
			if err != nil {
				startErr = err
				return
			}
			app.consumer = consumer
		}

		app.isStarted.Store(true)
	})

	return startErr
}

func (app *App) Stop() error {
	var stopErr error
	app.stopOnce.Do(func() {
		app.logger.Info("Stopping delegation coordinator")

		// stop the producers of transitions before the loop that applies them
		if app.consumer != nil {
			app.logger.Debug("Stopping response consumer")
			app.consumer.Stop()
		}

		close(app.quit)
		if app.reapTicker != nil {
			app.reapTicker.Stop()
		}
		if app.metricsTicker != nil {
			app.metricsTicker.Stop()
		}
		app.wg.Wait()

		app.logger.Debug("Stopping main eventLoop")
		close(app.eventQuit)
		app.eventWg.Wait()

		if app.queueClient != nil {
			app.logger.Debug("Closing AMQP connection")
			if err := app.queueClient.Close(); err != nil {
				stopErr = err
			}
		}

		app.isStarted.Store(false)
		app.logger.Debug("Delegation coordinator successfully stopped")
	})
	return stopErr
}

func (app *App) IsRunning() bool {
	return app.isStarted.Load()
}

// submit hands run to the event loop and waits for its result.
func (app *App) submit(ctx context.Context, name string, run func(ctx context.Context) error) error {
	req := &transitionRequest{
		ctx:             ctx,
		name:            name,
		run:             run,
		errResponse:     make(chan error, 1),
		successResponse: make(chan struct{}, 1),
	}

	select {
	case app.transitionRequestChan <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-app.quit:
		return ErrAppShuttingDown
	}

	select {
	case err := <-req.errResponse:
		return err
	case <-req.successResponse:
		return nil
	case <-app.quit:
		return ErrAppShuttingDown
	}
}

// main event loop of the coordinator app
func (app *App) eventLoop() {
	defer app.eventWg.Done()

	for {
		select {
		case req := <-app.transitionRequestChan:
			if err := req.run(req.ctx); err != nil {
				app.logger.Debug("transition failed", zap.String("transition", req.name), zap.Error(err))
				req.errResponse <- err
				continue
			}
			req.successResponse <- struct{}{}

		case <-app.eventQuit:
			app.logger.Debug("exiting main event loop")
			return
		}
	}
}

func (app *App) reapLoop() {
	defer app.wg.Done()

	for {
		select {
		case <-app.reapTicker.C:
			err := app.submit(context.Background(), "reap_expired_pending", func(context.Context) error {
				_, err := app.coordinator.ReapExpiredPending()
				return err
			})
			if err != nil && !errors.Is(err, ErrAppShuttingDown) {
				app.logger.Error("failed to reap expired pending statuses", zap.Error(err))
			}
		case <-app.quit:
			app.logger.Debug("exiting reap loop")
			return
		}
	}
}

func (app *App) metricsLoop() {
	defer app.wg.Done()

	for {
		select {
		case <-app.metricsTicker.C:
			if err := app.coordinator.RefreshMetrics(); err != nil {
				app.logger.Warn("failed to refresh metrics", zap.Error(err))
			}
		case <-app.quit:
			app.logger.Debug("exiting metrics loop")
			return
		}
	}
}

func (app *App) handleResponse(ctx context.Context, queryID types.QueryID, resp types.Response) error {
	_, err := app.NotifyResponse(ctx, types.ResponseHandler(), queryID, resp)
	return err
}

func (app *App) AddDelegator(ctx context.Context, origin types.Origin, p types.StakingProtocol, index *uint16) (*store.DelegatorEntry, error) {
	var entry *store.DelegatorEntry
	err := app.submit(ctx, "add_delegator", func(context.Context) error {
		e, err := app.coordinator.AddDelegator(origin, p, index)
		entry = e
		return err
	})
	return entry, err
}

func (app *App) RemoveDelegator(ctx context.Context, origin types.Origin, p types.StakingProtocol, delegator types.Account) error {
	return app.submit(ctx, "remove_delegator", func(context.Context) error {
		return app.coordinator.RemoveDelegator(origin, p, delegator)
	})
}

func (app *App) AddValidator(ctx context.Context, origin types.Origin, p types.StakingProtocol, delegator, validator types.Account) error {
	return app.submit(ctx, "add_validator", func(context.Context) error {
		return app.coordinator.AddValidator(origin, p, delegator, validator)
	})
}

func (app *App) RemoveValidator(ctx context.Context, origin types.Origin, p types.StakingProtocol, delegator, validator types.Account) error {
	return app.submit(ctx, "remove_validator", func(context.Context) error {
		return app.coordinator.RemoveValidator(origin, p, delegator, validator)
	})
}

func (app *App) SetLedger(ctx context.Context, origin types.Origin, p types.StakingProtocol, delegator types.Account, ledger *types.Ledger) error {
	return app.submit(ctx, "set_ledger", func(context.Context) error {
		return app.coordinator.SetLedger(origin, p, delegator, ledger)
	})
}

func (app *App) SetXcmTaskFee(ctx context.Context, origin types.Origin, p types.StakingProtocol, kind types.TaskKind, fee types.XcmFee) error {
	return app.submit(ctx, "set_xcm_task_fee", func(context.Context) error {
		return app.coordinator.SetXcmTaskFee(origin, p, kind, fee)
	})
}

func (app *App) SetProtocolFeeRate(ctx context.Context, origin types.Origin, p types.StakingProtocol, permill uint32) error {
	return app.submit(ctx, "set_protocol_fee_rate", func(context.Context) error {
		return app.coordinator.SetProtocolFeeRate(origin, p, permill)
	})
}

func (app *App) SetUpdateOngoingTimeUnitInterval(ctx context.Context, origin types.Origin, p types.StakingProtocol, interval time.Duration) error {
	return app.submit(ctx, "set_update_ongoing_time_unit_interval", func(context.Context) error {
		return app.coordinator.SetUpdateOngoingTimeUnitInterval(origin, p, interval)
	})
}

func (app *App) UpdateOngoingTimeUnit(ctx context.Context, origin types.Origin, p types.StakingProtocol, unit *types.TimeUnit) (types.TimeUnit, error) {
	var updated types.TimeUnit
	err := app.submit(ctx, "update_ongoing_time_unit", func(context.Context) error {
		u, err := app.coordinator.UpdateOngoingTimeUnit(origin, p, unit)
		updated = u
		return err
	})
	return updated, err
}

func (app *App) SetUpdateTokenExchangeRateLimit(ctx context.Context, origin types.Origin, p types.StakingProtocol, interval time.Duration, maxPermill uint32) error {
	return app.submit(ctx, "set_update_token_exchange_rate_limit", func(context.Context) error {
		return app.coordinator.SetUpdateTokenExchangeRateLimit(origin, p, interval, maxPermill)
	})
}

func (app *App) UpdateTokenExchangeRate(
	ctx context.Context,
	origin types.Origin,
	p types.StakingProtocol,
	delegator types.Account,
	observation sdkmath.Int,
) (*types.TokenExchangeRateUpdated, error) {
	var ev *types.TokenExchangeRateUpdated
	err := app.submit(ctx, "update_token_exchange_rate", func(ctx context.Context) error {
		res, err := app.coordinator.UpdateTokenExchangeRate(ctx, origin, p, delegator, observation)
		ev = res
		return err
	})
	return ev, err
}

func (app *App) DispatchTask(
	ctx context.Context,
	origin types.Origin,
	p types.StakingProtocol,
	delegator types.Account,
	task types.XcmTask,
) (*types.QueryID, error) {
	var queryID *types.QueryID
	err := app.submit(ctx, "dispatch_task", func(ctx context.Context) error {
		qid, err := app.coordinator.DispatchTask(ctx, origin, p, delegator, task)
		queryID = qid
		return err
	})
	return queryID, err
}

func (app *App) NotifyResponse(ctx context.Context, origin types.Origin, queryID types.QueryID, resp types.Response) (bool, error) {
	var applied bool
	err := app.submit(ctx, "notify_response", func(context.Context) error {
		a, err := app.coordinator.NotifyResponse(origin, queryID, resp)
		applied = a
		return err
	})
	return applied, err
}
