package service_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	xddcfg "github.com/omnistake/xcm-delegator/delegator/config"
	"github.com/omnistake/xcm-delegator/delegator/service"
	"github.com/omnistake/xcm-delegator/testutil"
	"github.com/omnistake/xcm-delegator/types"
)

func startTestApp(r *rand.Rand, t *testing.T) (*service.App, *clock.Mock, *testutil.EventRecorder) {
	cfg := xddcfg.DefaultConfigWithHome(t.TempDir())
	cfg.Coordinator = testutil.TestCoordinatorConfig(r, t)
	cfg.Coordinator.PendingStatusTimeout = time.Hour
	cfg.Coordinator.ReapInterval = time.Minute

	db, err := cfg.DatabaseConfig.GetDbBackend()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	clk := clock.NewMock()
	rec := testutil.NewEventRecorder()
	app, err := service.NewApp(&cfg, db, testutil.PrepareMockedRouter(t), testutil.PrepareMockedLedger(t, sdkmath.NewInt(5_000)), rec, clk, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, app.Start())
	require.True(t, app.IsRunning())

	return app, clk, rec
}

func TestAppDispatchAndRespond(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	p := types.PolkadotStaking
	app, _, rec := startTestApp(r, t)
	ctx := context.Background()

	entry, err := app.AddDelegator(ctx, control, p, nil)
	require.NoError(t, err)
	require.NoError(t, app.SetXcmTaskFee(ctx, control, p, types.PolkadotBond, types.XcmFee{Weight: 1, Fee: sdkmath.NewInt(1)}))

	qid, err := app.DispatchTask(ctx, operator, p, entry.Delegator, types.NewTask(types.PolkadotBond).WithAmount(sdkmath.NewInt(500)))
	require.NoError(t, err)
	require.NotNil(t, qid)

	applied, err := app.NotifyResponse(ctx, response, *qid, types.SuccessResponse(p.Info().Destination))
	require.NoError(t, err)
	require.True(t, applied)

	ledger, err := app.Coordinator().Ledger(p, entry.Delegator)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(500), ledger.Locked)
	require.Equal(t, []string{"DelegatorAdded", "XcmTaskFeeSet", "SendXcmTask", "NotifyResponseReceived"}, rec.Names())

	require.NoError(t, app.Stop())
	require.False(t, app.IsRunning())
	_, err = app.AddDelegator(ctx, control, p, nil)
	require.ErrorIs(t, err, service.ErrAppShuttingDown)
}

func TestAppConcurrentDispatch(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	p := types.AstarDappStaking
	app, _, _ := startTestApp(r, t)
	defer func() {
		require.NoError(t, app.Stop())
	}()
	ctx := context.Background()

	entry, err := app.AddDelegator(ctx, control, p, nil)
	require.NoError(t, err)
	require.NoError(t, app.SetXcmTaskFee(ctx, control, p, types.AstarLock, types.XcmFee{Weight: 1, Fee: sdkmath.NewInt(1)}))

	const n = 20
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[types.QueryID]struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qid, err := app.DispatchTask(ctx, operator, p, entry.Delegator, types.NewTask(types.AstarLock).WithAmount(sdkmath.NewInt(1)))
			if err != nil || qid == nil {
				return
			}
			mu.Lock()
			ids[*qid] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, ids, n)

	for qid := range ids {
		applied, err := app.NotifyResponse(ctx, response, qid, types.SuccessResponse(p.Info().Destination))
		require.NoError(t, err)
		require.True(t, applied)
	}
	ledger, err := app.Coordinator().Ledger(p, entry.Delegator)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(n), ledger.Locked)
}

func TestAppReapsExpiredPendingStatuses(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	p := types.MoonbeamStaking
	app, clk, rec := startTestApp(r, t)
	defer func() {
		require.NoError(t, app.Stop())
	}()
	ctx := context.Background()

	entry, err := app.AddDelegator(ctx, control, p, nil)
	require.NoError(t, err)
	v := testutil.GenRandomValidator(r, t, p)
	require.NoError(t, app.AddValidator(ctx, control, p, entry.Delegator, v))
	require.NoError(t, app.SetXcmTaskFee(ctx, control, p, types.MoonbeamDelegate, types.XcmFee{Weight: 1, Fee: sdkmath.NewInt(1)}))

	_, err = app.DispatchTask(ctx, operator, p, entry.Delegator, types.NewTask(types.MoonbeamDelegate).WithValidators(v).WithAmount(sdkmath.NewInt(3)))
	require.NoError(t, err)

	clk.Add(time.Hour)
	clk.Add(time.Minute)
	require.Eventually(t, func() bool {
		pending, err := app.Coordinator().PendingStatuses()
		return err == nil && len(pending) == 0
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return rec.Last() != nil && rec.Last().EventName() == "PendingStatusReaped"
	}, 5*time.Second, 10*time.Millisecond)
}
