package client_test

import (
	"context"
	"errors"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	xddcfg "github.com/omnistake/xcm-delegator/delegator/config"
	"github.com/omnistake/xcm-delegator/delegator/service"
	"github.com/omnistake/xcm-delegator/delegator/service/client"
	"github.com/omnistake/xcm-delegator/testutil"
	"github.com/omnistake/xcm-delegator/types"
)

func TestCoordinatorRpcClient(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	p := types.PolkadotStaking
	ctx := context.Background()

	cfg := xddcfg.DefaultConfigWithHome(t.TempDir())
	cfg.Coordinator = testutil.TestCoordinatorConfig(r, t)
	db, err := cfg.DatabaseConfig.GetDbBackend()
	require.NoError(t, err)
	defer db.Close()

	logger := zap.NewNop()
	app, err := service.NewApp(&cfg, db, testutil.PrepareMockedRouter(t), testutil.PrepareMockedLedger(t, sdkmath.NewInt(5_000)),
		testutil.NewEventRecorder(), clock.NewMock(), logger)
	require.NoError(t, err)
	require.NoError(t, app.Start())
	defer func() {
		require.NoError(t, app.Stop())
	}()

	srv := httptest.NewServer(service.NewRPCHandler(app, logger))
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")

	ctl := client.NewCoordinatorRpcClient(addr, testutil.TestControlToken)
	op := client.NewCoordinatorRpcClient(addr, testutil.TestOperatorToken)
	anon := client.NewCoordinatorRpcClient(addr, "")

	health, err := anon.Health(ctx)
	require.NoError(t, err)
	require.True(t, health.Running)
	_, err = anon.Delegators(ctx, p)
	require.ErrorContains(t, err, "401")

	// operators cannot manage the directory
	_, err = op.AddDelegator(ctx, p, nil)
	require.ErrorIs(t, err, types.ErrNotAuthorized)
	var remoteErr *client.RemoteError
	require.True(t, errors.As(err, &remoteErr))

	entry, err := ctl.AddDelegator(ctx, p, nil)
	require.NoError(t, err)
	require.Equal(t, uint16(0), entry.Index)
	delegators, err := op.Delegators(ctx, p)
	require.NoError(t, err)
	require.Len(t, delegators, 1)
	require.Equal(t, entry.Delegator, delegators[0].Delegator)

	v := testutil.GenRandomValidator(r, t, p)
	require.NoError(t, ctl.AddValidator(ctx, p, entry.Delegator, v))
	vals, err := op.Validators(ctx, p, entry.Delegator)
	require.NoError(t, err)
	require.Equal(t, []types.Account{v}, vals)
	require.NoError(t, ctl.RemoveValidator(ctx, p, entry.Delegator, v))
	require.ErrorIs(t, ctl.RemoveValidator(ctx, p, entry.Delegator, v), types.ErrValidatorNotFound)

	bond := types.NewTask(types.PolkadotBond).WithAmount(sdkmath.NewInt(500))
	_, err = op.DispatchTask(ctx, p, entry.Delegator, bond)
	require.ErrorIs(t, err, types.ErrXcmFeeNotFound)

	fee := types.XcmFee{Weight: 1_000, Fee: sdkmath.NewInt(10)}
	require.NoError(t, ctl.SetXcmTaskFee(ctx, p, types.PolkadotBond, fee))
	gotFee, err := op.XcmTaskFee(ctx, p, types.PolkadotBond)
	require.NoError(t, err)
	require.Equal(t, fee.Weight, gotFee.Weight)
	require.True(t, fee.Fee.Equal(gotFee.Fee))
	_, err = op.XcmTaskFee(ctx, p, types.AstarLock)
	require.ErrorIs(t, err, types.ErrInvalidTask)

	qid, err := op.DispatchTask(ctx, p, entry.Delegator, bond)
	require.NoError(t, err)
	require.NotNil(t, qid)
	pending, err := op.PendingStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, *qid, pending[0].QueryID)

	applied, err := app.NotifyResponse(ctx, types.ResponseHandler(), *qid, types.SuccessResponse(p.Info().Destination))
	require.NoError(t, err)
	require.True(t, applied)

	ledger, err := op.Ledger(ctx, p, entry.Delegator)
	require.NoError(t, err)
	require.True(t, ledger.Locked.Equal(sdkmath.NewInt(500)))
	require.ErrorIs(t, ctl.RemoveDelegator(ctx, p, entry.Delegator), types.ErrLedgerNotEmpty)
	_, err = op.Ledger(ctx, p, testutil.GenRandomAccount(r, t, types.SubstrateAccount))
	require.ErrorIs(t, err, types.ErrDelegatorNotFound)

	require.NoError(t, ctl.SetLedger(ctx, p, entry.Delegator, types.NewLedger(p)))
	require.NoError(t, ctl.RemoveDelegator(ctx, p, entry.Delegator))

	era := types.NewEra(5)
	_, err = op.UpdateOngoingTimeUnit(ctx, p, &era)
	require.ErrorIs(t, err, types.ErrNotAuthorized)
	unit, err := ctl.UpdateOngoingTimeUnit(ctx, p, &era)
	require.NoError(t, err)
	require.Equal(t, era, *unit)
	unit, err = op.UpdateOngoingTimeUnit(ctx, p, nil)
	require.NoError(t, err)
	require.Equal(t, types.NewEra(6), *unit)
	require.NoError(t, ctl.SetUpdateOngoingTimeUnitInterval(ctx, p, time.Hour))
	_, err = op.UpdateOngoingTimeUnit(ctx, p, nil)
	require.ErrorIs(t, err, types.ErrUpdateIntervalTooShort)
	unit, err = op.OngoingTimeUnit(ctx, p)
	require.NoError(t, err)
	require.Equal(t, types.NewEra(6), *unit)

	second, err := ctl.AddDelegator(ctx, p, nil)
	require.NoError(t, err)
	_, err = op.UpdateTokenExchangeRate(ctx, p, second.Delegator, sdkmath.NewInt(1_000))
	require.ErrorIs(t, err, types.ErrConfigurationNotFound)
	require.NoError(t, ctl.SetUpdateTokenExchangeRateLimit(ctx, p, time.Hour, 100_000))
	require.NoError(t, ctl.SetProtocolFeeRate(ctx, p, 0))
	updated, err := op.UpdateTokenExchangeRate(ctx, p, second.Delegator, sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.True(t, updated.TokenPool.Equal(sdkmath.NewInt(1_000)))

	rate, err := op.ExchangeRate(ctx, p)
	require.NoError(t, err)
	require.True(t, rate.TokenPool.Equal(sdkmath.NewInt(1_000)))
	require.True(t, rate.TotalIssuance.Equal(sdkmath.NewInt(5_000)))
}
