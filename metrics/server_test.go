package metrics_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/metrics"
)

func TestMetricsServerServesCoordinatorCollectors(t *testing.T) {
	m := metrics.NewDelegatorMetrics()
	m.RecordDispatchedTask("PolkadotStaking", "Bond")

	srv, err := metrics.Start("127.0.0.1:0", zap.NewNop())
	require.NoError(t, err)

	resp, err := resty.New().R().Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Contains(t, resp.String(), `xcm_dispatched_tasks_total{protocol="PolkadotStaking",task="Bond"}`)

	// a second server cannot take the same address
	_, err = metrics.Start(srv.Addr(), zap.NewNop())
	require.Error(t, err)

	srv.Stop(context.Background())
	_, err = resty.New().R().Get("http://" + srv.Addr() + "/metrics")
	require.Error(t, err)
}
