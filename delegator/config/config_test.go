package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	xddcfg "github.com/omnistake/xcm-delegator/delegator/config"
)

func TestLoadConfigRequiresFile(t *testing.T) {
	_, err := xddcfg.LoadConfig(t.TempDir())
	require.ErrorContains(t, err, "does not exist")
}

func TestWriteAndLoadConfig(t *testing.T) {
	homePath := t.TempDir()
	cfg := xddcfg.DefaultConfigWithHome(homePath)
	cfg.Coordinator.ParachainID = 2001
	cfg.Coordinator.ControlToken = "control-secret"
	cfg.Coordinator.Operators = map[string]string{"keeper": "keeper-secret"}
	cfg.Coordinator.PendingStatusTimeout = 2 * time.Hour
	require.NoError(t, xddcfg.WriteConfig(homePath, &cfg))

	loaded, err := xddcfg.LoadConfig(homePath)
	require.NoError(t, err)
	require.Equal(t, uint32(2001), loaded.Coordinator.ParachainID)
	require.Equal(t, "control-secret", loaded.Coordinator.ControlToken)
	require.Equal(t, "keeper-secret", loaded.Coordinator.Operators["keeper"])
	require.Equal(t, 2*time.Hour, loaded.Coordinator.PendingStatusTimeout)
	require.Equal(t, xddcfg.DataDir(homePath), loaded.DatabaseConfig.DBPath)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	homePath := t.TempDir()
	cfg := xddcfg.DefaultConfigWithHome(homePath)
	cfg.Coordinator.ParachainID = 0
	require.NoError(t, xddcfg.WriteConfig(homePath, &cfg))

	_, err := xddcfg.LoadConfig(homePath)
	require.ErrorContains(t, err, "parachain id")
}

func TestCoordinatorConfigValidate(t *testing.T) {
	cfg := xddcfg.DefaultCoordinatorConfig()
	require.NoError(t, cfg.Validate())

	cfg.ControlToken = "secret"
	cfg.Operators = map[string]string{"keeper": "secret"}
	require.ErrorContains(t, cfg.Validate(), "control token")

	cfg.Operators = map[string]string{"a": "t", "b": "t"}
	require.ErrorContains(t, cfg.Validate(), "share a token")

	cfg.Operators = nil
	cfg.PendingStatusTimeout = time.Hour
	cfg.ReapInterval = 0
	require.Error(t, cfg.Validate())

	cfg.ReapInterval = time.Minute
	cfg.FeeAccount = "not-an-account"
	require.Error(t, cfg.Validate())
}
