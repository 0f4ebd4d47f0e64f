package testutil

import (
	"math/rand"
	"testing"

	"github.com/lightningnetwork/lnd/kvdb"
	"github.com/stretchr/testify/require"

	"github.com/omnistake/xcm-delegator/config"
	"github.com/omnistake/xcm-delegator/delegator/store"
)

func GenDBConfig(r *rand.Rand, t *testing.T) *config.DBConfig {
	dbcfg := config.DefaultDBConfigWithHomePath(t.TempDir())
	dbcfg.DBFileName = GenRandomHexStr(r, 8) + ".db"
	return dbcfg
}

// CreateStore opens a coordinator store on a fresh bolt file that is closed
// when the test ends.
func CreateStore(r *rand.Rand, t *testing.T) (*store.CoordinatorStore, kvdb.Backend) {
	db, err := GenDBConfig(r, t).GetDbBackend()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	s, err := store.NewCoordinatorStore(db)
	require.NoError(t, err)

	return s, db
}
