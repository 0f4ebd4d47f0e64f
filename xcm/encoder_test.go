package xcm_test

import (
	"math/rand"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/omnistake/xcm-delegator/testutil"
	"github.com/omnistake/xcm-delegator/types"
	"github.com/omnistake/xcm-delegator/xcm"
)

func TestWrapAsDerivative(t *testing.T) {
	wrapped, err := xcm.WrapAsDerivative(26, 3, []byte{0xaa, 0xbb})
	require.NoError(t, err)
	require.Equal(t, []byte{26, 1, 3, 0, 0xaa, 0xbb}, wrapped)
}

func TestEncodeAstarLock(t *testing.T) {
	r := rand.New(rand.NewSource(10))
	p := types.AstarDappStaking
	enc := xcm.NewEncoder(testutil.TestParachainID)
	delegator := testutil.GenRandomAccount(r, t, types.SubstrateAccount)

	call, err := enc.EncodeCall(p, delegator, types.NewTask(types.AstarLock).WithAmount(sdkmath.NewInt(100)))
	require.NoError(t, err)
	// compact(100) is two bytes
	require.Equal(t, []byte{p.Info().StakingPalletIndex, 7, 0x91, 0x01}, call)

	wrapped, err := enc.EncodeTask(p, 0, types.NewTask(types.AstarLock).WithAmount(sdkmath.NewInt(100)))
	require.NoError(t, err)
	require.Equal(t, append([]byte{p.Info().UtilityPalletIndex, 1, 0, 0}, call...), wrapped)
}

func TestEncodeRejectsMalformedTasks(t *testing.T) {
	enc := xcm.NewEncoder(testutil.TestParachainID)

	_, err := enc.EncodeTask(types.PolkadotStaking, 0, types.NewTask(types.AstarLock).WithAmount(sdkmath.NewInt(1)))
	require.ErrorIs(t, err, types.ErrInvalidTask)

	_, err = enc.EncodeTask(types.MoonbeamStaking, 0, types.NewTask(types.MoonbeamDelegate).WithAmount(sdkmath.NewInt(1)))
	require.ErrorIs(t, err, types.ErrInvalidTask)
}

func TestSovereignAccount(t *testing.T) {
	relay := xcm.SovereignAccount(2030, types.PolkadotStaking)
	require.Equal(t, types.SubstrateAccount, relay.Kind)
	want := make([]byte, 32)
	copy(want, []byte{'p', 'a', 'r', 'a', 0xee, 0x07, 0, 0})
	require.Equal(t, want, relay.Bytes())

	sibling := xcm.SovereignAccount(2030, types.MoonbeamStaking)
	require.Equal(t, types.EthereumAccount, sibling.Kind)
	want = make([]byte, 20)
	copy(want, []byte{'s', 'i', 'b', 'l', 0xee, 0x07, 0, 0})
	require.Equal(t, want, sibling.Bytes())
}

// FuzzEncodeTask checks that every well formed task encodes deterministically
// under the utility prefix, and that derivative accounts are distinct per
// index.
func FuzzEncodeTask(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		r := rand.New(rand.NewSource(seed))
		p := testutil.GenRandomProtocol(r)
		enc := xcm.NewEncoder(uint32(r.Intn(4000)) + 1)
		validators := []types.Account{testutil.GenRandomValidator(r, t, p)}
		task := testutil.GenRandomTask(r, p, validators)
		index := uint16(r.Intn(p.Info().MaxDelegators))

		first, err := enc.EncodeTask(p, index, task)
		require.NoError(t, err)
		second, err := enc.EncodeTask(p, index, task)
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.Equal(t, []byte{p.Info().UtilityPalletIndex, 1, byte(index), byte(index >> 8)}, first[:4])
		require.Equal(t, p.Info().StakingPalletIndex, first[4])

		a := enc.DerivativeAccount(p, index)
		b := enc.DerivativeAccount(p, index+1)
		require.Equal(t, p.Info().AccountKind, a.Kind)
		require.NotEqual(t, a, b)
		require.Equal(t, a, enc.DerivativeAccount(p, index))
	})
}
