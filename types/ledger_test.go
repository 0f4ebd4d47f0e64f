package types_test

import (
	"math/rand"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omnistake/xcm-delegator/testutil"
	"github.com/omnistake/xcm-delegator/types"
)

func TestSaturatingArithmetic(t *testing.T) {
	one := sdkmath.OneInt()
	require.Equal(t, types.MaxBalance, types.SaturatingAdd(types.MaxBalance, one))
	require.True(t, types.SaturatingSub(one, sdkmath.NewInt(2)).IsZero())
	require.Equal(t, sdkmath.NewInt(3), types.SaturatingAdd(one, sdkmath.NewInt(2)))
	require.Error(t, types.ValidateBalance(types.MaxBalance.Add(one)))
	require.Error(t, types.ValidateBalance(sdkmath.NewInt(-1)))
	require.NoError(t, types.ValidateBalance(types.MaxBalance))
}

func TestSubtractLockAmount(t *testing.T) {
	l := types.NewLedger(types.AstarDappStaking)
	l.AddLockAmount(sdkmath.NewInt(100))

	require.NoError(t, l.SubtractLockAmount(sdkmath.NewInt(40), types.NewEra(1)))
	require.Equal(t, sdkmath.NewInt(60), l.Locked)
	require.Equal(t, []types.UnlockChunk{{Amount: sdkmath.NewInt(40), UnlockTime: types.NewEra(10)}}, l.Unlocking)

	// unlocks maturing together share a chunk
	require.NoError(t, l.SubtractLockAmount(sdkmath.NewInt(10), types.NewEra(1)))
	require.Len(t, l.Unlocking, 1)
	require.Equal(t, sdkmath.NewInt(50), l.Unlocking[0].Amount)

	// locked saturates while the chunk keeps the requested amount
	require.NoError(t, l.SubtractLockAmount(sdkmath.NewInt(80), types.NewEra(2)))
	require.True(t, l.Locked.IsZero())
	require.Equal(t, sdkmath.NewInt(80), l.Unlocking[1].Amount)

	require.ErrorIs(t, l.SubtractLockAmount(sdkmath.NewInt(1), types.NewRound(2)), types.ErrTimeUnitMismatch)
}

func TestSubtractLockAmountOverflow(t *testing.T) {
	p := types.MoonbeamStaking
	l := types.NewLedger(p)
	l.AddLockAmount(sdkmath.NewInt(1_000))
	collator := types.NewEthereumAccount(common.HexToAddress("0x00000000000000000000000000000000000000c1"))
	for i := 0; i < p.Info().MaxUnlockingChunks; i++ {
		require.NoError(t, l.SubtractValidatorLockAmount(collator, sdkmath.NewInt(1), types.NewRound(uint32(i))))
	}
	require.NoError(t, l.Validate())

	before := l.Clone()
	err := l.SubtractValidatorLockAmount(collator, sdkmath.NewInt(1), types.NewRound(100))
	require.ErrorIs(t, err, types.ErrUnlockRecordOverflow)
	require.Equal(t, before, l)
}

// FuzzDrainMaturedUnlocks checks that draining keeps exactly the immature
// chunks and never touches locked funds
func FuzzDrainMaturedUnlocks(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		r := rand.New(rand.NewSource(seed))
		p := testutil.GenRandomProtocol(r)
		l := testutil.GenRandomLedger(r, p)
		locked := l.Locked
		total := l.TotalUnlocking()

		now := testutil.GenRandomTimeUnit(r, p, uint32(3*p.Info().MaxUnlockingChunks))
		matured, err := l.DrainMaturedUnlocks(now)
		require.NoError(t, err)

		require.True(t, locked.Equal(l.Locked))
		require.True(t, total.Equal(types.SaturatingAdd(l.TotalUnlocking(), sumChunks(matured))))
		for _, c := range matured {
			require.LessOrEqual(t, c.UnlockTime.Value, now.Value)
		}
		for _, c := range l.Unlocking {
			require.Greater(t, c.UnlockTime.Value, now.Value)
		}

		// draining again at the same time is a no-op
		again, err := l.DrainMaturedUnlocks(now)
		require.NoError(t, err)
		require.Empty(t, again)
	})
}

func sumChunks(chunks []types.UnlockChunk) sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, c := range chunks {
		total = total.Add(c.Amount)
	}
	return total
}

func TestDrainMaturedUnlocksRejectsForeignUnit(t *testing.T) {
	l := types.NewLedger(types.PolkadotStaking)
	_, err := l.DrainMaturedUnlocks(types.NewRound(1))
	require.ErrorIs(t, err, types.ErrTimeUnitMismatch)
}

func TestRelock(t *testing.T) {
	newLedger := func() *types.Ledger {
		l := types.NewLedger(types.PolkadotStaking)
		l.AddLockAmount(sdkmath.NewInt(10))
		l.Unlocking = []types.UnlockChunk{
			{Amount: sdkmath.NewInt(5), UnlockTime: types.NewEra(30)},
			{Amount: sdkmath.NewInt(7), UnlockTime: types.NewEra(31)},
		}
		return l
	}

	l := newLedger()
	require.Equal(t, sdkmath.NewInt(12), l.Relock(nil))
	require.Equal(t, sdkmath.NewInt(22), l.Locked)
	require.Empty(t, l.Unlocking)

	// newest chunks go first
	l = newLedger()
	amount := sdkmath.NewInt(9)
	require.Equal(t, sdkmath.NewInt(9), l.Relock(&amount))
	require.Equal(t, sdkmath.NewInt(19), l.Locked)
	require.Equal(t, []types.UnlockChunk{{Amount: sdkmath.NewInt(3), UnlockTime: types.NewEra(30)}}, l.Unlocking)

	// asking for more than is unlocking relocks what there is
	l = newLedger()
	amount = sdkmath.NewInt(100)
	require.Equal(t, sdkmath.NewInt(12), l.Relock(&amount))
	require.Empty(t, l.Unlocking)
}

func TestValidatorScopedUnlocks(t *testing.T) {
	a := types.NewEthereumAccount(common.HexToAddress("0x000000000000000000000000000000000000000a"))
	b := types.NewEthereumAccount(common.HexToAddress("0x000000000000000000000000000000000000000b"))

	l := types.NewLedger(types.MoonbeamStaking)
	l.AddLockAmount(sdkmath.NewInt(200))
	require.NoError(t, l.SubtractValidatorLockAmount(a, sdkmath.NewInt(30), types.NewRound(1)))
	require.NoError(t, l.SubtractValidatorLockAmount(b, sdkmath.NewInt(50), types.NewRound(1)))
	require.NoError(t, l.SubtractValidatorLockAmount(a, sdkmath.NewInt(5), types.NewRound(1)))
	require.Equal(t, []types.UnlockChunk{
		{Amount: sdkmath.NewInt(35), UnlockTime: types.NewRound(29), Validator: &a},
		{Amount: sdkmath.NewInt(50), UnlockTime: types.NewRound(29), Validator: &b},
	}, l.Unlocking)

	require.Equal(t, sdkmath.NewInt(35), l.RelockValidator(a, nil))
	require.Equal(t, sdkmath.NewInt(150), l.Locked)
	require.Equal(t, []types.UnlockChunk{
		{Amount: sdkmath.NewInt(50), UnlockTime: types.NewRound(29), Validator: &b},
	}, l.Unlocking)

	matured, err := l.DrainMaturedValidatorUnlocks(a, types.NewRound(29))
	require.NoError(t, err)
	require.Empty(t, matured)
	require.Len(t, l.Unlocking, 1)

	matured, err = l.DrainMaturedValidatorUnlocks(b, types.NewRound(29))
	require.NoError(t, err)
	require.Len(t, matured, 1)
	require.Empty(t, l.Unlocking)
}

func TestLedgerValidate(t *testing.T) {
	p := types.AstarDappStaking
	l := types.NewLedger(p)
	require.NoError(t, l.Validate())
	require.True(t, l.IsEmpty())

	l.Unlocking = make([]types.UnlockChunk, p.Info().MaxUnlockingChunks+1)
	for i := range l.Unlocking {
		l.Unlocking[i] = types.UnlockChunk{Amount: sdkmath.OneInt(), UnlockTime: types.NewEra(uint32(i))}
	}
	require.ErrorIs(t, l.Validate(), types.ErrInvalidLedger)
	require.False(t, l.IsEmpty())

	// collator scoping is required on moonbeam and refused elsewhere
	collator := types.NewEthereumAccount(common.HexToAddress("0x00000000000000000000000000000000000000c1"))
	l = types.NewLedger(p)
	l.Unlocking = []types.UnlockChunk{{Amount: sdkmath.OneInt(), UnlockTime: types.NewEra(1), Validator: &collator}}
	require.ErrorIs(t, l.Validate(), types.ErrInvalidLedger)

	l = types.NewLedger(types.MoonbeamStaking)
	l.Unlocking = []types.UnlockChunk{{Amount: sdkmath.OneInt(), UnlockTime: types.NewRound(1)}}
	require.ErrorIs(t, l.Validate(), types.ErrInvalidLedger)
	l.Unlocking[0].Validator = &collator
	require.NoError(t, l.Validate())
}
