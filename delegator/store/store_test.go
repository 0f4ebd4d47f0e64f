package store_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/omnistake/xcm-delegator/delegator/store"
	"github.com/omnistake/xcm-delegator/testutil"
	"github.com/omnistake/xcm-delegator/types"
	"github.com/omnistake/xcm-delegator/xcm"
)

const testParachainID = 2030

func deriveFor(p types.StakingProtocol) func(uint16) types.Account {
	enc := xcm.NewEncoder(testParachainID)
	return func(index uint16) types.Account {
		return enc.DerivativeAccount(p, index)
	}
}

// FuzzDelegatorDirectory tests registering and deregistering delegators
func FuzzDelegatorDirectory(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		r := rand.New(rand.NewSource(seed))
		s, _ := testutil.CreateStore(r, t)
		p := testutil.GenRandomProtocol(r)

		n := r.Intn(p.Info().MaxDelegators) + 1
		entries := make([]*store.DelegatorEntry, 0, n)
		for i := 0; i < n; i++ {
			entry, err := s.AddDelegator(p, nil, deriveFor(p))
			require.NoError(t, err)
			require.Equal(t, uint16(i), entry.Index)
			require.NoError(t, p.ValidateAccount(entry.Delegator))
			entries = append(entries, entry)

			ledger, err := s.GetLedger(p, entry.Delegator)
			require.NoError(t, err)
			require.True(t, ledger.IsEmpty())
		}

		listed, err := s.ListDelegators(p)
		require.NoError(t, err)
		require.Equal(t, entries, listed)

		// other protocols are not affected
		for _, other := range types.AllProtocols {
			if other == p {
				continue
			}
			otherList, err := s.ListDelegators(other)
			require.NoError(t, err)
			require.Empty(t, otherList)
		}

		// an explicit index that is in use is refused
		taken := entries[r.Intn(len(entries))].Index
		_, err = s.AddDelegator(p, &taken, deriveFor(p))
		require.ErrorIs(t, err, types.ErrDelegatorAlreadyExists)

		victim := entries[r.Intn(len(entries))]
		ledger := testutil.GenRandomLedger(r, p)
		require.NoError(t, s.SetLedger(p, victim.Delegator, ledger))
		_, err = s.RemoveDelegator(p, victim.Delegator)
		require.ErrorIs(t, err, types.ErrLedgerNotEmpty)

		require.NoError(t, s.SetLedger(p, victim.Delegator, types.NewLedger(p)))
		removedIndex, err := s.RemoveDelegator(p, victim.Delegator)
		require.NoError(t, err)
		require.Equal(t, victim.Index, removedIndex)

		_, err = s.GetLedger(p, victim.Delegator)
		require.ErrorIs(t, err, types.ErrDelegatorNotFound)
		_, err = s.DelegatorIndex(p, victim.Delegator)
		require.ErrorIs(t, err, types.ErrDelegatorNotFound)
		_, err = s.RemoveDelegator(p, victim.Delegator)
		require.ErrorIs(t, err, types.ErrDelegatorNotFound)

		// a retired index is never handed out again
		_, err = s.AddDelegator(p, &removedIndex, deriveFor(p))
		require.ErrorIs(t, err, types.ErrDelegatorAlreadyExists)
		if n < p.Info().MaxDelegators {
			entry, err := s.AddDelegator(p, nil, deriveFor(p))
			require.NoError(t, err)
			require.Equal(t, uint16(n), entry.Index)
		}
	})
}

func TestTooManyDelegators(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	s, _ := testutil.CreateStore(r, t)
	p := types.AstarDappStaking

	for i := 0; i < p.Info().MaxDelegators; i++ {
		_, err := s.AddDelegator(p, nil, deriveFor(p))
		require.NoError(t, err)
	}
	_, err := s.AddDelegator(p, nil, deriveFor(p))
	require.ErrorIs(t, err, types.ErrTooManyDelegators)
}

// FuzzValidatorSet tests the bounded validator set of a delegator
func FuzzValidatorSet(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		r := rand.New(rand.NewSource(seed))
		s, _ := testutil.CreateStore(r, t)
		p := testutil.GenRandomProtocol(r)

		unknown := testutil.GenRandomAccount(r, t, p.Info().AccountKind)
		err := s.AddValidator(p, unknown, testutil.GenRandomValidator(r, t, p))
		require.ErrorIs(t, err, types.ErrDelegatorNotFound)

		entry, err := s.AddDelegator(p, nil, deriveFor(p))
		require.NoError(t, err)

		max := p.Info().MaxValidators
		vals := make([]types.Account, 0, max)
		for i := 0; i < max; i++ {
			v := testutil.GenRandomValidator(r, t, p)
			require.NoError(t, s.AddValidator(p, entry.Delegator, v))
			vals = append(vals, v)
		}
		err = s.AddValidator(p, entry.Delegator, testutil.GenRandomValidator(r, t, p))
		require.ErrorIs(t, err, types.ErrTooManyValidators)
		err = s.AddValidator(p, entry.Delegator, vals[0])
		require.ErrorIs(t, err, types.ErrValidatorAlreadyExists)

		listed, err := s.ListValidators(p, entry.Delegator)
		require.NoError(t, err)
		require.Equal(t, vals, listed)

		removed := vals[r.Intn(len(vals))]
		require.NoError(t, s.RemoveValidator(p, entry.Delegator, removed))
		err = s.RemoveValidator(p, entry.Delegator, removed)
		require.ErrorIs(t, err, types.ErrValidatorNotFound)

		listed, err = s.ListValidators(p, entry.Delegator)
		require.NoError(t, err)
		require.Len(t, listed, max-1)
		require.NotContains(t, listed, removed)
	})
}

// FuzzPendingStatus tests that a pending status is consumed exactly once
func FuzzPendingStatus(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		r := rand.New(rand.NewSource(seed))
		s, _ := testutil.CreateStore(r, t)
		p := testutil.GenRandomProtocol(r)

		entry, err := s.AddDelegator(p, nil, deriveFor(p))
		require.NoError(t, err)

		n := r.Intn(10) + 1
		amounts := make([]sdkmath.Int, n)
		for i := 0; i < n; i++ {
			next, err := s.ReserveQueryID()
			require.NoError(t, err)
			require.Equal(t, types.QueryID(i), next)

			amounts[i] = testutil.GenRandomAmount(r, 1_000_000)
			lockKind := types.TaskKindsOf(p)[0]
			task := types.NewTask(lockKind).WithAmount(amounts[i])
			if p == types.MoonbeamStaking {
				task = task.WithValidators(testutil.GenRandomValidator(r, t, p))
			}
			ps := types.NewPendingStatus(next, p, entry.Delegator, task, time.Now())
			require.NotNil(t, ps)
			require.NoError(t, s.CommitPendingStatus(ps))

			err = s.CommitPendingStatus(ps)
			require.ErrorIs(t, err, store.ErrDuplicatePendingStatus)
		}

		list, err := s.ListPendingStatuses()
		require.NoError(t, err)
		require.Len(t, list, n)

		expected := sdkmath.ZeroInt()
		for i := 0; i < n; i++ {
			apply := func(ps *types.PendingStatus, ledger *types.Ledger) error {
				require.NotNil(t, ledger)
				ledger.AddLockAmount(*ps.Amount)
				return nil
			}
			res, err := s.ConsumePendingStatus(types.QueryID(i), apply)
			require.NoError(t, err)
			require.NotNil(t, res.Pending)
			require.NoError(t, res.ApplyErr)
			expected = expected.Add(amounts[i])
			require.True(t, expected.Equal(res.Ledger.Locked))

			// duplicate delivery is a no-op
			res, err = s.ConsumePendingStatus(types.QueryID(i), apply)
			require.NoError(t, err)
			require.Nil(t, res.Pending)
		}

		ledger, err := s.GetLedger(p, entry.Delegator)
		require.NoError(t, err)
		require.True(t, expected.Equal(ledger.Locked))

		list, err = s.ListPendingStatuses()
		require.NoError(t, err)
		require.Empty(t, list)
	})
}

func TestConsumePendingStatusWithApplyError(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	s, _ := testutil.CreateStore(r, t)
	p := types.PolkadotStaking

	entry, err := s.AddDelegator(p, nil, deriveFor(p))
	require.NoError(t, err)

	task := types.NewTask(types.PolkadotBond).WithAmount(sdkmath.NewInt(100))
	qid, err := s.ReserveQueryID()
	require.NoError(t, err)
	require.NoError(t, s.CommitPendingStatus(types.NewPendingStatus(qid, p, entry.Delegator, task, time.Now())))

	applyErr := errors.New("overflow")
	res, err := s.ConsumePendingStatus(0, func(ps *types.PendingStatus, ledger *types.Ledger) error {
		ledger.AddLockAmount(*ps.Amount)
		return applyErr
	})
	require.NoError(t, err)
	require.ErrorIs(t, res.ApplyErr, applyErr)
	require.Nil(t, res.Ledger)

	// record consumed, ledger untouched
	ps, err := s.GetPendingStatus(0)
	require.NoError(t, err)
	require.Nil(t, ps)
	ledger, err := s.GetLedger(p, entry.Delegator)
	require.NoError(t, err)
	require.True(t, ledger.Locked.IsZero())
}

func TestReservedQueryIDIsNeverReissued(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	s, _ := testutil.CreateStore(r, t)
	p := types.PolkadotStaking

	entry, err := s.AddDelegator(p, nil, deriveFor(p))
	require.NoError(t, err)
	bond := types.NewTask(types.PolkadotBond).WithAmount(sdkmath.NewInt(10))
	unbond := types.NewTask(types.PolkadotUnbond).WithAmount(sdkmath.NewInt(3))

	// an id that was never handed out cannot be committed
	err = s.CommitPendingStatus(types.NewPendingStatus(0, p, entry.Delegator, bond, time.Now()))
	require.ErrorIs(t, err, store.ErrQueryIDNotReserved)

	// the first id is reserved and its record never committed
	first, err := s.ReserveQueryID()
	require.NoError(t, err)
	require.Equal(t, types.QueryID(0), first)

	second, err := s.ReserveQueryID()
	require.NoError(t, err)
	require.Equal(t, types.QueryID(1), second)
	require.NoError(t, s.CommitPendingStatus(types.NewPendingStatus(second, p, entry.Delegator, unbond, time.Now())))

	// a late response to the first message finds nothing to apply
	res, err := s.ConsumePendingStatus(first, func(*types.PendingStatus, *types.Ledger) error {
		t.Fatal("no record must be applied for an uncommitted id")
		return nil
	})
	require.NoError(t, err)
	require.Nil(t, res.Pending)

	ps, err := s.GetPendingStatus(second)
	require.NoError(t, err)
	require.NotNil(t, ps)
	require.Equal(t, types.EffectUnlock, ps.Effect)

	next, err := s.NextQueryID()
	require.NoError(t, err)
	require.Equal(t, types.QueryID(2), next)
}

func TestReapPendingStatuses(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	s, _ := testutil.CreateStore(r, t)
	p := types.AstarDappStaking

	entry, err := s.AddDelegator(p, nil, deriveFor(p))
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		qid, err := s.ReserveQueryID()
		require.NoError(t, err)
		task := types.NewTask(types.AstarClaimUnlocked)
		ps := types.NewPendingStatus(qid, p, entry.Delegator, task, start.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.CommitPendingStatus(ps))
	}

	reaped, err := s.ReapPendingStatuses(start.Add(2 * time.Hour))
	require.NoError(t, err)
	require.Len(t, reaped, 2)
	require.Equal(t, types.QueryID(0), reaped[0].QueryID)
	require.Equal(t, types.QueryID(1), reaped[1].QueryID)

	left, err := s.ListPendingStatuses()
	require.NoError(t, err)
	require.Len(t, left, 2)

	// the counter is not rewound by reaping
	next, err := s.NextQueryID()
	require.NoError(t, err)
	require.Equal(t, types.QueryID(4), next)
}

func TestProtocolSettings(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	s, _ := testutil.CreateStore(r, t)
	p := types.MoonbeamStaking

	ps, err := s.GetProtocolSettings(p)
	require.NoError(t, err)
	require.Nil(t, ps.OngoingTimeUnit)
	require.True(t, ps.TokenPool.IsZero())

	unit := types.NewRound(42)
	_, err = s.UpdateProtocolSettings(p, func(ps *store.ProtocolSettings) error {
		ps.OngoingTimeUnit = &unit
		ps.ProtocolFeeRate = 100_000
		return nil
	})
	require.NoError(t, err)

	// a failing update writes nothing
	_, err = s.UpdateProtocolSettings(p, func(ps *store.ProtocolSettings) error {
		ps.ProtocolFeeRate = 1
		return types.ErrInvalidPermill
	})
	require.ErrorIs(t, err, types.ErrInvalidPermill)

	ps, err = s.GetProtocolSettings(p)
	require.NoError(t, err)
	require.Equal(t, unit, *ps.OngoingTimeUnit)
	require.Equal(t, uint32(100_000), ps.ProtocolFeeRate)

	_, err = s.GetXcmFee(p, types.MoonbeamDelegate)
	require.ErrorIs(t, err, types.ErrXcmFeeNotFound)
	fee := types.XcmFee{Weight: 5_000_000_000, Fee: sdkmath.NewInt(10_000)}
	require.NoError(t, s.SetXcmFee(p, types.MoonbeamDelegate, fee))
	got, err := s.GetXcmFee(p, types.MoonbeamDelegate)
	require.NoError(t, err)
	require.Equal(t, fee.Weight, got.Weight)
	require.True(t, fee.Fee.Equal(got.Fee))
}
