package testutil

import (
	"encoding/hex"
	"math/rand"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omnistake/xcm-delegator/types"
)

func GenRandomByteArray(r *rand.Rand, length uint64) []byte {
	newHeaderBytes := make([]byte, length)
	r.Read(newHeaderBytes)
	return newHeaderBytes
}

func GenRandomHexStr(r *rand.Rand, length uint64) string {
	randBytes := GenRandomByteArray(r, length)
	return hex.EncodeToString(randBytes)
}

func AddRandomSeedsToFuzzer(f *testing.F, num uint) {
	// Seed based on the current time
	r := rand.New(rand.NewSource(time.Now().Unix()))
	var idx uint
	for idx = 0; idx < num; idx++ {
		f.Add(r.Int63())
	}
}

func GenRandomProtocol(r *rand.Rand) types.StakingProtocol {
	return types.AllProtocols[r.Intn(len(types.AllProtocols))]
}

// GenRandomAccount returns a random account of the given kind.
func GenRandomAccount(r *rand.Rand, t *testing.T, kind types.AccountKind) types.Account {
	if kind == types.EthereumAccount {
		return types.NewEthereumAccount(common.BytesToAddress(GenRandomByteArray(r, common.AddressLength)))
	}
	a, err := types.NewAccountFromBytes(types.SubstrateAccount, GenRandomByteArray(r, 32))
	require.NoError(t, err)
	return a
}

// GenRandomValidator returns a random target accepted by the protocol.
func GenRandomValidator(r *rand.Rand, t *testing.T, p types.StakingProtocol) types.Account {
	kinds := p.Info().ValidatorKinds
	return GenRandomAccount(r, t, kinds[r.Intn(len(kinds))])
}

// GenRandomAmount returns an amount in [1, max].
func GenRandomAmount(r *rand.Rand, max int64) sdkmath.Int {
	return sdkmath.NewInt(r.Int63n(max) + 1)
}

// GenRandomTimeUnit returns a unit of the protocol's kind.
func GenRandomTimeUnit(r *rand.Rand, p types.StakingProtocol, max uint32) types.TimeUnit {
	return types.TimeUnit{Kind: p.Info().TimeUnitKind, Value: uint32(r.Int63n(int64(max) + 1))}
}

// GenRandomTask returns a well formed task of a random kind of the protocol.
// Tasks referencing validators use the given ones.
func GenRandomTask(r *rand.Rand, p types.StakingProtocol, validators []types.Account) types.XcmTask {
	kinds := types.TaskKindsOf(p)
	for {
		task := types.NewTask(kinds[r.Intn(len(kinds))])
		switch task.Kind {
		case types.AstarLock, types.AstarUnlock,
			types.PolkadotBond, types.PolkadotBondExtra, types.PolkadotUnbond, types.PolkadotRebond:
			return task.WithAmount(GenRandomAmount(r, 1_000_000))
		case types.AstarStake, types.AstarUnstake,
			types.MoonbeamDelegate, types.MoonbeamDelegatorBondMore, types.MoonbeamScheduleDelegatorBondLess:
			if len(validators) == 0 {
				continue
			}
			return task.WithValidators(validators[r.Intn(len(validators))]).WithAmount(GenRandomAmount(r, 1_000_000))
		case types.AstarClaimBonusReward,
			types.MoonbeamExecuteDelegationRequest, types.MoonbeamCancelDelegationRequest:
			if len(validators) == 0 {
				continue
			}
			return task.WithValidators(validators[r.Intn(len(validators))])
		case types.PolkadotPayoutStakers:
			if len(validators) == 0 {
				continue
			}
			return task.WithValidators(validators[r.Intn(len(validators))]).WithEra(uint32(r.Intn(1000)))
		case types.PolkadotNominate:
			if len(validators) == 0 {
				continue
			}
			return task.WithValidators(validators...)
		default:
			return task
		}
	}
}

// GenRandomLedger returns a valid non-empty ledger of the protocol.
func GenRandomLedger(r *rand.Rand, p types.StakingProtocol) *types.Ledger {
	l := types.NewLedger(p)
	l.AddLockAmount(GenRandomAmount(r, 1_000_000))
	n := r.Intn(p.Info().MaxUnlockingChunks) + 1
	for i := 0; i < n; i++ {
		chunk := types.UnlockChunk{
			Amount:     GenRandomAmount(r, 1_000_000),
			UnlockTime: types.TimeUnit{Kind: p.Info().TimeUnitKind, Value: uint32(i * 3)},
		}
		if p.Info().ValidatorScopedUnlocks {
			collator := types.NewEthereumAccount(common.BytesToAddress(GenRandomByteArray(r, common.AddressLength)))
			chunk.Validator = &collator
		}
		l.Unlocking = append(l.Unlocking, chunk)
	}
	return l
}
