package xcm

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"

	"github.com/omnistake/xcm-delegator/types"
)

// dApp staking v3 call indices
const (
	astarLock               = 7
	astarUnlock             = 8
	astarClaimUnlocked      = 9
	astarRelockUnlocking    = 10
	astarStake              = 11
	astarUnstake            = 12
	astarClaimStakerRewards = 13
	astarClaimBonusReward   = 14
)

// SmartContract variants
const (
	astarEvmContract  = 0
	astarWasmContract = 1
)

type astarCalls struct{}

func (astarCalls) encodeCall(enc *scale.Encoder, info types.ProtocolInfo, delegator types.Account, task types.XcmTask) error {
	pallet := info.StakingPalletIndex

	switch task.Kind {
	case types.AstarLock:
		if err := writeCallIndex(enc, pallet, astarLock); err != nil {
			return err
		}
		return writeCompactAmount(enc, task)
	case types.AstarUnlock:
		if err := writeCallIndex(enc, pallet, astarUnlock); err != nil {
			return err
		}
		return writeCompactAmount(enc, task)
	case types.AstarClaimUnlocked:
		return writeCallIndex(enc, pallet, astarClaimUnlocked)
	case types.AstarRelockUnlocking:
		return writeCallIndex(enc, pallet, astarRelockUnlocking)
	case types.AstarStake, types.AstarUnstake:
		call := uint8(astarStake)
		if task.Kind == types.AstarUnstake {
			call = astarUnstake
		}
		if err := writeCallIndex(enc, pallet, call); err != nil {
			return err
		}
		if err := writeSmartContract(enc, task.Validator()); err != nil {
			return err
		}
		return writeCompactAmount(enc, task)
	case types.AstarClaimStakerRewards:
		return writeCallIndex(enc, pallet, astarClaimStakerRewards)
	case types.AstarClaimBonusReward:
		if err := writeCallIndex(enc, pallet, astarClaimBonusReward); err != nil {
			return err
		}
		return writeSmartContract(enc, task.Validator())
	default:
		return fmt.Errorf("unsupported astar task %s", task.Kind)
	}
}

func writeSmartContract(enc *scale.Encoder, contract types.Account) error {
	variant := byte(astarWasmContract)
	if contract.Kind == types.EthereumAccount {
		variant = astarEvmContract
	}
	if err := enc.PushByte(variant); err != nil {
		return err
	}
	return writeAccountID(enc, contract)
}
