package xcm

import (
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"

	"github.com/omnistake/xcm-delegator/types"
)

// staking pallet call indices
const (
	polkadotBond             = 0
	polkadotBondExtra        = 1
	polkadotUnbond           = 2
	polkadotWithdrawUnbonded = 3
	polkadotNominate         = 5
	polkadotChill            = 6
	polkadotPayoutStakers    = 18
	polkadotRebond           = 19
)

const (
	rewardDestinationStaked = 0
	multiAddressID          = 0
	// slashing spans hint for withdraw_unbonded
	defaultSlashingSpans = uint32(0)
)

type polkadotCalls struct{}

func (polkadotCalls) encodeCall(enc *scale.Encoder, info types.ProtocolInfo, delegator types.Account, task types.XcmTask) error {
	pallet := info.StakingPalletIndex

	switch task.Kind {
	case types.PolkadotBond:
		if err := writeCallIndex(enc, pallet, polkadotBond); err != nil {
			return err
		}
		if err := writeCompactAmount(enc, task); err != nil {
			return err
		}
		return enc.PushByte(rewardDestinationStaked)
	case types.PolkadotBondExtra:
		if err := writeCallIndex(enc, pallet, polkadotBondExtra); err != nil {
			return err
		}
		return writeCompactAmount(enc, task)
	case types.PolkadotUnbond:
		if err := writeCallIndex(enc, pallet, polkadotUnbond); err != nil {
			return err
		}
		return writeCompactAmount(enc, task)
	case types.PolkadotRebond:
		if err := writeCallIndex(enc, pallet, polkadotRebond); err != nil {
			return err
		}
		return writeCompactAmount(enc, task)
	case types.PolkadotWithdrawUnbonded:
		if err := writeCallIndex(enc, pallet, polkadotWithdrawUnbonded); err != nil {
			return err
		}
		return enc.Encode(defaultSlashingSpans)
	case types.PolkadotNominate:
		if err := writeCallIndex(enc, pallet, polkadotNominate); err != nil {
			return err
		}
		if err := enc.EncodeUintCompact(*big.NewInt(int64(len(task.Validators)))); err != nil {
			return err
		}
		for _, v := range task.Validators {
			if err := enc.PushByte(multiAddressID); err != nil {
				return err
			}
			if err := writeAccountID(enc, v); err != nil {
				return err
			}
		}
		return nil
	case types.PolkadotChill:
		return writeCallIndex(enc, pallet, polkadotChill)
	case types.PolkadotPayoutStakers:
		if err := writeCallIndex(enc, pallet, polkadotPayoutStakers); err != nil {
			return err
		}
		if err := writeAccountID(enc, task.Validator()); err != nil {
			return err
		}
		return enc.Encode(*task.Era)
	default:
		return fmt.Errorf("unsupported polkadot task %s", task.Kind)
	}
}
