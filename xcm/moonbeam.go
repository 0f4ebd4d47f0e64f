package xcm

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"

	"github.com/omnistake/xcm-delegator/types"
)

// parachain-staking call indices
const (
	moonbeamDelegate                  = 17
	moonbeamDelegatorBondMore         = 22
	moonbeamScheduleDelegatorBondLess = 23
	moonbeamExecuteDelegationRequest  = 24
	moonbeamCancelDelegationRequest   = 25
)

// Weight hints passed to delegate. They only need to be upper bounds.
const (
	candidateDelegationCountHint = uint32(1000)
	delegationCountHint          = uint32(100)
)

type moonbeamCalls struct{}

func (moonbeamCalls) encodeCall(enc *scale.Encoder, info types.ProtocolInfo, delegator types.Account, task types.XcmTask) error {
	pallet := info.StakingPalletIndex
	collator := task.Validator()

	switch task.Kind {
	case types.MoonbeamDelegate:
		if err := writeCallIndex(enc, pallet, moonbeamDelegate); err != nil {
			return err
		}
		if err := writeAccountID(enc, collator); err != nil {
			return err
		}
		if err := writeU128Amount(enc, task); err != nil {
			return err
		}
		if err := enc.Encode(candidateDelegationCountHint); err != nil {
			return err
		}
		return enc.Encode(delegationCountHint)
	case types.MoonbeamDelegatorBondMore, types.MoonbeamScheduleDelegatorBondLess:
		call := uint8(moonbeamDelegatorBondMore)
		if task.Kind == types.MoonbeamScheduleDelegatorBondLess {
			call = moonbeamScheduleDelegatorBondLess
		}
		if err := writeCallIndex(enc, pallet, call); err != nil {
			return err
		}
		if err := writeAccountID(enc, collator); err != nil {
			return err
		}
		return writeU128Amount(enc, task)
	case types.MoonbeamExecuteDelegationRequest:
		if err := writeCallIndex(enc, pallet, moonbeamExecuteDelegationRequest); err != nil {
			return err
		}
		if err := writeAccountID(enc, delegator); err != nil {
			return err
		}
		return writeAccountID(enc, collator)
	case types.MoonbeamCancelDelegationRequest:
		if err := writeCallIndex(enc, pallet, moonbeamCancelDelegationRequest); err != nil {
			return err
		}
		return writeAccountID(enc, collator)
	default:
		return fmt.Errorf("unsupported moonbeam task %s", task.Kind)
	}
}
