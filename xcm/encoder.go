package xcm

import (
	"bytes"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	gsrpctypes "github.com/centrifuge/go-substrate-rpc-client/v4/types"

	"github.com/omnistake/xcm-delegator/types"
)

// callEncoder writes the SCALE encoding of one protocol's staking calls.
type callEncoder interface {
	encodeCall(enc *scale.Encoder, info types.ProtocolInfo, delegator types.Account, task types.XcmTask) error
}

var callEncoders = map[types.StakingProtocol]callEncoder{
	types.AstarDappStaking: astarCalls{},
	types.PolkadotStaking:  polkadotCalls{},
	types.MoonbeamStaking:  moonbeamCalls{},
}

const asDerivativeCallIndex = 1

// Encoder turns tasks into remote calls that execute as derivative
// sub-accounts of the local parachain's sovereign account.
type Encoder struct {
	parachainID uint32
}

func NewEncoder(parachainID uint32) *Encoder {
	return &Encoder{parachainID: parachainID}
}

func (e *Encoder) ParachainID() uint32 {
	return e.parachainID
}

// SovereignAccount is the local parachain's account on the protocol's chain.
func (e *Encoder) SovereignAccount(p types.StakingProtocol) types.Account {
	return SovereignAccount(e.parachainID, p)
}

// DerivativeAccount is the sub-account addressed by index on the protocol's
// chain.
func (e *Encoder) DerivativeAccount(p types.StakingProtocol, index uint16) types.Account {
	return DerivativeAccount(e.SovereignAccount(p), p.Info().AccountKind, index)
}

// EncodeCall returns the bare staking call the delegator makes for the task.
func (e *Encoder) EncodeCall(p types.StakingProtocol, delegator types.Account, task types.XcmTask) ([]byte, error) {
	if err := task.ValidateBasic(p); err != nil {
		return nil, err
	}
	ce, ok := callEncoders[p]
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrUnknownProtocol, "no call encoder for %s", p)
	}

	var buf bytes.Buffer
	if err := ce.encodeCall(scale.NewEncoder(&buf), p.Info(), delegator, task); err != nil {
		return nil, fmt.Errorf("failed to encode %s call: %w", task.Kind, err)
	}
	return buf.Bytes(), nil
}

// EncodeTask returns the task call wrapped in utility.as_derivative(index).
func (e *Encoder) EncodeTask(p types.StakingProtocol, index uint16, task types.XcmTask) ([]byte, error) {
	call, err := e.EncodeCall(p, e.DerivativeAccount(p, index), task)
	if err != nil {
		return nil, err
	}
	return WrapAsDerivative(p.Info().UtilityPalletIndex, index, call)
}

// WrapAsDerivative encodes utility.as_derivative(index, call).
func WrapAsDerivative(utilityPallet uint8, index uint16, call []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	if err := enc.PushByte(utilityPallet); err != nil {
		return nil, err
	}
	if err := enc.PushByte(asDerivativeCallIndex); err != nil {
		return nil, err
	}
	if err := enc.Encode(index); err != nil {
		return nil, err
	}
	if err := enc.Write(call); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCallIndex(enc *scale.Encoder, pallet, call uint8) error {
	if err := enc.PushByte(pallet); err != nil {
		return err
	}
	return enc.PushByte(call)
}

func writeCompactAmount(enc *scale.Encoder, task types.XcmTask) error {
	return enc.EncodeUintCompact(*task.Amount.BigInt())
}

func writeU128Amount(enc *scale.Encoder, task types.XcmTask) error {
	return enc.Encode(gsrpctypes.NewU128(*task.Amount.BigInt()))
}

func writeAccountID(enc *scale.Encoder, a types.Account) error {
	return enc.Write(a.Bytes())
}
