package types

import (
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
)

// TaskKind enumerates every remote operation of every protocol. Each kind
// belongs to exactly one protocol.
type TaskKind uint8

const (
	AstarLock TaskKind = iota + 1
	AstarUnlock
	AstarClaimUnlocked
	AstarRelockUnlocking
	AstarStake
	AstarUnstake
	AstarClaimStakerRewards
	AstarClaimBonusReward

	PolkadotBond
	PolkadotBondExtra
	PolkadotUnbond
	PolkadotRebond
	PolkadotWithdrawUnbonded
	PolkadotNominate
	PolkadotChill
	PolkadotPayoutStakers

	MoonbeamDelegate
	MoonbeamDelegatorBondMore
	MoonbeamScheduleDelegatorBondLess
	MoonbeamExecuteDelegationRequest
	MoonbeamCancelDelegationRequest
)

// validator arity of a task
const (
	noValidator = iota
	oneValidator
	manyValidators
)

type taskKindInfo struct {
	protocol   StakingProtocol
	name       string
	effect     Effect
	amount     bool
	validators int
	era        bool
}

var taskKinds = map[TaskKind]taskKindInfo{
	AstarLock:               {AstarDappStaking, "Lock", EffectLock, true, noValidator, false},
	AstarUnlock:             {AstarDappStaking, "Unlock", EffectUnlock, true, noValidator, false},
	AstarClaimUnlocked:      {AstarDappStaking, "ClaimUnlocked", EffectClaimUnlocked, false, noValidator, false},
	AstarRelockUnlocking:    {AstarDappStaking, "RelockUnlocking", EffectRelock, false, noValidator, false},
	AstarStake:              {AstarDappStaking, "Stake", EffectNone, true, oneValidator, false},
	AstarUnstake:            {AstarDappStaking, "Unstake", EffectNone, true, oneValidator, false},
	AstarClaimStakerRewards: {AstarDappStaking, "ClaimStakerRewards", EffectNone, false, noValidator, false},
	AstarClaimBonusReward:   {AstarDappStaking, "ClaimBonusReward", EffectNone, false, oneValidator, false},

	PolkadotBond:             {PolkadotStaking, "Bond", EffectLock, true, noValidator, false},
	PolkadotBondExtra:        {PolkadotStaking, "BondExtra", EffectLock, true, noValidator, false},
	PolkadotUnbond:           {PolkadotStaking, "Unbond", EffectUnlock, true, noValidator, false},
	PolkadotRebond:           {PolkadotStaking, "Rebond", EffectRelock, true, noValidator, false},
	PolkadotWithdrawUnbonded: {PolkadotStaking, "WithdrawUnbonded", EffectClaimUnlocked, false, noValidator, false},
	PolkadotNominate:         {PolkadotStaking, "Nominate", EffectVote, false, manyValidators, false},
	PolkadotChill:            {PolkadotStaking, "Chill", EffectRemoveVote, false, noValidator, false},
	PolkadotPayoutStakers:    {PolkadotStaking, "PayoutStakers", EffectNone, false, oneValidator, true},

	MoonbeamDelegate:                  {MoonbeamStaking, "Delegate", EffectLock, true, oneValidator, false},
	MoonbeamDelegatorBondMore:         {MoonbeamStaking, "DelegatorBondMore", EffectLock, true, oneValidator, false},
	MoonbeamScheduleDelegatorBondLess: {MoonbeamStaking, "ScheduleDelegatorBondLess", EffectUnlock, true, oneValidator, false},
	MoonbeamExecuteDelegationRequest:  {MoonbeamStaking, "ExecuteDelegationRequest", EffectClaimUnlocked, false, oneValidator, false},
	MoonbeamCancelDelegationRequest:   {MoonbeamStaking, "CancelDelegationRequest", EffectRelock, false, oneValidator, false},
}

// TaskKindsOf returns the kinds belonging to a protocol in declaration order.
func TaskKindsOf(p StakingProtocol) []TaskKind {
	var kinds []TaskKind
	for k := AstarLock; k <= MoonbeamCancelDelegationRequest; k++ {
		if taskKinds[k].protocol == p {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (k TaskKind) info() (taskKindInfo, error) {
	info, ok := taskKinds[k]
	if !ok {
		return taskKindInfo{}, errorsmod.Wrapf(ErrInvalidTask, "unknown task kind %d", uint8(k))
	}
	return info, nil
}

// Protocol returns the protocol the kind belongs to, or zero for unknown
// kinds.
func (k TaskKind) Protocol() StakingProtocol {
	return taskKinds[k].protocol
}

// Effect returns the ledger effect a confirmed task of this kind has.
func (k TaskKind) Effect() Effect {
	return taskKinds[k].effect
}

// ValidateFor checks that the kind belongs to the protocol.
func (k TaskKind) ValidateFor(p StakingProtocol) error {
	info, err := k.info()
	if err != nil {
		return err
	}
	if info.protocol != p {
		return errorsmod.Wrapf(ErrInvalidTask, "%s is a %s task, not %s", info.name, info.protocol, p)
	}
	return nil
}

func (k TaskKind) String() string {
	if info, ok := taskKinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("TaskKind(%d)", uint8(k))
}

func ParseTaskKind(s string) (TaskKind, error) {
	s = strings.TrimSpace(s)
	for k, info := range taskKinds {
		if strings.EqualFold(info.name, s) {
			return k, nil
		}
	}
	return 0, errorsmod.Wrapf(ErrInvalidTask, "unknown task kind %q", s)
}

func (k TaskKind) MarshalText() ([]byte, error) {
	if _, err := k.info(); err != nil {
		return nil, err
	}
	return []byte(k.String()), nil
}

func (k *TaskKind) UnmarshalText(text []byte) error {
	parsed, err := ParseTaskKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// XcmTask is one staking intent for a remote protocol. Which optional fields
// are required depends on the kind.
type XcmTask struct {
	Kind       TaskKind     `json:"kind"`
	Amount     *sdkmath.Int `json:"amount,omitempty"`
	Validators []Account    `json:"validators,omitempty"`
	Era        *uint32      `json:"era,omitempty"`
}

func NewTask(kind TaskKind) XcmTask {
	return XcmTask{Kind: kind}
}

func (t XcmTask) WithAmount(amount sdkmath.Int) XcmTask {
	t.Amount = &amount
	return t
}

func (t XcmTask) WithValidators(validators ...Account) XcmTask {
	t.Validators = append([]Account{}, validators...)
	return t
}

func (t XcmTask) WithEra(era uint32) XcmTask {
	t.Era = &era
	return t
}

// Validator returns the single target of tasks that take one.
func (t XcmTask) Validator() Account {
	if len(t.Validators) == 0 {
		return Account{}
	}
	return t.Validators[0]
}

// ValidateBasic checks the task shape against its kind and the protocol. It
// does not consult the validator directory.
func (t XcmTask) ValidateBasic(p StakingProtocol) error {
	if err := t.Kind.ValidateFor(p); err != nil {
		return err
	}
	info, _ := t.Kind.info()

	if info.amount {
		if t.Amount == nil {
			return errorsmod.Wrapf(ErrInvalidTask, "%s requires an amount", info.name)
		}
		if err := ValidateBalance(*t.Amount); err != nil {
			return err
		}
		if t.Amount.IsZero() {
			return errorsmod.Wrapf(ErrInvalidAmount, "%s with zero amount", info.name)
		}
	} else if t.Amount != nil {
		return errorsmod.Wrapf(ErrInvalidTask, "%s takes no amount", info.name)
	}

	switch info.validators {
	case noValidator:
		if len(t.Validators) != 0 {
			return errorsmod.Wrapf(ErrInvalidTask, "%s takes no validator", info.name)
		}
	case oneValidator:
		if len(t.Validators) != 1 {
			return errorsmod.Wrapf(ErrInvalidTask, "%s takes exactly one validator", info.name)
		}
	case manyValidators:
		if len(t.Validators) == 0 || len(t.Validators) > p.Info().MaxValidators {
			return errorsmod.Wrapf(ErrInvalidTask, "%s takes 1 to %d validators", info.name, p.Info().MaxValidators)
		}
	}
	for _, v := range t.Validators {
		if err := p.ValidateValidator(v); err != nil {
			return err
		}
	}

	if info.era != (t.Era != nil) {
		return errorsmod.Wrapf(ErrInvalidTask, "%s era argument mismatch", info.name)
	}

	return nil
}
