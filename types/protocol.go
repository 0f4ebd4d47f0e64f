package types

import (
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
)

// StakingProtocol is the closed set of remote staking systems the
// coordinator can drive.
type StakingProtocol uint8

const (
	AstarDappStaking StakingProtocol = iota + 1
	PolkadotStaking
	MoonbeamStaking
)

// AllProtocols lists every supported protocol in declaration order.
var AllProtocols = []StakingProtocol{AstarDappStaking, PolkadotStaking, MoonbeamStaking}

// ProtocolInfo is the static descriptor of a staking protocol.
type ProtocolInfo struct {
	Name string
	// Destination is where outbound messages are sent and where responses
	// are expected to come from.
	Destination Location
	AccountKind AccountKind
	// ValidatorKinds lists the account kinds accepted as staking targets.
	ValidatorKinds []AccountKind
	// TimeUnitKind is the only kind of TimeUnit valid for this protocol.
	TimeUnitKind TimeUnitKind
	UnlockPeriod TimeUnit

	UtilityPalletIndex uint8
	StakingPalletIndex uint8

	MaxUnlockingChunks int
	MaxValidators      int
	MaxDelegators      int
	// ValidatorScopedUnlocks marks protocols where each unlock request
	// belongs to one validator and is executed or cancelled on its own.
	ValidatorScopedUnlocks bool

	NativeCurrency  string
	DerivedCurrency string
	Decimals        uint8
	SS58Prefix      uint16
}

var protocolInfos = map[StakingProtocol]ProtocolInfo{
	AstarDappStaking: {
		Name:               "AstarDappStaking",
		Destination:        SiblingParachain(2006),
		AccountKind:        SubstrateAccount,
		ValidatorKinds:     []AccountKind{EthereumAccount, SubstrateAccount},
		TimeUnitKind:       Era,
		UnlockPeriod:       NewEra(9),
		UtilityPalletIndex: 11,
		StakingPalletIndex: 34,
		MaxUnlockingChunks: 8,
		MaxValidators:      16,
		MaxDelegators:      16,
		NativeCurrency:     "ASTR",
		DerivedCurrency:    "vASTR",
		Decimals:           18,
		SS58Prefix:         5,
	},
	PolkadotStaking: {
		Name:               "PolkadotStaking",
		Destination:        RelayChain(),
		AccountKind:        SubstrateAccount,
		ValidatorKinds:     []AccountKind{SubstrateAccount},
		TimeUnitKind:       Era,
		UnlockPeriod:       NewEra(28),
		UtilityPalletIndex: 26,
		StakingPalletIndex: 7,
		MaxUnlockingChunks: 32,
		MaxValidators:      16,
		MaxDelegators:      64,
		NativeCurrency:     "DOT",
		DerivedCurrency:    "vDOT",
		Decimals:           10,
		SS58Prefix:         0,
	},
	MoonbeamStaking: {
		Name:                   "MoonbeamStaking",
		Destination:            SiblingParachain(2004),
		AccountKind:            EthereumAccount,
		ValidatorKinds:         []AccountKind{EthereumAccount},
		TimeUnitKind:           Round,
		UnlockPeriod:           NewRound(28),
		UtilityPalletIndex:     30,
		StakingPalletIndex:     20,
		MaxUnlockingChunks:     8,
		MaxValidators:          32,
		MaxDelegators:          16,
		ValidatorScopedUnlocks: true,
		NativeCurrency:         "GLMR",
		DerivedCurrency:        "vGLMR",
		Decimals:               18,
		SS58Prefix:             1284,
	},
}

// Info returns the descriptor of the protocol. It panics for values outside
// the enum; inputs from outside the process go through Validate first.
func (p StakingProtocol) Info() ProtocolInfo {
	info, ok := protocolInfos[p]
	if !ok {
		panic(fmt.Sprintf("no descriptor for staking protocol %d", uint8(p)))
	}
	return info
}

func (p StakingProtocol) Validate() error {
	if _, ok := protocolInfos[p]; !ok {
		return errorsmod.Wrapf(ErrUnknownProtocol, "%d", uint8(p))
	}
	return nil
}

func (p StakingProtocol) String() string {
	if info, ok := protocolInfos[p]; ok {
		return info.Name
	}
	return fmt.Sprintf("StakingProtocol(%d)", uint8(p))
}

// ParseStakingProtocol accepts the protocol name, case-insensitively.
func ParseStakingProtocol(s string) (StakingProtocol, error) {
	for _, p := range AllProtocols {
		if strings.EqualFold(p.String(), strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return 0, errorsmod.Wrapf(ErrUnknownProtocol, "%q", s)
}

func (p StakingProtocol) MarshalText() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return []byte(p.String()), nil
}

func (p *StakingProtocol) UnmarshalText(text []byte) error {
	parsed, err := ParseStakingProtocol(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ValidateTimeUnit checks that the unit is of the protocol's kind.
func (p StakingProtocol) ValidateTimeUnit(t TimeUnit) error {
	if t.Kind != p.Info().TimeUnitKind {
		return errorsmod.Wrapf(ErrInvalidTimeUnit, "%s expects %s units, got %s", p, p.Info().TimeUnitKind, t)
	}
	return nil
}

// ValidateAccount checks that the account is of the protocol's kind.
func (p StakingProtocol) ValidateAccount(a Account) error {
	if a.Kind != p.Info().AccountKind {
		return errorsmod.Wrapf(ErrInvalidAccount, "%s expects %s accounts, got %s", p, p.Info().AccountKind, a.Kind)
	}
	return nil
}

// ValidateValidator checks that the account can be a staking target of the
// protocol. Astar dApps may be EVM or Wasm contracts.
func (p StakingProtocol) ValidateValidator(v Account) error {
	for _, k := range p.Info().ValidatorKinds {
		if v.Kind == k {
			return nil
		}
	}
	return errorsmod.Wrapf(ErrInvalidValidator, "%s does not accept %s targets", p, v.Kind)
}
