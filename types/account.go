package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vedhavyas/go-subkey/v2"
)

// AccountKind tells how a remote account is addressed.
type AccountKind uint8

const (
	SubstrateAccount AccountKind = iota + 1
	EthereumAccount
)

const (
	substrateAccountLen = 32
	ethereumAccountLen  = common.AddressLength

	ss58ChecksumLen = 2
	maxSS58Prefix   = 16383
)

func (k AccountKind) String() string {
	switch k {
	case SubstrateAccount:
		return "substrate"
	case EthereumAccount:
		return "ethereum"
	default:
		return fmt.Sprintf("AccountKind(%d)", uint8(k))
	}
}

// Len returns the byte length of an account of this kind.
func (k AccountKind) Len() int {
	switch k {
	case SubstrateAccount:
		return substrateAccountLen
	case EthereumAccount:
		return ethereumAccountLen
	default:
		return 0
	}
}

// Account identifies a delegator sub-account or a validator on a remote
// chain. It is comparable and can be used as a map key.
type Account struct {
	Kind AccountKind
	raw  [substrateAccountLen]byte
}

func NewSubstrateAccount(id [32]byte) Account {
	return Account{Kind: SubstrateAccount, raw: id}
}

func NewEthereumAccount(addr common.Address) Account {
	a := Account{Kind: EthereumAccount}
	copy(a.raw[:], addr.Bytes())
	return a
}

// NewAccountFromBytes builds an account of the given kind from its raw bytes.
func NewAccountFromBytes(kind AccountKind, b []byte) (Account, error) {
	if kind.Len() == 0 {
		return Account{}, errorsmod.Wrapf(ErrInvalidAccount, "unknown account kind %d", kind)
	}
	if len(b) != kind.Len() {
		return Account{}, errorsmod.Wrapf(ErrInvalidAccount, "expected %d bytes for %s account, got %d", kind.Len(), kind, len(b))
	}
	a := Account{Kind: kind}
	copy(a.raw[:], b)
	return a, nil
}

// ParseAccount accepts 0x-prefixed hex (32 bytes for substrate accounts, 20
// bytes for ethereum accounts) or an SS58 encoded substrate address.
func ParseAccount(s string) (Account, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if common.IsHexAddress(s) {
			return NewEthereumAccount(common.HexToAddress(s)), nil
		}
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return Account{}, errorsmod.Wrapf(ErrInvalidAccount, "invalid hex %q: %v", s, err)
		}
		return NewAccountFromBytes(SubstrateAccount, b)
	}

	return decodeSS58(s)
}

func (a Account) IsZero() bool {
	return a.Kind == 0
}

// Bytes returns the raw account id.
func (a Account) Bytes() []byte {
	n := a.Kind.Len()
	out := make([]byte, n)
	copy(out, a.raw[:n])
	return out
}

// EthereumAddress returns the account as an H160. Only valid for ethereum
// accounts.
func (a Account) EthereumAddress() common.Address {
	return common.BytesToAddress(a.raw[:ethereumAccountLen])
}

// Key is the binary form used in store keys: kind byte followed by the raw id.
func (a Account) Key() []byte {
	return append([]byte{byte(a.Kind)}, a.Bytes()...)
}

// AccountFromKey reverses Key.
func AccountFromKey(k []byte) (Account, error) {
	if len(k) == 0 {
		return Account{}, errorsmod.Wrap(ErrInvalidAccount, "empty account key")
	}
	return NewAccountFromBytes(AccountKind(k[0]), k[1:])
}

func (a Account) String() string {
	if a.Kind == EthereumAccount {
		return a.EthereumAddress().Hex()
	}
	return "0x" + hex.EncodeToString(a.Bytes())
}

// SS58 encodes a substrate account with the given network prefix.
func (a Account) SS58(prefix uint16) (string, error) {
	if a.Kind != SubstrateAccount {
		return "", errorsmod.Wrapf(ErrInvalidAccount, "%s accounts have no ss58 form", a.Kind)
	}

	if prefix > maxSS58Prefix {
		return "", errorsmod.Wrapf(ErrInvalidAccount, "ss58 prefix %d out of range", prefix)
	}
	return subkey.SS58Encode(a.Bytes(), prefix), nil
}

func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Account) UnmarshalText(text []byte) error {
	parsed, err := ParseAccount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func decodeSS58(s string) (Account, error) {
	// subkey slices the payload without checking its size
	if n := len(base58.Decode(s)); n < 1+ss58ChecksumLen+substrateAccountLen {
		return Account{}, errorsmod.Wrapf(ErrInvalidAccount, "%q is neither hex nor ss58", s)
	}

	_, pub, err := subkey.SS58Decode(s)
	if err != nil {
		return Account{}, errorsmod.Wrapf(ErrInvalidAccount, "bad ss58 address %q: %v", s, err)
	}
	return NewAccountFromBytes(SubstrateAccount, pub)
}
