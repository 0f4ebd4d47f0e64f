package xcm

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/omnistake/xcm-delegator/types"
)

var (
	derivativeSeed    = []byte("modlpy/utilisuba")
	relayParaPrefix   = []byte("para")
	siblingParaPrefix = []byte("sibl")
)

// SovereignAccount returns the account that represents parachain paraID on
// the chain of protocol p: "para" on the relay chain, "sibl" on sibling
// parachains, padded with zeros. Ethereum style chains use the first 20
// bytes.
func SovereignAccount(paraID uint32, p types.StakingProtocol) types.Account {
	info := p.Info()

	var id [32]byte
	prefix := siblingParaPrefix
	if info.Destination.IsRelay() {
		prefix = relayParaPrefix
	}
	copy(id[:], prefix)
	binary.LittleEndian.PutUint32(id[len(prefix):], paraID)

	return accountOfKind(info.AccountKind, id)
}

// DerivativeAccount mirrors utility.as_derivative:
// blake2_256("modlpy/utilisuba" ++ sovereign ++ index_le).
func DerivativeAccount(sovereign types.Account, kind types.AccountKind, index uint16) types.Account {
	var buf []byte
	buf = append(buf, derivativeSeed...)
	buf = append(buf, sovereign.Bytes()...)
	buf = binary.LittleEndian.AppendUint16(buf, index)

	return accountOfKind(kind, blake2b.Sum256(buf))
}

func accountOfKind(kind types.AccountKind, id [32]byte) types.Account {
	if kind == types.EthereumAccount {
		a, _ := types.NewAccountFromBytes(types.EthereumAccount, id[:types.EthereumAccount.Len()])
		return a
	}
	return types.NewSubstrateAccount(id)
}
