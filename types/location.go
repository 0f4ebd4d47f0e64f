package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	gsrpctypes "github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
)

// Location is an XCM v1 multi-location restricted to the shapes the
// coordinator routes to: the relay chain (Here) or a single Parachain
// junction, both seen from a sibling parachain.
type Location struct {
	ml gsrpctypes.MultiLocationV1
}

func RelayChain() Location {
	return Location{ml: gsrpctypes.MultiLocationV1{
		Parents:  1,
		Interior: gsrpctypes.JunctionsV1{IsHere: true},
	}}
}

func SiblingParachain(id uint32) Location {
	return Location{ml: gsrpctypes.MultiLocationV1{
		Parents: 1,
		Interior: gsrpctypes.JunctionsV1{
			IsX1: true,
			X1: gsrpctypes.JunctionV1{
				IsParachain: true,
				ParachainID: gsrpctypes.NewUCompactFromUInt(uint64(id)),
			},
		},
	}}
}

// MultiLocation returns the underlying multi-location.
func (l Location) MultiLocation() gsrpctypes.MultiLocationV1 {
	return l.ml
}

func (l Location) Parents() uint8 {
	return uint8(l.ml.Parents)
}

func (l Location) IsRelay() bool {
	return !l.isParachain()
}

// ParachainID returns the parachain junction id, or zero for the relay chain.
func (l Location) ParachainID() uint32 {
	if !l.isParachain() {
		return 0
	}
	id := big.Int(l.ml.Interior.X1.ParachainID)
	return uint32(id.Uint64())
}

func (l Location) isParachain() bool {
	return l.ml.Interior.IsX1 && l.ml.Interior.X1.IsParachain
}

// Bytes returns the SCALE encoding of the multi-location.
func (l Location) Bytes() ([]byte, error) {
	return codec.Encode(&l.ml)
}

func (l Location) Equal(other Location) bool {
	a, err := l.Bytes()
	if err != nil {
		return false
	}
	b, err := other.Bytes()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func (l Location) String() string {
	if l.IsRelay() {
		return fmt.Sprintf("{parents: %d, interior: Here}", l.Parents())
	}
	return fmt.Sprintf("{parents: %d, interior: Parachain(%d)}", l.Parents(), l.ParachainID())
}

type locationJSON struct {
	Parents   uint8  `json:"parents"`
	Parachain uint32 `json:"parachain,omitempty"`
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(locationJSON{Parents: l.Parents(), Parachain: l.ParachainID()})
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var raw locationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Parachain == 0 {
		*l = RelayChain()
	} else {
		*l = SiblingParachain(raw.Parachain)
	}
	l.ml.Parents = gsrpctypes.U8(raw.Parents)
	return nil
}
