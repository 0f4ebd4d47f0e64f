package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"
)

type TimeUnitKind uint8

const (
	Era TimeUnitKind = iota + 1
	Round
)

func (k TimeUnitKind) String() string {
	switch k {
	case Era:
		return "Era"
	case Round:
		return "Round"
	default:
		return fmt.Sprintf("TimeUnitKind(%d)", uint8(k))
	}
}

func (k TimeUnitKind) MarshalText() ([]byte, error) {
	if k != Era && k != Round {
		return nil, errorsmod.Wrapf(ErrInvalidTimeUnit, "unknown time unit kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *TimeUnitKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Era":
		*k = Era
	case "Round":
		*k = Round
	default:
		return errorsmod.Wrapf(ErrInvalidTimeUnit, "unknown time unit kind %q", text)
	}
	return nil
}

// TimeUnit is a remote staking time measure tagged with its kind. Units of
// different kinds are never comparable.
type TimeUnit struct {
	Kind  TimeUnitKind `json:"kind"`
	Value uint32       `json:"value"`
}

func NewEra(v uint32) TimeUnit {
	return TimeUnit{Kind: Era, Value: v}
}

func NewRound(v uint32) TimeUnit {
	return TimeUnit{Kind: Round, Value: v}
}

// ParseTimeUnit parses the "Era(12)" form produced by String.
func ParseTimeUnit(s string) (TimeUnit, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return TimeUnit{}, errorsmod.Wrapf(ErrInvalidTimeUnit, "malformed time unit %q", s)
	}

	var kind TimeUnitKind
	switch s[:open] {
	case "Era":
		kind = Era
	case "Round":
		kind = Round
	default:
		return TimeUnit{}, errorsmod.Wrapf(ErrInvalidTimeUnit, "unknown time unit kind %q", s[:open])
	}

	v, err := strconv.ParseUint(s[open+1:len(s)-1], 10, 32)
	if err != nil {
		return TimeUnit{}, errorsmod.Wrapf(ErrInvalidTimeUnit, "bad value in %q: %v", s, err)
	}

	return TimeUnit{Kind: kind, Value: uint32(v)}, nil
}

func (t TimeUnit) String() string {
	return fmt.Sprintf("%s(%d)", t.Kind, t.Value)
}

// Compare returns -1, 0 or 1. Units of different kinds yield
// ErrTimeUnitMismatch.
func (t TimeUnit) Compare(o TimeUnit) (int, error) {
	if t.Kind != o.Kind {
		return 0, errorsmod.Wrapf(ErrTimeUnitMismatch, "%s vs %s", t, o)
	}
	switch {
	case t.Value < o.Value:
		return -1, nil
	case t.Value > o.Value:
		return 1, nil
	default:
		return 0, nil
	}
}

// Add advances the unit by a period of the same kind, saturating at the
// maximum value.
func (t TimeUnit) Add(period TimeUnit) (TimeUnit, error) {
	if t.Kind != period.Kind {
		return TimeUnit{}, errorsmod.Wrapf(ErrTimeUnitMismatch, "%s + %s", t, period)
	}
	sum := uint64(t.Value) + uint64(period.Value)
	if sum > math.MaxUint32 {
		sum = math.MaxUint32
	}
	return TimeUnit{Kind: t.Kind, Value: uint32(sum)}, nil
}

// Next returns the following unit of the same kind.
func (t TimeUnit) Next() TimeUnit {
	next, _ := t.Add(TimeUnit{Kind: t.Kind, Value: 1})
	return next
}
