package types

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
)

// MaxBalance is the largest amount a remote chain can hold (u128).
var MaxBalance = sdkmath.NewIntFromBigInt(
	new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)),
)

// SaturatingAdd returns a+b capped at MaxBalance.
func SaturatingAdd(a, b sdkmath.Int) sdkmath.Int {
	sum := a.Add(b)
	if sum.GT(MaxBalance) {
		return MaxBalance
	}
	return sum
}

// SaturatingSub returns a-b floored at zero.
func SaturatingSub(a, b sdkmath.Int) sdkmath.Int {
	if b.GTE(a) {
		return sdkmath.ZeroInt()
	}
	return a.Sub(b)
}

// ValidateBalance rejects nil, negative and out of range amounts.
func ValidateBalance(a sdkmath.Int) error {
	if a.IsNil() {
		return errorsmod.Wrap(ErrInvalidAmount, "amount is not set")
	}
	if a.IsNegative() {
		return errorsmod.Wrapf(ErrInvalidAmount, "negative amount %s", a)
	}
	if a.GT(MaxBalance) {
		return errorsmod.Wrapf(ErrInvalidAmount, "amount %s exceeds u128", a)
	}
	return nil
}

type UnlockChunk struct {
	Amount     sdkmath.Int `json:"amount"`
	UnlockTime TimeUnit    `json:"unlock_time"`
	// Validator is the target the unlock was requested from, set only for
	// protocols with validator scoped unlocks.
	Validator *Account `json:"validator,omitempty"`
}

// scopedTo reports whether the chunk is affected by an operation on
// validator. A nil validator matches every chunk.
func (c UnlockChunk) scopedTo(validator *Account) bool {
	if validator == nil {
		return true
	}
	return c.Validator != nil && *c.Validator == *validator
}

func sameValidator(a, b *Account) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Ledger mirrors the staking position of one delegator on its remote chain.
// It is only mutated when the remote side confirmed the matching operation,
// or by a privileged override.
type Ledger struct {
	Protocol  StakingProtocol `json:"protocol"`
	Locked    sdkmath.Int     `json:"locked"`
	Unlocking []UnlockChunk   `json:"unlocking"`
	// Targets holds the current vote set for protocols that nominate.
	Targets []Account `json:"targets,omitempty"`
}

func NewLedger(p StakingProtocol) *Ledger {
	return &Ledger{
		Protocol:  p,
		Locked:    sdkmath.ZeroInt(),
		Unlocking: []UnlockChunk{},
	}
}

func (l *Ledger) Validate() error {
	if err := l.Protocol.Validate(); err != nil {
		return err
	}
	if err := ValidateBalance(l.Locked); err != nil {
		return errorsmod.Wrapf(ErrInvalidLedger, "locked: %v", err)
	}
	info := l.Protocol.Info()
	if len(l.Unlocking) > info.MaxUnlockingChunks {
		return errorsmod.Wrapf(ErrInvalidLedger, "%d unlocking chunks, max %d", len(l.Unlocking), info.MaxUnlockingChunks)
	}
	for _, c := range l.Unlocking {
		if err := ValidateBalance(c.Amount); err != nil {
			return errorsmod.Wrapf(ErrInvalidLedger, "unlocking: %v", err)
		}
		if err := l.Protocol.ValidateTimeUnit(c.UnlockTime); err != nil {
			return errorsmod.Wrapf(ErrInvalidLedger, "unlocking: %v", err)
		}
		switch {
		case info.ValidatorScopedUnlocks && c.Validator == nil:
			return errorsmod.Wrapf(ErrInvalidLedger, "%s unlocking chunk without validator", l.Protocol)
		case !info.ValidatorScopedUnlocks && c.Validator != nil:
			return errorsmod.Wrapf(ErrInvalidLedger, "%s unlocking chunks carry no validator", l.Protocol)
		case c.Validator != nil:
			if err := l.Protocol.ValidateValidator(*c.Validator); err != nil {
				return errorsmod.Wrapf(ErrInvalidLedger, "unlocking: %v", err)
			}
		}
	}
	if len(l.Targets) > info.MaxValidators {
		return errorsmod.Wrapf(ErrInvalidLedger, "%d targets, max %d", len(l.Targets), info.MaxValidators)
	}
	return nil
}

// IsEmpty reports whether nothing is locked or unlocking.
func (l *Ledger) IsEmpty() bool {
	return l.Locked.IsZero() && l.TotalUnlocking().IsZero()
}

func (l *Ledger) TotalUnlocking() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, c := range l.Unlocking {
		total = SaturatingAdd(total, c.Amount)
	}
	return total
}

func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		Protocol:  l.Protocol,
		Locked:    l.Locked,
		Unlocking: make([]UnlockChunk, len(l.Unlocking)),
	}
	copy(c.Unlocking, l.Unlocking)
	for i, chunk := range c.Unlocking {
		if chunk.Validator != nil {
			v := *chunk.Validator
			c.Unlocking[i].Validator = &v
		}
	}
	if l.Targets != nil {
		c.Targets = make([]Account, len(l.Targets))
		copy(c.Targets, l.Targets)
	}
	return c
}

func (l *Ledger) AddLockAmount(amount sdkmath.Int) {
	l.Locked = SaturatingAdd(l.Locked, amount)
}

// SubtractLockAmount moves amount out of locked into a new unlocking chunk
// maturing at now plus the protocol unlock period. The chunk records the full
// requested amount even when locked saturates at zero. On error the ledger is
// left untouched.
func (l *Ledger) SubtractLockAmount(amount sdkmath.Int, now TimeUnit) error {
	return l.subtractLockAmount(nil, amount, now)
}

// SubtractValidatorLockAmount is SubtractLockAmount for an unlock requested
// from one validator. Chunks of different validators never merge.
func (l *Ledger) SubtractValidatorLockAmount(validator Account, amount sdkmath.Int, now TimeUnit) error {
	return l.subtractLockAmount(&validator, amount, now)
}

func (l *Ledger) subtractLockAmount(validator *Account, amount sdkmath.Int, now TimeUnit) error {
	unlockTime, err := now.Add(l.Protocol.Info().UnlockPeriod)
	if err != nil {
		return err
	}

	for i, c := range l.Unlocking {
		if c.UnlockTime == unlockTime && sameValidator(c.Validator, validator) {
			l.Unlocking[i].Amount = SaturatingAdd(c.Amount, amount)
			l.Locked = SaturatingSub(l.Locked, amount)
			return nil
		}
	}

	if len(l.Unlocking) >= l.Protocol.Info().MaxUnlockingChunks {
		return errorsmod.Wrapf(ErrUnlockRecordOverflow, "%s allows %d chunks", l.Protocol, l.Protocol.Info().MaxUnlockingChunks)
	}

	chunk := UnlockChunk{Amount: amount, UnlockTime: unlockTime}
	if validator != nil {
		v := *validator
		chunk.Validator = &v
	}
	l.Unlocking = append(l.Unlocking, chunk)
	l.Locked = SaturatingSub(l.Locked, amount)
	return nil
}

// DrainMaturedUnlocks removes and returns every chunk with unlock time at or
// before now.
func (l *Ledger) DrainMaturedUnlocks(now TimeUnit) ([]UnlockChunk, error) {
	return l.drainMaturedUnlocks(nil, now)
}

// DrainMaturedValidatorUnlocks removes and returns the matured chunks
// requested from validator. Chunks of other validators are kept.
func (l *Ledger) DrainMaturedValidatorUnlocks(validator Account, now TimeUnit) ([]UnlockChunk, error) {
	return l.drainMaturedUnlocks(&validator, now)
}

func (l *Ledger) drainMaturedUnlocks(validator *Account, now TimeUnit) ([]UnlockChunk, error) {
	if err := l.Protocol.ValidateTimeUnit(now); err != nil {
		return nil, errorsmod.Wrap(ErrTimeUnitMismatch, err.Error())
	}

	var (
		matured []UnlockChunk
		kept    = make([]UnlockChunk, 0, len(l.Unlocking))
	)
	for _, c := range l.Unlocking {
		cmp, err := c.UnlockTime.Compare(now)
		if err != nil {
			return nil, err
		}
		if cmp <= 0 && c.scopedTo(validator) {
			matured = append(matured, c)
		} else {
			kept = append(kept, c)
		}
	}
	l.Unlocking = kept

	return matured, nil
}

// Relock moves unlocking funds back to locked, newest chunk first. A nil
// amount relocks everything. It returns how much was relocked.
func (l *Ledger) Relock(amount *sdkmath.Int) sdkmath.Int {
	return l.relock(nil, amount)
}

// RelockValidator is Relock restricted to the chunks requested from
// validator.
func (l *Ledger) RelockValidator(validator Account, amount *sdkmath.Int) sdkmath.Int {
	return l.relock(&validator, amount)
}

func (l *Ledger) relock(validator *Account, amount *sdkmath.Int) sdkmath.Int {
	relocked := sdkmath.ZeroInt()
	for i := len(l.Unlocking) - 1; i >= 0; i-- {
		chunk := l.Unlocking[i]
		if !chunk.scopedTo(validator) {
			continue
		}
		take := chunk.Amount
		if amount != nil {
			remaining := SaturatingSub(*amount, relocked)
			if remaining.IsZero() {
				break
			}
			take = sdkmath.MinInt(take, remaining)
		}

		relocked = SaturatingAdd(relocked, take)
		if take.Equal(chunk.Amount) {
			l.Unlocking = append(l.Unlocking[:i], l.Unlocking[i+1:]...)
		} else {
			l.Unlocking[i].Amount = chunk.Amount.Sub(take)
		}
	}
	l.Locked = SaturatingAdd(l.Locked, relocked)

	return relocked
}

func (l *Ledger) SetTargets(targets []Account) {
	l.Targets = make([]Account, len(targets))
	copy(l.Targets, targets)
}

func (l *Ledger) ClearTargets() {
	l.Targets = nil
}
