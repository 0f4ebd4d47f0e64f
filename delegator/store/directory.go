package store

import (
	"encoding/binary"
	"math"

	errorsmod "cosmossdk.io/errors"
	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/omnistake/xcm-delegator/types"
)

var nextIndexKeyPrefix = []byte("nextDelegatorIndex")

// DelegatorEntry is a registered delegator and its derivative index.
type DelegatorEntry struct {
	Index     uint16        `json:"index"`
	Delegator types.Account `json:"delegator"`
}

// AddDelegator registers the sub-account derived for a fresh index, or for
// the explicit index if given, and creates its empty ledger.
func (s *CoordinatorStore) AddDelegator(
	p types.StakingProtocol,
	explicitIndex *uint16,
	derive func(index uint16) types.Account,
) (*DelegatorEntry, error) {
	var entry *DelegatorEntry

	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		buckets, err := getBuckets(tx, delegatorsBucketName, delegatorIndexBucketName,
			retiredIndexBucketName, ledgersBucketName, settingsBucketName)
		if err != nil {
			return err
		}
		delegators, indices, retired, ledgers, settings := buckets[0], buckets[1], buckets[2], buckets[3], buckets[4]

		count, err := countWithPrefix(delegators, p)
		if err != nil {
			return err
		}
		if count >= p.Info().MaxDelegators {
			return errorsmod.Wrapf(types.ErrTooManyDelegators, "%s already has %d delegators", p, count)
		}

		taken := func(idx uint16) bool {
			k := protocolKey(p, uint16Key(idx))
			return delegators.Get(k) != nil || retired.Get(k) != nil
		}

		next := uint32(0)
		if bz := settings.Get(protocolKey(p, nextIndexKeyPrefix)); bz != nil {
			next = uint32(binary.BigEndian.Uint16(bz))
		}

		var index uint16
		if explicitIndex != nil {
			index = *explicitIndex
			if taken(index) {
				return errorsmod.Wrapf(types.ErrDelegatorAlreadyExists, "index %d of %s", index, p)
			}
		} else {
			for next <= math.MaxUint16 && taken(uint16(next)) {
				next++
			}
			if next > math.MaxUint16 {
				return errorsmod.Wrapf(types.ErrTooManyDelegators, "%s has no free index left", p)
			}
			index = uint16(next)
		}
		if uint32(index) >= next && index < math.MaxUint16 {
			if err := settings.Put(protocolKey(p, nextIndexKeyPrefix), uint16Key(index+1)); err != nil {
				return err
			}
		}

		delegator := derive(index)
		if indices.Get(protocolKey(p, delegator.Key())) != nil {
			return errorsmod.Wrapf(types.ErrDelegatorAlreadyExists, "%s of %s", delegator, p)
		}

		if err := delegators.Put(protocolKey(p, uint16Key(index)), delegator.Key()); err != nil {
			return err
		}
		if err := indices.Put(protocolKey(p, delegator.Key()), uint16Key(index)); err != nil {
			return err
		}
		if err := putJSON(ledgers, protocolKey(p, delegator.Key()), types.NewLedger(p)); err != nil {
			return err
		}

		entry = &DelegatorEntry{Index: index, Delegator: delegator}
		return nil
	}, func() {
		entry = nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// RemoveDelegator erases every directory entry of a delegator whose ledger
// is empty and retires its index.
func (s *CoordinatorStore) RemoveDelegator(p types.StakingProtocol, delegator types.Account) (uint16, error) {
	var index uint16

	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		buckets, err := getBuckets(tx, delegatorsBucketName, delegatorIndexBucketName,
			retiredIndexBucketName, ledgersBucketName, validatorsBucketName)
		if err != nil {
			return err
		}
		delegators, indices, retired, ledgers, validators := buckets[0], buckets[1], buckets[2], buckets[3], buckets[4]

		dk := protocolKey(p, delegator.Key())
		idxBytes := indices.Get(dk)
		if idxBytes == nil {
			return errorsmod.Wrapf(types.ErrDelegatorNotFound, "%s of %s", delegator, p)
		}
		index = binary.BigEndian.Uint16(idxBytes)

		var ledger types.Ledger
		found, err := getJSON(ledgers, dk, &ledger)
		if err != nil {
			return err
		}
		if found && !ledger.IsEmpty() {
			return errorsmod.Wrapf(types.ErrLedgerNotEmpty, "locked %s, unlocking %s", ledger.Locked, ledger.TotalUnlocking())
		}

		for _, del := range []struct {
			b walletdb.ReadWriteBucket
			k []byte
		}{
			{ledgers, dk},
			{validators, dk},
			{indices, dk},
			{delegators, protocolKey(p, uint16Key(index))},
		} {
			if err := del.b.Delete(del.k); err != nil {
				return err
			}
		}

		return retired.Put(protocolKey(p, uint16Key(index)), []byte{})
	}, func() {
		index = 0
	})

	return index, err
}

// DelegatorIndex returns the derivative index of a registered delegator.
func (s *CoordinatorStore) DelegatorIndex(p types.StakingProtocol, delegator types.Account) (uint16, error) {
	var index uint16
	err := s.db.View(func(tx kvdb.RTx) error {
		indices := tx.ReadBucket(delegatorIndexBucketName)
		if indices == nil {
			return ErrCorruptedCoordinatorDb
		}
		bz := indices.Get(protocolKey(p, delegator.Key()))
		if bz == nil {
			return errorsmod.Wrapf(types.ErrDelegatorNotFound, "%s of %s", delegator, p)
		}
		index = binary.BigEndian.Uint16(bz)
		return nil
	}, func() {})

	return index, err
}

// ListDelegators returns the delegators of a protocol ordered by index.
func (s *CoordinatorStore) ListDelegators(p types.StakingProtocol) ([]*DelegatorEntry, error) {
	var entries []*DelegatorEntry
	err := s.db.View(func(tx kvdb.RTx) error {
		delegators := tx.ReadBucket(delegatorsBucketName)
		if delegators == nil {
			return ErrCorruptedCoordinatorDb
		}
		return delegators.ForEach(func(k, v []byte) error {
			if len(k) != 3 || k[0] != byte(p) {
				return nil
			}
			delegator, err := types.AccountFromKey(v)
			if err != nil {
				return ErrCorruptedCoordinatorDb
			}
			entries = append(entries, &DelegatorEntry{
				Index:     binary.BigEndian.Uint16(k[1:]),
				Delegator: delegator,
			})
			return nil
		})
	}, func() {
		entries = nil
	})

	return entries, err
}

// ListValidators returns the validator set of a registered delegator.
func (s *CoordinatorStore) ListValidators(p types.StakingProtocol, delegator types.Account) ([]types.Account, error) {
	var vals []types.Account
	err := s.db.View(func(tx kvdb.RTx) error {
		indices := tx.ReadBucket(delegatorIndexBucketName)
		validators := tx.ReadBucket(validatorsBucketName)
		if indices == nil || validators == nil {
			return ErrCorruptedCoordinatorDb
		}
		dk := protocolKey(p, delegator.Key())
		if indices.Get(dk) == nil {
			return errorsmod.Wrapf(types.ErrDelegatorNotFound, "%s of %s", delegator, p)
		}
		_, err := getJSON(validators, dk, &vals)
		return err
	}, func() {
		vals = nil
	})

	return vals, err
}

func (s *CoordinatorStore) AddValidator(p types.StakingProtocol, delegator, validator types.Account) error {
	return s.updateValidators(p, delegator, func(vals []types.Account) ([]types.Account, error) {
		for _, v := range vals {
			if v == validator {
				return nil, errorsmod.Wrapf(types.ErrValidatorAlreadyExists, "%s for %s", validator, delegator)
			}
		}
		if len(vals) >= p.Info().MaxValidators {
			return nil, errorsmod.Wrapf(types.ErrTooManyValidators, "%s already has %d validators", delegator, len(vals))
		}
		return append(vals, validator), nil
	})
}

func (s *CoordinatorStore) RemoveValidator(p types.StakingProtocol, delegator, validator types.Account) error {
	return s.updateValidators(p, delegator, func(vals []types.Account) ([]types.Account, error) {
		for i, v := range vals {
			if v == validator {
				return append(vals[:i], vals[i+1:]...), nil
			}
		}
		return nil, errorsmod.Wrapf(types.ErrValidatorNotFound, "%s for %s", validator, delegator)
	})
}

func (s *CoordinatorStore) updateValidators(
	p types.StakingProtocol,
	delegator types.Account,
	update func([]types.Account) ([]types.Account, error),
) error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		buckets, err := getBuckets(tx, delegatorIndexBucketName, validatorsBucketName)
		if err != nil {
			return err
		}
		indices, validators := buckets[0], buckets[1]

		dk := protocolKey(p, delegator.Key())
		if indices.Get(dk) == nil {
			return errorsmod.Wrapf(types.ErrDelegatorNotFound, "%s of %s", delegator, p)
		}

		var vals []types.Account
		if _, err := getJSON(validators, dk, &vals); err != nil {
			return err
		}
		updated, err := update(vals)
		if err != nil {
			return err
		}
		if len(updated) == 0 {
			return validators.Delete(dk)
		}
		return putJSON(validators, dk, updated)
	})
}

func countWithPrefix(b walletdb.ReadBucket, p types.StakingProtocol) (int, error) {
	count := 0
	err := b.ForEach(func(k, _ []byte) error {
		if len(k) > 0 && k[0] == byte(p) {
			count++
		}
		return nil
	})
	return count, err
}
