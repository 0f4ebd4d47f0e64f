package store

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/omnistake/xcm-delegator/types"
)

var nextQueryIDKey = []byte("nextQueryID")

// NextQueryID returns the id the next reservation will get. It does not
// reserve it.
func (s *CoordinatorStore) NextQueryID() (types.QueryID, error) {
	var next types.QueryID
	err := s.db.View(func(tx kvdb.RTx) error {
		settings := tx.ReadBucket(settingsBucketName)
		if settings == nil {
			return ErrCorruptedCoordinatorDb
		}
		next = readNextQueryID(settings)
		return nil
	}, func() {
		next = 0
	})

	return next, err
}

// ReserveQueryID hands out the next query id and advances the counter in its
// own transaction. A reserved id is never handed out again, whether or not a
// pending status is committed for it.
func (s *CoordinatorStore) ReserveQueryID() (types.QueryID, error) {
	var reserved types.QueryID
	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		buckets, err := getBuckets(tx, settingsBucketName)
		if err != nil {
			return err
		}
		settings := buckets[0]

		reserved = readNextQueryID(settings)
		return settings.Put(nextQueryIDKey, uint64Key(reserved+1))
	}, func() {
		reserved = 0
	})

	return reserved, err
}

// CommitPendingStatus stores the record of a reserved query id.
func (s *CoordinatorStore) CommitPendingStatus(ps *types.PendingStatus) error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		buckets, err := getBuckets(tx, pendingBucketName, settingsBucketName)
		if err != nil {
			return err
		}
		pending, settings := buckets[0], buckets[1]

		if next := readNextQueryID(settings); ps.QueryID >= next {
			return fmt.Errorf("%w: got %d, next is %d", ErrQueryIDNotReserved, ps.QueryID, next)
		}

		qk := uint64Key(ps.QueryID)
		if pending.Get(qk) != nil {
			return ErrDuplicatePendingStatus
		}
		return putJSON(pending, qk, ps)
	})
}

func readNextQueryID(settings walletdb.ReadBucket) types.QueryID {
	if bz := settings.Get(nextQueryIDKey); bz != nil {
		return binary.BigEndian.Uint64(bz)
	}
	return 0
}

// GetPendingStatus returns the record of queryID, or nil if there is none.
func (s *CoordinatorStore) GetPendingStatus(queryID types.QueryID) (*types.PendingStatus, error) {
	var ps *types.PendingStatus
	err := s.db.View(func(tx kvdb.RTx) error {
		pending := tx.ReadBucket(pendingBucketName)
		if pending == nil {
			return ErrCorruptedCoordinatorDb
		}
		record := new(types.PendingStatus)
		found, err := getJSON(pending, uint64Key(queryID), record)
		if err != nil {
			return err
		}
		if found {
			ps = record
		}
		return nil
	}, func() {
		ps = nil
	})

	return ps, err
}

// ListPendingStatuses returns all in-flight records ordered by query id.
func (s *CoordinatorStore) ListPendingStatuses() ([]*types.PendingStatus, error) {
	var list []*types.PendingStatus
	err := s.db.View(func(tx kvdb.RTx) error {
		pending := tx.ReadBucket(pendingBucketName)
		if pending == nil {
			return ErrCorruptedCoordinatorDb
		}
		return pending.ForEach(func(k, _ []byte) error {
			ps := new(types.PendingStatus)
			if _, err := getJSON(pending, k, ps); err != nil {
				return err
			}
			list = append(list, ps)
			return nil
		})
	}, func() {
		list = nil
	})

	return list, err
}

// ReapPendingStatuses deletes every record created before cutoff and
// returns them.
func (s *CoordinatorStore) ReapPendingStatuses(cutoff time.Time) ([]*types.PendingStatus, error) {
	var reaped []*types.PendingStatus
	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		buckets, err := getBuckets(tx, pendingBucketName)
		if err != nil {
			return err
		}
		pending := buckets[0]

		var keys [][]byte
		err = pending.ForEach(func(k, _ []byte) error {
			ps := new(types.PendingStatus)
			if _, err := getJSON(pending, k, ps); err != nil {
				return err
			}
			if ps.CreatedAt.Before(cutoff) {
				keys = append(keys, append([]byte{}, k...))
				reaped = append(reaped, ps)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range keys {
			if err := pending.Delete(k); err != nil {
				return err
			}
		}
		return nil
	}, func() {
		reaped = nil
	})

	return reaped, err
}
