package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/omnistake/xcm-delegator/types"
)

var (
	// protocol || index -> delegator key
	delegatorsBucketName = []byte("delegators")
	// protocol || delegator key -> index
	delegatorIndexBucketName = []byte("delegatorIndices")
	// protocol || index -> {} for indices that must never be reused
	retiredIndexBucketName = []byte("retiredIndices")
	// protocol || delegator key -> validator list
	validatorsBucketName = []byte("validators")
	// protocol || delegator key -> ledger
	ledgersBucketName = []byte("ledgers")
	// query id -> pending status
	pendingBucketName = []byte("pendingStatuses")
	// fee table, time units, exchange rate state and counters
	settingsBucketName = []byte("settings")
)

// CoordinatorStore persists every map the coordinator owns. Each exported
// write method runs in a single transaction.
type CoordinatorStore struct {
	db kvdb.Backend
}

func NewCoordinatorStore(db kvdb.Backend) (*CoordinatorStore, error) {
	s := &CoordinatorStore{db}
	if err := s.initBuckets(); err != nil {
		return nil, fmt.Errorf("failed to initialize store buckets: %w", err)
	}

	return s, nil
}

func (s *CoordinatorStore) initBuckets() error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		buckets := [][]byte{
			delegatorsBucketName,
			delegatorIndexBucketName,
			retiredIndexBucketName,
			validatorsBucketName,
			ledgersBucketName,
			pendingBucketName,
			settingsBucketName,
		}
		for _, b := range buckets {
			if _, err := tx.CreateTopLevelBucket(b); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *CoordinatorStore) Close() error {
	return s.db.Close()
}

func protocolKey(p types.StakingProtocol, parts ...[]byte) []byte {
	k := []byte{byte(p)}
	for _, part := range parts {
		k = append(k, part...)
	}
	return k
}

func uint16Key(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

func uint64Key(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func getBuckets(tx kvdb.RwTx, names ...[]byte) ([]walletdb.ReadWriteBucket, error) {
	buckets := make([]walletdb.ReadWriteBucket, len(names))
	for i, name := range names {
		b := tx.ReadWriteBucket(name)
		if b == nil {
			return nil, ErrCorruptedCoordinatorDb
		}
		buckets[i] = b
	}
	return buckets, nil
}

func putJSON(b walletdb.ReadWriteBucket, k []byte, v interface{}) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return b.Put(k, bz)
}

// getJSON decodes the value stored under k into v and reports whether it
// exists.
func getJSON(b walletdb.ReadBucket, k []byte, v interface{}) (bool, error) {
	bz := b.Get(k)
	if bz == nil {
		return false, nil
	}
	if err := json.Unmarshal(bz, v); err != nil {
		return false, fmt.Errorf("%w: cannot decode %T: %v", ErrCorruptedCoordinatorDb, v, err)
	}
	return true, nil
}
