package store

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/omnistake/xcm-delegator/types"
)

// GetLedger returns the mirrored ledger of a registered delegator.
func (s *CoordinatorStore) GetLedger(p types.StakingProtocol, delegator types.Account) (*types.Ledger, error) {
	var ledger *types.Ledger
	err := s.db.View(func(tx kvdb.RTx) error {
		ledgers := tx.ReadBucket(ledgersBucketName)
		if ledgers == nil {
			return ErrCorruptedCoordinatorDb
		}
		l := new(types.Ledger)
		found, err := getJSON(ledgers, protocolKey(p, delegator.Key()), l)
		if err != nil {
			return err
		}
		if !found {
			return errorsmod.Wrapf(types.ErrDelegatorNotFound, "no ledger for %s of %s", delegator, p)
		}
		ledger = l
		return nil
	}, func() {
		ledger = nil
	})
	if err != nil {
		return nil, err
	}

	return ledger, nil
}

// SetLedger overwrites the ledger of a registered delegator.
func (s *CoordinatorStore) SetLedger(p types.StakingProtocol, delegator types.Account, ledger *types.Ledger) error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		buckets, err := getBuckets(tx, delegatorIndexBucketName, ledgersBucketName)
		if err != nil {
			return err
		}
		indices, ledgers := buckets[0], buckets[1]

		dk := protocolKey(p, delegator.Key())
		if indices.Get(dk) == nil {
			return errorsmod.Wrapf(types.ErrDelegatorNotFound, "%s of %s", delegator, p)
		}
		return putJSON(ledgers, dk, ledger)
	})
}

// ResponseResult is the outcome of consuming a pending status.
type ResponseResult struct {
	// Pending is nil when no record existed for the query id.
	Pending *types.PendingStatus
	// Ledger is the ledger after the change, nil if nothing was applied.
	Ledger *types.Ledger
	// ApplyErr is the reason the ledger change was not applied. The
	// record is consumed regardless.
	ApplyErr error
}

// ConsumePendingStatus removes the pending status of queryID and, when apply
// succeeds, stores the ledger it produced, all in one transaction. apply
// receives a copy of the delegator's ledger, or nil if it no longer exists.
// A missing record is not an error.
func (s *CoordinatorStore) ConsumePendingStatus(
	queryID types.QueryID,
	apply func(ps *types.PendingStatus, ledger *types.Ledger) error,
) (*ResponseResult, error) {
	var res *ResponseResult

	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		buckets, err := getBuckets(tx, pendingBucketName, ledgersBucketName)
		if err != nil {
			return err
		}
		pending, ledgers := buckets[0], buckets[1]

		res = &ResponseResult{}
		qk := uint64Key(queryID)
		ps := new(types.PendingStatus)
		found, err := getJSON(pending, qk, ps)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		res.Pending = ps

		dk := protocolKey(ps.Protocol, ps.Delegator.Key())
		var ledger *types.Ledger
		l := new(types.Ledger)
		ledgerFound, err := getJSON(ledgers, dk, l)
		if err != nil {
			return err
		}
		if ledgerFound {
			ledger = l
		}

		if applyErr := apply(ps, ledger); applyErr != nil {
			res.ApplyErr = applyErr
		} else if ledger != nil {
			if err := putJSON(ledgers, dk, ledger); err != nil {
				return err
			}
			res.Ledger = ledger
		}

		return pending.Delete(qk)
	}, func() {
		res = nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}
