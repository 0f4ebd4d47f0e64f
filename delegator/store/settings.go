package store

import (
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/omnistake/xcm-delegator/types"
)

var (
	feeKeyPrefix      = []byte("xcmFee")
	protocolKeyPrefix = []byte("protocol")
)

// ExchangeRateLimit bounds how often and how much the token pool of a
// protocol may grow through exchange rate updates.
type ExchangeRateLimit struct {
	Interval   time.Duration `json:"interval"`
	MaxPermill uint32        `json:"max_permill"`
}

// ProtocolSettings is the mutable per-protocol configuration and clock.
type ProtocolSettings struct {
	ProtocolFeeRate uint32 `json:"protocol_fee_rate"`

	TimeUnitInterval  time.Duration   `json:"time_unit_interval"`
	OngoingTimeUnit   *types.TimeUnit `json:"ongoing_time_unit,omitempty"`
	TimeUnitUpdatedAt time.Time       `json:"time_unit_updated_at"`

	ExchangeRateLimit     *ExchangeRateLimit `json:"exchange_rate_limit,omitempty"`
	TokenPool             sdkmath.Int        `json:"token_pool"`
	ExchangeRateUpdatedAt time.Time          `json:"exchange_rate_updated_at"`
}

func defaultProtocolSettings() *ProtocolSettings {
	return &ProtocolSettings{TokenPool: sdkmath.ZeroInt()}
}

// GetProtocolSettings returns the settings of p, defaults if never written.
func (s *CoordinatorStore) GetProtocolSettings(p types.StakingProtocol) (*ProtocolSettings, error) {
	var ps *ProtocolSettings
	err := s.db.View(func(tx kvdb.RTx) error {
		settings := tx.ReadBucket(settingsBucketName)
		if settings == nil {
			return ErrCorruptedCoordinatorDb
		}
		ps = defaultProtocolSettings()
		_, err := getJSON(settings, protocolKey(p, protocolKeyPrefix), ps)
		return err
	}, func() {
		ps = nil
	})
	if err != nil {
		return nil, err
	}

	return ps, nil
}

// UpdateProtocolSettings applies update to the settings of p in one
// transaction. Nothing is written if update fails.
func (s *CoordinatorStore) UpdateProtocolSettings(p types.StakingProtocol, update func(*ProtocolSettings) error) (*ProtocolSettings, error) {
	var updated *ProtocolSettings
	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		buckets, err := getBuckets(tx, settingsBucketName)
		if err != nil {
			return err
		}
		settings := buckets[0]

		ps := defaultProtocolSettings()
		k := protocolKey(p, protocolKeyPrefix)
		if _, err := getJSON(settings, k, ps); err != nil {
			return err
		}
		if err := update(ps); err != nil {
			return err
		}
		if err := putJSON(settings, k, ps); err != nil {
			return err
		}
		updated = ps
		return nil
	}, func() {
		updated = nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *CoordinatorStore) SetXcmFee(p types.StakingProtocol, kind types.TaskKind, fee types.XcmFee) error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		buckets, err := getBuckets(tx, settingsBucketName)
		if err != nil {
			return err
		}
		return putJSON(buckets[0], protocolKey(p, feeKeyPrefix, []byte{byte(kind)}), fee)
	})
}

// GetXcmFee returns the fee configured for a task kind or ErrXcmFeeNotFound.
func (s *CoordinatorStore) GetXcmFee(p types.StakingProtocol, kind types.TaskKind) (*types.XcmFee, error) {
	var fee *types.XcmFee
	err := s.db.View(func(tx kvdb.RTx) error {
		settings := tx.ReadBucket(settingsBucketName)
		if settings == nil {
			return ErrCorruptedCoordinatorDb
		}
		f := new(types.XcmFee)
		found, err := getJSON(settings, protocolKey(p, feeKeyPrefix, []byte{byte(kind)}), f)
		if err != nil {
			return err
		}
		if !found {
			return errorsmod.Wrapf(types.ErrXcmFeeNotFound, "%s of %s", kind, p)
		}
		fee = f
		return nil
	}, func() {
		fee = nil
	})
	if err != nil {
		return nil, err
	}

	return fee, nil
}
