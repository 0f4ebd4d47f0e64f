package types

import (
	errorsmod "cosmossdk.io/errors"
)

// ModuleName is the codespace of every coordinator error.
const ModuleName = "xcmdelegator"

var (
	ErrNotAuthorized              = errorsmod.Register(ModuleName, 2, "origin is not authorized for this operation")
	ErrDelegatorAlreadyExists     = errorsmod.Register(ModuleName, 3, "delegator index is already in use")
	ErrTooManyDelegators          = errorsmod.Register(ModuleName, 4, "maximum number of delegators reached")
	ErrDelegatorNotFound          = errorsmod.Register(ModuleName, 5, "delegator not found")
	ErrLedgerNotEmpty             = errorsmod.Register(ModuleName, 6, "delegator ledger is not empty")
	ErrValidatorAlreadyExists     = errorsmod.Register(ModuleName, 7, "validator already exists")
	ErrTooManyValidators          = errorsmod.Register(ModuleName, 8, "maximum number of validators reached")
	ErrValidatorNotFound          = errorsmod.Register(ModuleName, 9, "validator not found")
	ErrInvalidValidator           = errorsmod.Register(ModuleName, 10, "validator does not match the protocol account kind")
	ErrXcmFeeNotFound             = errorsmod.Register(ModuleName, 11, "xcm task fee not found")
	ErrConfigurationNotFound      = errorsmod.Register(ModuleName, 12, "configuration not found")
	ErrTimeUnitNotFound           = errorsmod.Register(ModuleName, 13, "ongoing time unit not found")
	ErrInvalidTimeUnit            = errorsmod.Register(ModuleName, 14, "invalid time unit")
	ErrTimeUnitMismatch           = errorsmod.Register(ModuleName, 15, "time units of different kinds cannot be compared")
	ErrUpdateIntervalTooShort     = errorsmod.Register(ModuleName, 16, "update interval has not elapsed")
	ErrUnlockRecordOverflow       = errorsmod.Register(ModuleName, 17, "too many unlocking chunks")
	ErrSendFailure                = errorsmod.Register(ModuleName, 18, "failed to send xcm message")
	ErrInvalidPermill             = errorsmod.Register(ModuleName, 19, "permill must not exceed one million")
	ErrExchangeRateChangeTooLarge = errorsmod.Register(ModuleName, 20, "token exchange rate change exceeds the limit")
	ErrInvalidTask                = errorsmod.Register(ModuleName, 21, "task does not belong to the protocol")
	ErrInvalidResponder           = errorsmod.Register(ModuleName, 22, "response does not come from the protocol destination")
	ErrInvalidLedger              = errorsmod.Register(ModuleName, 23, "invalid ledger")
	ErrInvalidAccount             = errorsmod.Register(ModuleName, 24, "invalid account")
	ErrUnknownProtocol            = errorsmod.Register(ModuleName, 25, "unknown staking protocol")
	ErrInvalidAmount              = errorsmod.Register(ModuleName, 26, "invalid amount")
	ErrProtocolFeeNotMinted       = errorsmod.Register(ModuleName, 27, "token pool updated but the protocol fee was not minted")
)
