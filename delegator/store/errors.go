package store

import "errors"

var (
	// ErrCorruptedCoordinatorDb For some reason, db on disk representation have changed
	ErrCorruptedCoordinatorDb = errors.New("coordinator db is corrupted")

	// ErrDuplicatePendingStatus A pending status with the same query id already exists
	ErrDuplicatePendingStatus = errors.New("pending status already exists")

	// ErrQueryIDNotReserved The query id to commit was never handed out by ReserveQueryID
	ErrQueryIDNotReserved = errors.New("query id has not been reserved")
)
