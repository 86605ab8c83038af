package vesting

import "math/big"

// Store is the persistence port the manager drives. It is implemented
// by pkg/storage against SQLite, and by an in-memory fake in this
// package's tests; the manager itself never knows which.
//
// Tx gives the manager a transactional boundary: WithWriteTx runs fn
// against a fresh transactional handle and commits only if fn returns
// nil, giving "any write that precedes a failing token transfer must be
// rolled back" (spec §5) without the manager needing to know how the
// store implements atomicity.
type Store interface {
	// WithWriteTx runs fn within a single atomic unit of work. If fn
	// returns a non-nil error, every mutation made through the Tx
	// passed to fn is discarded and WithWriteTx returns that error.
	WithWriteTx(fn func(Tx) error) error

	// Read-only accessors used outside of a write transaction, for
	// queries that don't need a consistent multi-statement snapshot.
	Reader
}

// Tx is the mutating half of Store, valid only for the lifetime of the
// WithWriteTx callback it was passed to.
type Tx interface {
	Reader

	Initialize(factoryCaller Address, tokenAddress string) error

	SetAdmin(addr Address, enabled bool)
	SetReserved(v *big.Int)

	PutSchedule(id ID, v Vesting)
	SetClaimedAmount(id ID, claimed *big.Int)
	SetDeactivationTimestamp(id ID, ts uint64)
	AppendRecipientSchedule(addr Address, id ID)

	// AllocateID returns the id to assign to a new schedule (the
	// current nonce) and advances the nonce by one (spec invariant
	// I10: ids are dense and strictly monotonic from 0).
	AllocateID() ID
}

// Reader is the read-only surface of Store, shared by Store and Tx so
// every query works identically whether or not it runs inside a write
// transaction.
type Reader interface {
	Initialized() (bool, error)
	TokenAddress() (string, error)

	IsAdmin(addr Address) (bool, error)
	AdminCount() (uint32, error)

	Reserved() (*big.Int, error)

	GetSchedule(id ID) (Vesting, bool, error)

	IsRecipient(addr Address) (bool, error)
	Recipients() ([]Address, error)
	RecipientsLen() (uint64, error)
	RecipientsSliced(from, to uint64) ([]Address, error)

	RecipientScheduleIDs(addr Address) ([]ID, error)
	RecipientScheduleIDsLen(addr Address) (uint64, error)
	RecipientScheduleIDsSliced(addr Address, from, to uint64) ([]ID, error)
}
