// Package storage defines the persistence boundary the library relies on.
// Each entity type is one named collection that is loaded whole and saved as a
// full overwrite. Backends (flat JSON files, PostgreSQL) provide concrete
// implementations; transactions let a caller save several collections as one
// unit of work.
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import "context"

// AllStorage is the composite of every collection the library persists.
type AllStorage interface {
	ItemStorage
	UserStorage
	LoanStorage
}

// TxStorage is a storage handle bound to an ongoing transaction. Saves made
// through it become visible together on Commit and are discarded on Rollback.
// Implementations become unusable after Commit or Rollback.
type TxStorage interface {
	AllStorage

	// Commit makes all staged saves durable.
	Commit() error
	// Rollback discards all staged saves.
	Rollback() error
}

// Storage is a non-transactional storage handle that can start transactions.
type Storage interface {
	AllStorage

	// Close releases any resources held by the backend.
	Close() error

	// Begin starts a new transaction.
	Begin(ctx context.Context) (TxStorage, error)
	// WithTx begins a transaction, invokes cb with it, and commits when cb
	// returns nil. If cb fails the transaction is rolled back.
	WithTx(ctx context.Context, cb func(storage AllStorage) error) error
}
