package storage

import (
	"context"
	"librarian/pkg/domain"
)

// Collection is the fixed logical name of a persisted entity collection. It is
// also the top-level key of the collection document in file backends.
type Collection string

const (
	// ItemsCollection holds the catalog.
	ItemsCollection Collection = "books"
	// UsersCollection holds the borrowers.
	UsersCollection Collection = "users"
	// LoansCollection holds the loan ledger.
	LoansCollection Collection = "checkouts"
)

// Collections lists every collection in the order a full transaction saves them.
func Collections() []Collection {
	return []Collection{LoansCollection, ItemsCollection, UsersCollection}
}

// ItemStorage loads and saves the catalog. LoadItems returns an empty slice
// when nothing was ever saved; SaveItems replaces the whole collection.
type ItemStorage interface {
	LoadItems(ctx context.Context) ([]domain.Item, error)
	SaveItems(ctx context.Context, items []domain.Item) error
}

// UserStorage loads and saves the borrowers with their held items.
type UserStorage interface {
	LoadUsers(ctx context.Context) ([]domain.User, error)
	SaveUsers(ctx context.Context, users []domain.User) error
}

// LoanStorage loads and saves the loan ledger. Order is significant and must
// be preserved across a save/load round trip.
type LoanStorage interface {
	LoadLoans(ctx context.Context) ([]domain.Loan, error)
	SaveLoans(ctx context.Context, loans []domain.Loan) error
}
