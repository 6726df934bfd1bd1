package library

import (
	"context"
	"librarian/internal/ledger"
	"librarian/pkg/domain"
)

//go:generate mockgen -package mocklibrary -source=interface.go -destination=mock/mocklibrary.go *
type Library interface {
	AddItem(ctx context.Context, id domain.ItemID, title, author string) (domain.Item, error)
	Item(ctx context.Context, id domain.ItemID) (domain.Item, error)
	Items(ctx context.Context, query string) []domain.Item
	UpdateItem(ctx context.Context, id domain.ItemID, title, author string) (domain.Item, error)
	DeleteItem(ctx context.Context, id domain.ItemID) error

	AddUser(ctx context.Context, id domain.UserID, name string) (domain.User, error)
	User(ctx context.Context, id domain.UserID) (domain.User, error)
	Users(ctx context.Context, query string) []domain.User
	UpdateUser(ctx context.Context, id domain.UserID, name string) (domain.User, error)
	DeleteUser(ctx context.Context, id domain.UserID) error

	Checkout(ctx context.Context, userID domain.UserID, itemID domain.ItemID) (domain.Loan, error)
	Return(ctx context.Context, userID domain.UserID, itemID domain.ItemID) (domain.Loan, error)
	Loans(ctx context.Context, filter ledger.Filter) []domain.Loan
	Verify(ctx context.Context) error
}
