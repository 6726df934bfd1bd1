// Package library is the entry point used by the CLI and the HTTP API. It
// loads the catalog, the borrowers and the loan ledger from storage and runs
// every operation to completion under one lock, so callers never observe a
// half-applied change.
package library

import (
	"context"
	"fmt"
	"librarian/internal/borrower"
	"librarian/internal/catalog"
	"librarian/internal/ledger"
	"librarian/pkg/domain"
	"librarian/pkg/logger"
	"librarian/pkg/serrors"
	"librarian/pkg/storage"
	"sync"

	"go.uber.org/zap"
)

// library is the concrete implementation of the Library interface.
type library struct {
	mu sync.Mutex

	storage   storage.Storage
	catalog   *catalog.Catalog
	borrowers *borrower.Borrowers
	ledger    *ledger.Ledger
}

// Open loads every collection from st and checks that they agree with each
// other. Disagreements are logged, not fatal, so an operator can still inspect
// and repair the data.
func Open(ctx context.Context, st storage.Storage, options ledger.Options) (Library, error) {
	items, err := st.LoadItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load items: %w", err)
	}
	users, err := st.LoadUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load users: %w", err)
	}
	loans, err := st.LoadLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load loans: %w", err)
	}

	l := &library{
		storage:   st,
		catalog:   catalog.New(items),
		borrowers: borrower.New(users),
	}
	l.ledger = ledger.New(loans, l.catalog, l.borrowers, st, options)

	if err := l.ledger.Verify(); err != nil {
		logger.Warn(ctx, "stored library data is inconsistent", zap.Error(err))
	}
	logger.Debug(ctx, "library loaded",
		zap.Int("items", len(items)), zap.Int("users", len(users)), zap.Int("loans", len(loans)))

	return l, nil
}

func (l *library) AddItem(ctx context.Context, id domain.ItemID, title, author string) (domain.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.catalog.Items()
	item := domain.NewItem(id, title, author)
	if err := l.catalog.Add(item); err != nil {
		return domain.Item{}, err
	}
	if err := l.saveItems(ctx, before); err != nil {
		return domain.Item{}, err
	}
	logger.Info(ctx, "item added", zap.String("isbn", string(id)))

	return item, nil
}

func (l *library) Item(_ context.Context, id domain.ItemID) (domain.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.catalog.Find(id)
	if !ok {
		return domain.Item{}, serrors.Wrap(serrors.ErrNotFound, domain.ErrItemNotFound, "isbn %s", id)
	}

	return item, nil
}

func (l *library) Items(_ context.Context, query string) []domain.Item {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.catalog.Search(query)
}

func (l *library) UpdateItem(ctx context.Context, id domain.ItemID, title, author string) (domain.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.catalog.Items()
	item, err := l.catalog.Update(id, title, author)
	if err != nil {
		return domain.Item{}, err
	}
	if err := l.saveItems(ctx, before); err != nil {
		return domain.Item{}, err
	}
	logger.Info(ctx, "item updated", zap.String("isbn", string(id)))

	return item, nil
}

func (l *library) DeleteItem(ctx context.Context, id domain.ItemID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.catalog.Items()
	if err := l.catalog.Delete(id); err != nil {
		return err
	}
	if err := l.saveItems(ctx, before); err != nil {
		return err
	}
	logger.Info(ctx, "item deleted", zap.String("isbn", string(id)))

	return nil
}

func (l *library) AddUser(ctx context.Context, id domain.UserID, name string) (domain.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.borrowers.Users()
	user := domain.NewUser(id, name)
	if err := l.borrowers.Add(user); err != nil {
		return domain.User{}, err
	}
	if err := l.saveUsers(ctx, before); err != nil {
		return domain.User{}, err
	}
	logger.Info(ctx, "user added", zap.String("user_id", string(id)))

	return user, nil
}

func (l *library) User(_ context.Context, id domain.UserID) (domain.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.borrowers.Find(id)
	if !ok {
		return domain.User{}, serrors.Wrap(serrors.ErrNotFound, domain.ErrUserNotFound, "user %s", id)
	}

	return user, nil
}

func (l *library) Users(_ context.Context, query string) []domain.User {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.borrowers.Search(query)
}

func (l *library) UpdateUser(ctx context.Context, id domain.UserID, name string) (domain.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.borrowers.Users()
	user, err := l.borrowers.Update(id, name)
	if err != nil {
		return domain.User{}, err
	}
	if err := l.saveUsers(ctx, before); err != nil {
		return domain.User{}, err
	}
	logger.Info(ctx, "user updated", zap.String("user_id", string(id)))

	return user, nil
}

func (l *library) DeleteUser(ctx context.Context, id domain.UserID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.borrowers.Users()
	if err := l.borrowers.Delete(id); err != nil {
		return err
	}
	if err := l.saveUsers(ctx, before); err != nil {
		return err
	}
	logger.Info(ctx, "user deleted", zap.String("user_id", string(id)))

	return nil
}

func (l *library) Checkout(ctx context.Context, userID domain.UserID, itemID domain.ItemID) (domain.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.ledger.Checkout(ctx, userID, itemID)
}

func (l *library) Return(ctx context.Context, userID domain.UserID, itemID domain.ItemID) (domain.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.ledger.Return(ctx, userID, itemID)
}

func (l *library) Loans(_ context.Context, filter ledger.Filter) []domain.Loan {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.ledger.Loans(filter)
}

func (l *library) Verify(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.ledger.Verify()
}

// saveItems persists the catalog, restoring before when the save fails.
func (l *library) saveItems(ctx context.Context, before []domain.Item) error {
	if err := l.storage.SaveItems(ctx, l.catalog.Items()); err != nil {
		l.catalog.Reset(before)

		return serrors.Wrap(serrors.ErrInternal, err, "could not save items")
	}

	return nil
}

// saveUsers persists the borrowers, restoring before when the save fails.
func (l *library) saveUsers(ctx context.Context, before []domain.User) error {
	if err := l.storage.SaveUsers(ctx, l.borrowers.Users()); err != nil {
		l.borrowers.Reset(before)

		return serrors.Wrap(serrors.ErrInternal, err, "could not save users")
	}

	return nil
}
