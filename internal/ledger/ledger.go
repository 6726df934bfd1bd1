// Package ledger implements the loan ledger: the append-only history of
// checkouts and the checkout/return workflow that keeps item availability and
// borrowers' held items in step with it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"librarian/internal/config"
	"librarian/pkg/domain"
	"librarian/pkg/logger"
	"librarian/pkg/metrics"
	"librarian/pkg/serrors"
	"librarian/pkg/storage"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "librarian/internal/ledger"

// Catalog is the part of the catalog store the ledger drives.
type Catalog interface {
	Find(id domain.ItemID) (domain.Item, bool)
	SetAvailable(id domain.ItemID, available bool) error
	Items() []domain.Item
}

// Borrowers is the part of the borrower store the ledger drives.
type Borrowers interface {
	Find(id domain.UserID) (domain.User, bool)
	AddHeld(id domain.UserID, itemID domain.ItemID) error
	RemoveHeld(id domain.UserID, itemID domain.ItemID) error
	Users() []domain.User
}

// Options configure the circulation rules.
type Options struct {
	// LoanPeriod is added to the checkout time to get the due time.
	LoanPeriod time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Metrics receives circulation outcomes. May be nil.
	Metrics *metrics.Circulation
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		LoanPeriod: cfg.Loan.Period,
	}
}

// Filter narrows a Loans query. Zero fields match everything.
type Filter struct {
	UserID   domain.UserID
	ItemID   domain.ItemID
	OpenOnly bool
}

// Ledger owns the loan history and coordinates the catalog and borrower
// stores during checkout and return. It is not safe for concurrent use.
type Ledger struct {
	options   Options
	storage   storage.Storage
	catalog   Catalog
	borrowers Borrowers
	loans     []domain.Loan
	tracer    trace.Tracer
}

// New creates a ledger over previously loaded loans.
func New(loans []domain.Loan, catalog Catalog, borrowers Borrowers, st storage.Storage, options Options) *Ledger {
	if options.LoanPeriod <= 0 {
		options.LoanPeriod = domain.DefaultLoanPeriod
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Ledger{
		options:   options,
		storage:   st,
		catalog:   catalog,
		borrowers: borrowers,
		loans:     slices.Clone(loans),
		tracer:    otel.Tracer(tracerName),
	}
}

// Checkout lends an item to a user. The user and the item must exist and the
// item must be available. On success the new loan is recorded, the item
// becomes unavailable, the user holds it and all three collections are saved.
func (l *Ledger) Checkout(ctx context.Context, userID domain.UserID, itemID domain.ItemID) (domain.Loan, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.Checkout", trace.WithAttributes(
		attribute.String("user_id", string(userID)),
		attribute.String("item_id", string(itemID)),
	))
	defer span.End()
	start := time.Now()

	loan, err := l.checkout(ctx, userID, itemID)
	l.observe(ctx, span, metrics.OperationCheckout, start, userID, itemID, err)

	return loan, err
}

func (l *Ledger) checkout(ctx context.Context, userID domain.UserID, itemID domain.ItemID) (domain.Loan, error) {
	user, item, err := l.resolve(userID, itemID)
	if err != nil {
		return domain.Loan{}, err
	}
	if !item.Available {
		return domain.Loan{}, serrors.Wrap(serrors.ErrConflict, domain.ErrItemUnavailable, "isbn %s", itemID)
	}

	loan := domain.NewLoan(userID, itemID, l.options.Now(), l.options.LoanPeriod)
	heldBefore := user.Holds(itemID)

	l.loans = append(l.loans, loan)
	undo := func() {
		l.loans = l.loans[:len(l.loans)-1]
		_ = l.catalog.SetAvailable(itemID, true)
		if !heldBefore {
			_ = l.borrowers.RemoveHeld(userID, itemID)
		}
	}

	if err := l.apply(
		func() error { return l.catalog.SetAvailable(itemID, false) },
		func() error { return l.borrowers.AddHeld(userID, itemID) },
		func() error { return l.persist(ctx) },
	); err != nil {
		undo()

		return domain.Loan{}, err
	}

	return loan, nil
}

// Return closes the open loan of the item by the user. The item becomes
// available again, the user stops holding it and all three collections are
// saved.
func (l *Ledger) Return(ctx context.Context, userID domain.UserID, itemID domain.ItemID) (domain.Loan, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.Return", trace.WithAttributes(
		attribute.String("user_id", string(userID)),
		attribute.String("item_id", string(itemID)),
	))
	defer span.End()
	start := time.Now()

	loan, err := l.giveBack(ctx, userID, itemID)
	l.observe(ctx, span, metrics.OperationReturn, start, userID, itemID, err)

	return loan, err
}

func (l *Ledger) giveBack(ctx context.Context, userID domain.UserID, itemID domain.ItemID) (domain.Loan, error) {
	user, item, err := l.resolve(userID, itemID)
	if err != nil {
		return domain.Loan{}, err
	}

	idx, open := -1, 0
	for i, loan := range l.loans {
		if loan.IsOpen() && loan.Matches(userID, itemID) {
			if idx < 0 {
				idx = i
			}
			open++
		}
	}
	switch {
	case open == 0:
		return domain.Loan{}, serrors.Wrap(serrors.ErrConflict, domain.ErrNoActiveLoan,
			"user %s, isbn %s", userID, itemID)
	case open > 1:
		return domain.Loan{}, serrors.With(serrors.ErrInconsistent,
			"user %s has %d open loans for isbn %s", userID, open, itemID)
	}

	heldBefore := user.Holds(itemID)
	wasAvailable := item.Available

	l.loans[idx].ReturnTime = l.options.Now()
	undo := func() {
		l.loans[idx].ReturnTime = time.Time{}
		_ = l.catalog.SetAvailable(itemID, wasAvailable)
		if heldBefore {
			_ = l.borrowers.AddHeld(userID, itemID)
		}
	}

	if err := l.apply(
		func() error { return l.catalog.SetAvailable(itemID, true) },
		func() error { return l.borrowers.RemoveHeld(userID, itemID) },
		func() error { return l.persist(ctx) },
	); err != nil {
		undo()

		return domain.Loan{}, err
	}

	return l.loans[idx], nil
}

// Loans returns the loans matching the filter in ledger order.
func (l *Ledger) Loans(filter Filter) []domain.Loan {
	out := []domain.Loan{}
	for _, loan := range l.loans {
		if filter.UserID != "" && loan.UserID != filter.UserID {
			continue
		}
		if filter.ItemID != "" && loan.ItemID != filter.ItemID {
			continue
		}
		if filter.OpenOnly && !loan.IsOpen() {
			continue
		}
		out = append(out, loan)
	}

	return out
}

func (l *Ledger) resolve(userID domain.UserID, itemID domain.ItemID) (domain.User, domain.Item, error) {
	if userID == "" || itemID == "" {
		return domain.User{}, domain.Item{}, serrors.With(serrors.ErrBadRequest, "user id and isbn are required")
	}

	user, ok := l.borrowers.Find(userID)
	if !ok {
		return domain.User{}, domain.Item{}, serrors.Wrap(serrors.ErrNotFound, domain.ErrUserNotFound, "user %s", userID)
	}

	item, ok := l.catalog.Find(itemID)
	if !ok {
		return domain.User{}, domain.Item{}, serrors.Wrap(serrors.ErrNotFound, domain.ErrItemNotFound, "isbn %s", itemID)
	}

	return user, item, nil
}

// apply runs steps in order and stops at the first failure.
func (l *Ledger) apply(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			var semantic *serrors.Error
			if errors.As(err, &semantic) {
				return err
			}

			return serrors.Wrap(serrors.ErrInternal, err, "could not update state")
		}
	}

	return nil
}

// persist saves the ledger, the catalog and the borrowers in that order as one
// unit of work.
func (l *Ledger) persist(ctx context.Context) error {
	err := l.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		if err := tx.SaveLoans(ctx, slices.Clone(l.loans)); err != nil {
			return fmt.Errorf("could not save loans: %w", err)
		}
		if err := tx.SaveItems(ctx, l.catalog.Items()); err != nil {
			return fmt.Errorf("could not save items: %w", err)
		}
		if err := tx.SaveUsers(ctx, l.borrowers.Users()); err != nil {
			return fmt.Errorf("could not save users: %w", err)
		}

		return nil
	})
	if err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not persist ledger")
	}

	return nil
}

func (l *Ledger) observe(ctx context.Context,
	span trace.Span,
	operation string,
	start time.Time,
	userID domain.UserID,
	itemID domain.ItemID,
	err error,
) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("user_id", string(userID)),
		zap.String("item_id", string(itemID)),
	}
	if err != nil {
		kind := serrors.KindOf(err).Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		l.options.Metrics.Rejected(ctx, operation, kind)
		logger.Warn(ctx, "circulation rejected", append(fields, zap.String("kind", kind), zap.Error(err))...)

		return
	}

	l.options.Metrics.Completed(ctx, operation, time.Since(start))
	logger.Info(ctx, "circulation completed", fields...)
}
