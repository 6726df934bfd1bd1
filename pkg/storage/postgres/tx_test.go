package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"librarian/pkg/domain"
	"librarian/pkg/storage"
	"librarian/pkg/storage/postgres"

	"github.com/stretchr/testify/require"
)

func TestPgSQL_Begin_SuccessAndAlreadyInTx(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	txStorage, err := pg.Begin(ctx)
	require.NoError(t, err)
	require.NotNil(t, txStorage)

	inner, ok := txStorage.(*postgres.PgSQL)
	require.True(t, ok)
	_, isTx := inner.DB.(*sql.Tx)
	require.True(t, isTx)

	_, err = inner.Begin(ctx)
	require.ErrorIs(t, err, storage.ErrAlreadyInTx)

	require.NoError(t, inner.Rollback())
}

func TestPgSQL_CommitAndRollback(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	require.ErrorIs(t, pg.Commit(), storage.ErrNotInTx)
	require.ErrorIs(t, pg.Rollback(), storage.ErrNotInTx)

	// commit makes the save visible outside the tx
	tx, err := pg.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveItems(ctx, []domain.Item{domain.NewItem("ISBN1", "Dune", "Frank Herbert")}))
	require.NoError(t, tx.Commit())

	items, err := pg.LoadItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// rollback discards it
	tx, err = pg.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveItems(ctx, nil))
	require.NoError(t, tx.Rollback())

	items, err = pg.LoadItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestPgSQL_WithTx_AllCollectionsOrNone(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := pg.WithTx(ctx, func(s storage.AllStorage) error {
		if err := s.SaveLoans(ctx, []domain.Loan{domain.NewLoan("U1", "ISBN1", now, domain.DefaultLoanPeriod)}); err != nil {
			return err
		}
		if err := s.SaveItems(ctx, []domain.Item{{ID: "ISBN1", Title: "Dune", Available: false}}); err != nil {
			return err
		}

		return s.SaveUsers(ctx, []domain.User{{ID: "U1", Name: "Ada", HeldItems: []domain.ItemID{"ISBN1"}}})
	})
	require.NoError(t, err)

	// a failing unit of work leaves every collection untouched
	err = pg.WithTx(ctx, func(s storage.AllStorage) error {
		if err := s.SaveLoans(ctx, nil); err != nil {
			return err
		}
		if err := s.SaveItems(ctx, nil); err != nil {
			return err
		}

		return errors.New("crash before users")
	})
	require.Error(t, err)

	loans, err := pg.LoadLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.True(t, loans[0].IsOpen())

	items, err := pg.LoadItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.False(t, items[0].Available)

	users, err := pg.LoadUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.ItemID{"ISBN1"}, users[0].HeldItems)
}
