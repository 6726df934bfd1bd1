package postgres_test

import (
	"context"
	"librarian/pkg/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPgSQL_Collections(t *testing.T) {
	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()

	t.Run("empty collections", func(t *testing.T) {
		items, err := pgSQL.LoadItems(ctx)
		require.NoError(t, err)
		require.Empty(t, items)

		loans, err := pgSQL.LoadLoans(ctx)
		require.NoError(t, err)
		require.Empty(t, loans)
	})

	t.Run("items keep order and overwrite", func(t *testing.T) {
		items := []domain.Item{
			domain.NewItem("B", "Second isbn first", "X"),
			domain.NewItem("A", "First isbn second", "Y"),
		}
		require.NoError(t, pgSQL.SaveItems(ctx, items))

		got, err := pgSQL.LoadItems(ctx)
		require.NoError(t, err)
		require.Equal(t, items, got)

		require.NoError(t, pgSQL.SaveItems(ctx, items[:1]))
		got, err = pgSQL.LoadItems(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1, "save is a full overwrite")
	})

	t.Run("users round trip held items", func(t *testing.T) {
		users := []domain.User{
			domain.NewUser("U1", "Ada"),
			{ID: "U2", Name: "Grace", HeldItems: []domain.ItemID{"A", "B"}},
		}
		require.NoError(t, pgSQL.SaveUsers(ctx, users))

		got, err := pgSQL.LoadUsers(ctx)
		require.NoError(t, err)
		require.Equal(t, users, got)
	})

	t.Run("loans keep null return date", func(t *testing.T) {
		out := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		closed := domain.NewLoan("U1", "A", out, domain.DefaultLoanPeriod)
		closed.ReturnTime = out.Add(time.Hour)
		open := domain.NewLoan("U2", "A", out.Add(2*time.Hour), domain.DefaultLoanPeriod)

		require.NoError(t, pgSQL.SaveLoans(ctx, []domain.Loan{closed, open}))

		got, err := pgSQL.LoadLoans(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.False(t, got[0].IsOpen())
		require.True(t, got[0].ReturnTime.Equal(closed.ReturnTime))
		require.True(t, got[1].IsOpen())
		require.True(t, got[1].CheckoutTime.Equal(open.CheckoutTime))
		require.True(t, got[1].DueTime.Equal(open.DueTime))
	})
}
