package file_test

import (
	"context"
	"errors"
	"librarian/pkg/domain"
	"librarian/pkg/storage"
	"librarian/pkg/storage/file"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestFile(t *testing.T) (*file.File, string) {
	t.Helper()

	dir := t.TempDir()
	f, err := file.Open(context.Background(), file.Options{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	return f, dir
}

func TestFile_EmptyCollections(t *testing.T) {
	f, _ := openTestFile(t)
	ctx := context.Background()

	items, err := f.LoadItems(ctx)
	require.NoError(t, err)
	require.Empty(t, items)

	users, err := f.LoadUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, users)

	loans, err := f.LoadLoans(ctx)
	require.NoError(t, err)
	require.Empty(t, loans)
}

func TestFile_RoundTrip(t *testing.T) {
	f, dir := openTestFile(t)
	ctx := context.Background()

	items := []domain.Item{
		domain.NewItem("ISBN1", "Dune", "Frank Herbert"),
		{ID: "ISBN2", Title: "Emma", Author: "Jane Austen", Available: false},
	}
	users := []domain.User{
		domain.NewUser("U1", "Ada"),
		{ID: "U2", Name: "Grace", HeldItems: []domain.ItemID{"ISBN2"}},
	}
	out := time.Date(2024, 3, 1, 10, 30, 0, 123456000, time.UTC)
	loans := []domain.Loan{
		{
			UserID:       "U1",
			ItemID:       "ISBN1",
			CheckoutTime: out,
			DueTime:      out.Add(domain.DefaultLoanPeriod),
			ReturnTime:   out.Add(48 * time.Hour),
		},
		domain.NewLoan("U2", "ISBN2", out.Add(time.Hour), domain.DefaultLoanPeriod),
	}

	require.NoError(t, f.SaveItems(ctx, items))
	require.NoError(t, f.SaveUsers(ctx, users))
	require.NoError(t, f.SaveLoans(ctx, loans))

	for _, name := range []string{"books.json", "users.json", "checkouts.json"} {
		require.FileExists(t, filepath.Join(dir, name))
	}

	gotItems, err := f.LoadItems(ctx)
	require.NoError(t, err)
	require.Equal(t, items, gotItems)

	gotUsers, err := f.LoadUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, users, gotUsers)

	gotLoans, err := f.LoadLoans(ctx)
	require.NoError(t, err)
	require.Len(t, gotLoans, 2)
	require.Equal(t, loans, gotLoans)
	require.False(t, gotLoans[0].IsOpen(), "return date must survive the round trip")
	require.True(t, gotLoans[1].IsOpen(), "null return date must load as an open loan")
}

func TestFile_RecordLayout(t *testing.T) {
	f, dir := openTestFile(t)
	ctx := context.Background()

	out := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.SaveLoans(ctx, []domain.Loan{domain.NewLoan("U1", "ISBN1", out, domain.DefaultLoanPeriod)}))

	data, err := os.ReadFile(filepath.Join(dir, "checkouts.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"checkouts": [{
		"user_id": "U1",
		"item_id": "ISBN1",
		"checkout_date": "2024-03-01T10:00:00Z",
		"due_date": "2024-03-15T10:00:00Z",
		"return_date": null
	}]}`, string(data))

	require.NoError(t, f.SaveItems(ctx, []domain.Item{domain.NewItem("ISBN1", "Dune", "Frank Herbert")}))
	data, err = os.ReadFile(filepath.Join(dir, "books.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"books": [{"title": "Dune", "author": "Frank Herbert", "isbn": "ISBN1", "is_available": true}]}`,
		string(data))

	require.NoError(t, f.SaveUsers(ctx, []domain.User{domain.NewUser("U1", "Ada")}))
	data, err = os.ReadFile(filepath.Join(dir, "users.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"users": [{"name": "Ada", "user_id": "U1", "borrowed_items": []}]}`, string(data))
}

func TestFile_LoadsLegacyFiles(t *testing.T) {
	f, dir := openTestFile(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "checkouts.json"), []byte(`{
  "checkouts": [
    {
      "user_id": "U1",
      "item_id": "978-0441013593",
      "checkout_date": "2024-03-01T10:00:00.123456",
      "due_date": "2024-03-15T10:00:00.123456",
      "return_date": "2024-03-05T09:00:00"
    }
  ]
}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte(`{
  "users": [{"name": "Ada", "user_id": "U1", "borrowed_items": ["A", "A", "B"], "email": "ignored"}]
}`), 0o600))

	loans, err := f.LoadLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.Local), loans[0].CheckoutTime)
	require.Equal(t, time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local), loans[0].ReturnTime)

	users, err := f.LoadUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.ItemID{"A", "B"}, users[0].HeldItems, "duplicate held items collapse on load")
}

func TestFile_RejectsMalformedRecords(t *testing.T) {
	f, dir := openTestFile(t)
	ctx := context.Background()

	cases := map[string]string{
		"not json":          `{"checkouts": [`,
		"missing item id":   `{"checkouts": [{"user_id": "U1", "checkout_date": "2024-03-01T10:00:00Z", "due_date": "2024-03-15T10:00:00Z"}]}`,
		"bad timestamp":     `{"checkouts": [{"user_id": "U1", "item_id": "A", "checkout_date": "yesterday", "due_date": "2024-03-15T10:00:00Z"}]}`,
		"missing due date":  `{"checkouts": [{"user_id": "U1", "item_id": "A", "checkout_date": "2024-03-01T10:00:00Z"}]}`,
		"wrong return type": `{"checkouts": [{"user_id": "U1", "item_id": "A", "checkout_date": "2024-03-01T10:00:00Z", "due_date": "2024-03-15T10:00:00Z", "return_date": 5}]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "checkouts.json"), []byte(content), 0o600))

			_, err := f.LoadLoans(ctx)
			require.Error(t, err)
		})
	}
}

func TestFile_TxStagesUntilCommit(t *testing.T) {
	f, dir := openTestFile(t)
	ctx := context.Background()

	tx, err := f.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.SaveItems(ctx, []domain.Item{domain.NewItem("ISBN1", "Dune", "Frank Herbert")}))
	require.NoFileExists(t, filepath.Join(dir, "books.json"), "staged saves must not touch disk")

	// reads inside the tx see staged data
	staged, err := tx.LoadItems(ctx)
	require.NoError(t, err)
	require.Len(t, staged, 1)

	outside, err := f.LoadItems(ctx)
	require.NoError(t, err)
	require.Empty(t, outside)

	require.NoError(t, tx.Commit())
	require.NoFileExists(t, filepath.Join(dir, "journal.json"))

	committed, err := f.LoadItems(ctx)
	require.NoError(t, err)
	require.Len(t, committed, 1)

	require.ErrorIs(t, tx.Commit(), storage.ErrTxDone)
	require.ErrorIs(t, tx.SaveItems(ctx, nil), storage.ErrTxDone)
}

func TestFile_TxStateErrors(t *testing.T) {
	f, _ := openTestFile(t)
	ctx := context.Background()

	require.ErrorIs(t, f.Commit(), storage.ErrNotInTx)
	require.ErrorIs(t, f.Rollback(), storage.ErrNotInTx)

	tx, err := f.Begin(ctx)
	require.NoError(t, err)

	inner, ok := tx.(*file.File)
	require.True(t, ok)
	_, err = inner.Begin(ctx)
	require.ErrorIs(t, err, storage.ErrAlreadyInTx)

	require.NoError(t, tx.Rollback())
	require.ErrorIs(t, tx.Rollback(), storage.ErrTxDone)
}

func TestFile_WithTx_CommitAndRollback(t *testing.T) {
	f, _ := openTestFile(t)
	ctx := context.Background()

	err := f.WithTx(ctx, func(s storage.AllStorage) error {
		if err := s.SaveLoans(ctx, []domain.Loan{domain.NewLoan("U1", "ISBN1", time.Now(), time.Hour)}); err != nil {
			return err
		}

		return s.SaveUsers(ctx, []domain.User{{ID: "U1", Name: "Ada", HeldItems: []domain.ItemID{"ISBN1"}}})
	})
	require.NoError(t, err)

	loans, err := f.LoadLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)

	boom := errors.New("boom")
	err = f.WithTx(ctx, func(s storage.AllStorage) error {
		_ = s.SaveLoans(ctx, nil)

		return boom
	})
	require.ErrorIs(t, err, boom)

	loans, err = f.LoadLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1, "rolled back save must not be applied")
}

func TestOpen_RollsBackInterruptedCommit(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// a commit that died after writing checkouts and books but before users
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checkouts.json"), []byte(`{"checkouts": [{"user_id": "U1",
		"item_id": "ISBN1", "checkout_date": "2024-03-01T10:00:00Z", "due_date": "2024-03-15T10:00:00Z",
		"return_date": null}]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "books.json"),
		[]byte(`{"books": [{"title": "Dune", "author": "Frank Herbert", "isbn": "ISBN1", "is_available": false}]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"),
		[]byte(`{"users": [{"name": "Ada", "user_id": "U1", "borrowed_items": []}]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "journal.json"), []byte(`{
		"checkouts": null,
		"books": {"books": [{"title": "Dune", "author": "Frank Herbert", "isbn": "ISBN1", "is_available": true}]},
		"users": {"users": [{"name": "Ada", "user_id": "U1", "borrowed_items": []}]}
	}`), 0o600))

	f, err := file.Open(ctx, file.Options{Dir: dir})
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(dir, "journal.json"))
	require.NoFileExists(t, filepath.Join(dir, "checkouts.json"), "a collection that did not exist is removed again")

	items, err := f.LoadItems(ctx)
	require.NoError(t, err)
	require.True(t, items[0].Available)

	users, err := f.LoadUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, users[0].HeldItems)

	loans, err := f.LoadLoans(ctx)
	require.NoError(t, err)
	require.Empty(t, loans)
}

func TestFile_CommitFailureRestoresPreviousState(t *testing.T) {
	f, dir := openTestFile(t)
	ctx := context.Background()

	require.NoError(t, f.SaveItems(ctx, []domain.Item{domain.NewItem("ISBN1", "Dune", "Frank Herbert")}))

	// books.json can no longer be replaced: its temp file path is taken by a directory
	blocker := filepath.Join(dir, "books.json.tmp")
	require.NoError(t, os.Mkdir(blocker, 0o755))

	err := f.WithTx(ctx, func(s storage.AllStorage) error {
		if err := s.SaveLoans(ctx, []domain.Loan{domain.NewLoan("U1", "ISBN1", time.Now(), time.Hour)}); err != nil {
			return err
		}

		return s.SaveItems(ctx, []domain.Item{{ID: "ISBN1", Title: "Dune", Author: "Frank Herbert"}})
	})
	require.ErrorContains(t, err, "apply books")

	require.NoFileExists(t, filepath.Join(dir, "journal.json"))
	require.NoFileExists(t, filepath.Join(dir, "checkouts.json"), "checkouts written before the failure are undone")

	items, err := f.LoadItems(ctx)
	require.NoError(t, err)
	require.True(t, items[0].Available)

	require.NoError(t, os.Remove(blocker))

	// nothing of the failed commit comes back once the backend is healthy again
	require.NoError(t, f.SaveItems(ctx, []domain.Item{
		domain.NewItem("ISBN1", "Dune", "Frank Herbert"),
		domain.NewItem("ISBN2", "Emma", "Jane Austen"),
	}))
	reopened, err := file.Open(ctx, file.Options{Dir: dir})
	require.NoError(t, err)

	items, err = reopened.LoadItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.True(t, items[0].Available)

	loans, err := reopened.LoadLoans(ctx)
	require.NoError(t, err)
	require.Empty(t, loans)
}

func TestFile_SaveRollsBackPendingJournal(t *testing.T) {
	f, dir := openTestFile(t)
	ctx := context.Background()

	// left behind by a commit whose restore failed as well
	require.NoError(t, os.WriteFile(filepath.Join(dir, "books.json"),
		[]byte(`{"books": [{"title": "Dune", "author": "Frank Herbert", "isbn": "ISBN1", "is_available": false}]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "journal.json"), []byte(`{
		"books": {"books": [{"title": "Dune", "author": "Frank Herbert", "isbn": "ISBN1", "is_available": true}]}
	}`), 0o600))

	require.NoError(t, f.SaveUsers(ctx, []domain.User{domain.NewUser("U1", "Ada")}))
	require.NoFileExists(t, filepath.Join(dir, "journal.json"))

	items, err := f.LoadItems(ctx)
	require.NoError(t, err)
	require.True(t, items[0].Available, "the unfinished commit is undone before the save")

	users, err := f.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestOpen_DiscardsTornJournal(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "journal.json"), []byte(`{"checkouts": {"checkou`), 0o600))

	f, err := file.Open(ctx, file.Options{Dir: dir})
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(dir, "journal.json"))

	loans, err := f.LoadLoans(ctx)
	require.NoError(t, err)
	require.Empty(t, loans)
}
