package library_test

import (
	"context"
	"errors"
	"librarian/internal/ledger"
	"librarian/internal/library"
	"librarian/pkg/domain"
	"librarian/pkg/serrors"
	"librarian/pkg/storage/file"
	mockstorage "librarian/pkg/storage/mock"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func openLibrary(t *testing.T, dir string) library.Library {
	t.Helper()
	ctx := context.Background()

	st, err := file.Open(ctx, file.Options{Dir: dir})
	require.NoError(t, err)

	lib, err := library.Open(ctx, st, ledger.Options{LoanPeriod: domain.DefaultLoanPeriod})
	require.NoError(t, err)

	return lib
}

func TestLibrary_CatalogAdministration(t *testing.T) {
	dir := t.TempDir()
	lib := openLibrary(t, dir)
	ctx := context.Background()

	item, err := lib.AddItem(ctx, "978-0441013593", "Dune", "Frank Herbert")
	require.NoError(t, err)
	require.True(t, item.Available)

	_, err = lib.AddItem(ctx, "978-0441013593", "Dune", "Frank Herbert")
	require.ErrorIs(t, err, serrors.ErrDuplicateKey)

	item, err = lib.UpdateItem(ctx, "978-0441013593", "Dune (40th anniversary)", "")
	require.NoError(t, err)
	require.Equal(t, "Frank Herbert", item.Author)

	require.Len(t, lib.Items(ctx, "anniversary"), 1)
	require.Empty(t, lib.Items(ctx, "austen"))

	// catalog changes save the catalog only
	require.FileExists(t, filepath.Join(dir, "books.json"))
	require.NoFileExists(t, filepath.Join(dir, "checkouts.json"))
	require.NoFileExists(t, filepath.Join(dir, "users.json"))

	require.NoError(t, lib.DeleteItem(ctx, "978-0441013593"))
	_, err = lib.Item(ctx, "978-0441013593")
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	reopened := openLibrary(t, dir)
	require.Empty(t, reopened.Items(ctx, ""))
}

func TestLibrary_BorrowerAdministration(t *testing.T) {
	dir := t.TempDir()
	lib := openLibrary(t, dir)
	ctx := context.Background()

	_, err := lib.AddUser(ctx, "U1", "Ada")
	require.NoError(t, err)
	_, err = lib.AddUser(ctx, "U1", "Someone else")
	require.ErrorIs(t, err, serrors.ErrDuplicateKey)

	user, err := lib.UpdateUser(ctx, "U1", "Ada Lovelace")
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", user.Name)

	reopened := openLibrary(t, dir)
	user, err = reopened.User(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", user.Name)
	require.Len(t, reopened.Users(ctx, "lovelace"), 1)

	require.NoError(t, reopened.DeleteUser(ctx, "U1"))
	_, err = reopened.User(ctx, "U1")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLibrary_CirculationSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	lib := openLibrary(t, dir)
	ctx := context.Background()

	_, err := lib.AddItem(ctx, "I1", "Dune", "Frank Herbert")
	require.NoError(t, err)
	_, err = lib.AddUser(ctx, "U1", "Ada")
	require.NoError(t, err)

	_, err = lib.Checkout(ctx, "U1", "I1")
	require.NoError(t, err)

	// referenced entities cannot be removed
	require.ErrorIs(t, lib.DeleteItem(ctx, "I1"), serrors.ErrConflict)
	require.ErrorIs(t, lib.DeleteUser(ctx, "U1"), serrors.ErrConflict)

	reopened := openLibrary(t, dir)
	require.NoError(t, reopened.Verify(ctx))
	require.Len(t, reopened.Loans(ctx, ledger.Filter{UserID: "U1", OpenOnly: true}), 1)

	loan, err := reopened.Return(ctx, "U1", "I1")
	require.NoError(t, err)
	require.False(t, loan.IsOpen())

	item, err := reopened.Item(ctx, "I1")
	require.NoError(t, err)
	require.True(t, item.Available)
}

func TestLibrary_OpenToleratesInconsistentData(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "books.json"),
		[]byte(`{"books": [{"title": "Dune", "author": "Frank Herbert", "isbn": "I1", "is_available": false}]}`), 0o600))

	lib := openLibrary(t, dir)
	err := lib.Verify(context.Background())
	require.ErrorIs(t, err, serrors.ErrInconsistent)
	require.ErrorContains(t, err, "isbn I1 is unavailable without an open loan")
}

func TestLibrary_OpenFailsOnUnreadableData(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte(`{"users": [`), 0o600))

	st, err := file.Open(context.Background(), file.Options{Dir: dir})
	require.NoError(t, err)

	_, err = library.Open(context.Background(), st, ledger.Options{})
	require.ErrorContains(t, err, "could not load users")
}

func TestLibrary_OpensFilesWrittenByEarlierVersions(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	files := map[string]string{
		"books.json": `{
  "books": [
    {"title": "Dune", "author": "Frank Herbert", "isbn": "978-0441013593", "is_available": false},
    {"title": "Emma", "author": "Jane Austen", "isbn": "978-0141439587", "is_available": true}
  ]
}`,
		"users.json": `{
  "users": [
    {"name": "Ada", "user_id": "U1", "borrowed_items": ["978-0441013593"]},
    {"name": "Grace", "user_id": "U2", "borrowed_items": []}
  ]
}`,
		"checkouts.json": `{
  "checkouts": [
    {
      "user_id": "U2",
      "item_id": "978-0141439587",
      "checkout_date": "2024-02-01T09:15:00.250000",
      "due_date": "2024-02-15T09:15:00.250000",
      "return_date": "2024-02-10T17:00:00"
    },
    {
      "user_id": "U1",
      "item_id": "978-0441013593",
      "checkout_date": "2024-03-01T10:00:00.123456",
      "due_date": "2024-03-15T10:00:00.123456",
      "return_date": null
    }
  ]
}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	lib := openLibrary(t, dir)
	require.NoError(t, lib.Verify(ctx))
	require.Len(t, lib.Items(ctx, ""), 2)
	require.Len(t, lib.Users(ctx, ""), 2)
	require.Len(t, lib.Loans(ctx, ledger.Filter{}), 2)

	open := lib.Loans(ctx, ledger.Filter{OpenOnly: true})
	require.Len(t, open, 1)
	require.Equal(t, time.Date(2024, 3, 15, 10, 0, 0, 123456000, time.Local), open[0].DueTime)

	_, err := lib.Checkout(ctx, "U2", "978-0441013593")
	require.ErrorIs(t, err, domain.ErrItemUnavailable)

	_, err = lib.Return(ctx, "U1", "978-0441013593")
	require.NoError(t, err)

	reopened := openLibrary(t, dir)
	require.NoError(t, reopened.Verify(ctx))
	item, err := reopened.Item(ctx, "978-0441013593")
	require.NoError(t, err)
	require.True(t, item.Available)
	require.Empty(t, reopened.Loans(ctx, ledger.Filter{OpenOnly: true}))
}

func TestLibrary_FailedCheckoutStaysUndoneAfterRestart(t *testing.T) {
	dir := t.TempDir()
	lib := openLibrary(t, dir)
	ctx := context.Background()

	_, err := lib.AddItem(ctx, "I1", "Dune", "Frank Herbert")
	require.NoError(t, err)
	_, err = lib.AddUser(ctx, "U1", "Ada")
	require.NoError(t, err)

	// the catalog file cannot be replaced while its temp path is a directory
	blocker := filepath.Join(dir, "books.json.tmp")
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "x"), 0o755))

	_, err = lib.Checkout(ctx, "U1", "I1")
	require.ErrorIs(t, err, serrors.ErrInternal)
	item, err := lib.Item(ctx, "I1")
	require.NoError(t, err)
	require.True(t, item.Available)

	require.NoError(t, os.RemoveAll(blocker))
	_, err = lib.AddItem(ctx, "I2", "Emma", "Jane Austen")
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(dir, "journal.json"))

	reopened := openLibrary(t, dir)
	require.NoError(t, reopened.Verify(ctx))

	_, err = reopened.Item(ctx, "I2")
	require.NoError(t, err, "changes made after the failed checkout are kept")
	item, err = reopened.Item(ctx, "I1")
	require.NoError(t, err)
	require.True(t, item.Available, "the failed checkout must not come back")
	user, err := reopened.User(ctx, "U1")
	require.NoError(t, err)
	require.Empty(t, user.HeldItems)
	require.Empty(t, reopened.Loans(ctx, ledger.Filter{}))
}

func TestLibrary_SaveFailureRestoresState(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	ctx := context.Background()

	st.EXPECT().LoadItems(gomock.Any()).Return([]domain.Item{domain.NewItem("I1", "Dune", "Frank Herbert")}, nil)
	st.EXPECT().LoadUsers(gomock.Any()).Return([]domain.User{domain.NewUser("U1", "Ada")}, nil)
	st.EXPECT().LoadLoans(gomock.Any()).Return(nil, nil)

	lib, err := library.Open(ctx, st, ledger.Options{})
	require.NoError(t, err)

	readOnly := errors.New("read-only file system")
	st.EXPECT().SaveItems(gomock.Any(), gomock.Any()).Return(readOnly)
	require.ErrorIs(t, lib.DeleteItem(ctx, "I1"), readOnly)
	_, err = lib.Item(ctx, "I1")
	require.NoError(t, err, "failed delete must be undone")

	st.EXPECT().SaveUsers(gomock.Any(), gomock.Any()).Return(readOnly)
	_, err = lib.UpdateUser(ctx, "U1", "Grace")
	require.ErrorIs(t, err, serrors.ErrInternal)
	user, err := lib.User(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, "Ada", user.Name)
}

func TestLibrary_ConcurrentCheckoutsLendOnce(t *testing.T) {
	lib := openLibrary(t, t.TempDir())
	ctx := context.Background()

	_, err := lib.AddItem(ctx, "I1", "Dune", "Frank Herbert")
	require.NoError(t, err)

	const borrowers = 16
	for i := range borrowers {
		_, err := lib.AddUser(ctx, domain.UserID("U"+strconv.Itoa(i)), "reader")
		require.NoError(t, err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, u := range lib.Users(ctx, "") {
		wg.Add(1)
		go func(id domain.UserID) {
			defer wg.Done()
			if _, err := lib.Checkout(ctx, id, "I1"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(u.ID)
	}
	wg.Wait()

	require.Equal(t, 1, succeeded)
	require.Len(t, lib.Loans(ctx, ledger.Filter{OpenOnly: true}), 1)
	require.NoError(t, lib.Verify(ctx))
}
