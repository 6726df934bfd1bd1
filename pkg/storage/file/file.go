// Package file implements storage.Storage on top of flat JSON files, one file
// per collection (books.json, users.json, checkouts.json) in a directory.
//
// Saves made through a transaction are staged in memory. Commit first records
// the current contents of every collection it is about to replace in a journal
// file, then replaces each collection file, then removes the journal. When a
// commit fails part way, the journal is used to put the previous contents back,
// either right away or, if that fails too or the process dies, before the next
// write or on the next Open. A commit that returned an error is therefore never
// visible on disk.
//
// A File is not safe for concurrent use; callers serialize access.
package file

import (
	"context"
	"librarian/pkg/domain"
	"librarian/pkg/logger"
	"librarian/pkg/storage"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

const (
	journalName = "journal.json"
	fileExt     = ".json"
	tmpExt      = ".tmp"
	filePerm    = 0o644
	dirPerm     = 0o755
)

// Options defines where the collection files live.
type Options struct {
	// Dir is the directory holding the collection files. It is created if missing.
	Dir string
}

// txState holds the collections staged by an open transaction.
type txState struct {
	staged map[storage.Collection][]byte
	done   bool
}

// File implements storage.Storage and storage.TxStorage over JSON files.
type File struct {
	dir string
	// tx is nil outside a transaction.
	tx *txState
}

var (
	_ storage.Storage   = (*File)(nil)
	_ storage.TxStorage = (*File)(nil)
)

// Open prepares the directory and rolls back any commit left unfinished by a
// failure or a crash.
func Open(ctx context.Context, options Options) (*File, error) {
	if options.Dir == "" {
		options.Dir = "."
	}
	if err := os.MkdirAll(options.Dir, dirPerm); err != nil {
		return nil, errors.Wrapf(err, "create storage dir %q", options.Dir)
	}

	f := &File{dir: options.Dir}
	if err := f.rollbackPending(ctx); err != nil {
		return nil, err
	}

	return f, nil
}

// Dir returns the directory holding the collection files.
func (f *File) Dir() string {
	return f.dir
}

// Close is a no-op; files are closed after every write.
func (f *File) Close() error {
	return nil
}

// Begin starts a transaction. Saves made through the returned handle are
// staged until Commit.
func (f *File) Begin(_ context.Context) (storage.TxStorage, error) {
	if f.tx != nil {
		return nil, storage.ErrAlreadyInTx
	}

	return &File{
		dir: f.dir,
		tx:  &txState{staged: map[storage.Collection][]byte{}},
	}, nil
}

// WithTx runs cb inside a transaction and commits when it returns nil.
func (f *File) WithTx(ctx context.Context, cb func(storage storage.AllStorage) error) error {
	tx, err := f.Begin(ctx)
	if err != nil {
		return err
	}

	if err := cb(tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}

	return nil
}

// Commit journals the previous contents of the staged collections, then
// writes the staged ones. On error every collection is left, or will be put
// back, as it was before the commit.
func (f *File) Commit() error {
	if f.tx == nil {
		return storage.ErrNotInTx
	}
	if f.tx.done {
		return storage.ErrTxDone
	}
	f.tx.done = true

	if len(f.tx.staged) == 0 {
		return nil
	}
	if err := f.rollbackPending(context.Background()); err != nil {
		return err
	}

	before := map[storage.Collection][]byte{}
	for c := range f.tx.staged {
		doc, err := f.readFile(c)
		if err != nil {
			return err
		}
		before[c] = doc
	}
	if err := f.writeJournal(before); err != nil {
		return err
	}

	var applied []storage.Collection
	for _, c := range storage.Collections() {
		doc, ok := f.tx.staged[c]
		if !ok {
			continue
		}
		if err := f.writeFile(f.collectionPath(c), doc); err != nil {
			return f.abort(errors.Wrapf(err, "apply %s", c), before, applied)
		}
		applied = append(applied, c)
	}

	return f.removeJournal()
}

// abort restores the collections written so far and drops the journal. If
// that fails the journal stays behind for rollbackPending.
func (f *File) abort(cause error, before map[storage.Collection][]byte, applied []storage.Collection) error {
	for _, c := range applied {
		if err := f.restore(c, before[c]); err != nil {
			return errors.Wrapf(cause, "restore failed, rollback pending (%s)", err)
		}
	}
	if err := f.removeJournal(); err != nil {
		return errors.Wrapf(cause, "rollback pending (%s)", err)
	}

	return cause
}

// Rollback discards the staged collections.
func (f *File) Rollback() error {
	if f.tx == nil {
		return storage.ErrNotInTx
	}
	if f.tx.done {
		return storage.ErrTxDone
	}
	f.tx.done = true
	f.tx.staged = nil

	return nil
}

func (f *File) LoadItems(_ context.Context) ([]domain.Item, error) {
	data, err := f.read(storage.ItemsCollection)
	if err != nil {
		return nil, err
	}

	return decodeDocument(storage.ItemsCollection, data, decodeItem)
}

func (f *File) SaveItems(ctx context.Context, items []domain.Item) error {
	return f.save(ctx, storage.ItemsCollection, encodeDocument(storage.ItemsCollection, items, encodeItem))
}

func (f *File) LoadUsers(_ context.Context) ([]domain.User, error) {
	data, err := f.read(storage.UsersCollection)
	if err != nil {
		return nil, err
	}

	return decodeDocument(storage.UsersCollection, data, decodeUser)
}

func (f *File) SaveUsers(ctx context.Context, users []domain.User) error {
	return f.save(ctx, storage.UsersCollection, encodeDocument(storage.UsersCollection, users, encodeUser))
}

func (f *File) LoadLoans(_ context.Context) ([]domain.Loan, error) {
	data, err := f.read(storage.LoansCollection)
	if err != nil {
		return nil, err
	}

	return decodeDocument(storage.LoansCollection, data, decodeLoan)
}

func (f *File) SaveLoans(ctx context.Context, loans []domain.Loan) error {
	return f.save(ctx, storage.LoansCollection, encodeDocument(storage.LoansCollection, loans, encodeLoan))
}

// read returns the staged document when inside a transaction, otherwise the
// file contents.
func (f *File) read(c storage.Collection) ([]byte, error) {
	if f.tx != nil {
		if f.tx.done {
			return nil, storage.ErrTxDone
		}
		if doc, ok := f.tx.staged[c]; ok {
			return doc, nil
		}
	}

	return f.readFile(c)
}

// readFile returns the collection file contents. A missing or empty file
// reads as nil.
func (f *File) readFile(c storage.Collection) ([]byte, error) {
	data, err := os.ReadFile(f.collectionPath(c))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", c)
	}
	if len(data) == 0 {
		return nil, nil
	}

	return data, nil
}

func (f *File) save(ctx context.Context, c storage.Collection, doc []byte) error {
	if f.tx == nil {
		if err := f.rollbackPending(ctx); err != nil {
			return err
		}
		if err := f.writeFile(f.collectionPath(c), doc); err != nil {
			return errors.Wrapf(err, "write %s", c)
		}

		return nil
	}
	if f.tx.done {
		return storage.ErrTxDone
	}
	f.tx.staged[c] = doc

	return nil
}

func (f *File) collectionPath(c storage.Collection) string {
	return filepath.Join(f.dir, string(c)+fileExt)
}

func (f *File) journalPath() string {
	return filepath.Join(f.dir, journalName)
}

// writeJournal stores the previous documents as {"<collection>": <document>, ...}.
// A null document stands for a collection file that did not exist.
func (f *File) writeJournal(before map[storage.Collection][]byte) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		for _, c := range storage.Collections() {
			doc, ok := before[c]
			if !ok {
				continue
			}
			e.Field(string(c), func(e *jx.Encoder) {
				if doc == nil {
					e.Null()

					return
				}
				e.Raw(doc)
			})
		}
	})

	if err := f.writeFile(f.journalPath(), e.Bytes()); err != nil {
		return errors.Wrap(err, "write journal")
	}

	return nil
}

// rollbackPending puts back the collections recorded in a leftover journal,
// undoing a commit that failed or was interrupted.
func (f *File) rollbackPending(ctx context.Context) error {
	data, err := os.ReadFile(f.journalPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read journal")
	}

	before := map[storage.Collection][]byte{}
	if err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			before[storage.Collection(key)] = nil

			return d.Null()
		}
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		before[storage.Collection(key)] = append([]byte(nil), raw...)

		return nil
	}); err != nil {
		// a torn journal means no collection file was touched yet
		logger.Warn(ctx, "discarding unreadable journal", zap.String("dir", f.dir), zap.Error(err))

		return f.removeJournal()
	}

	var restored []string
	for _, c := range storage.Collections() {
		doc, ok := before[c]
		if !ok {
			continue
		}
		if err := f.restore(c, doc); err != nil {
			return errors.Wrap(err, "roll back pending commit")
		}
		restored = append(restored, string(c))
	}
	if err := f.removeJournal(); err != nil {
		return err
	}
	logger.Warn(ctx, "rolled back unfinished commit from journal",
		zap.String("dir", f.dir), zap.Strings("collections", restored))

	return nil
}

// restore writes doc back as the collection file, or removes the file when
// doc is nil.
func (f *File) restore(c storage.Collection, doc []byte) error {
	if doc != nil {
		return f.writeFile(f.collectionPath(c), doc)
	}

	err := os.Remove(f.collectionPath(c))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "remove %s", c)
	}

	return nil
}

func (f *File) removeJournal() error {
	err := os.Remove(f.journalPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove journal")
	}

	return nil
}

// writeFile replaces path atomically: write a sibling temp file, sync, rename.
func (f *File) writeFile(path string, data []byte) error {
	tmp := path + tmpExt
	fd, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return errors.Wrap(err, "open temp file")
	}

	if _, err := fd.Write(data); err != nil {
		_ = fd.Close()

		return errors.Wrap(err, "write temp file")
	}
	if err := fd.Sync(); err != nil {
		_ = fd.Close()

		return errors.Wrap(err, "sync temp file")
	}
	if err := fd.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "rename temp file")
	}

	return nil
}
