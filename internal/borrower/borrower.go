// Package borrower keeps the in-memory set of registered users and the items
// each one currently holds. Like the catalog it leaves persistence to callers.
package borrower

import (
	"librarian/pkg/domain"
	"librarian/pkg/serrors"
	"strings"
)

// Borrowers is an ordered collection of users with lookup by id.
// It is not safe for concurrent use.
type Borrowers struct {
	users []domain.User
	index map[domain.UserID]int
}

// New builds the store from loaded records, keeping their order.
func New(users []domain.User) *Borrowers {
	b := &Borrowers{}
	b.Reset(users)

	return b
}

// Reset replaces the whole content of the store.
func (b *Borrowers) Reset(users []domain.User) {
	b.users = make([]domain.User, len(users))
	for i, u := range users {
		b.users[i] = u.Clone()
	}
	b.reindex()
}

func (b *Borrowers) reindex() {
	b.index = make(map[domain.UserID]int, len(b.users))
	for i, u := range b.users {
		if _, ok := b.index[u.ID]; !ok {
			b.index[u.ID] = i
		}
	}
}

// Find returns a copy of the user with the given id.
func (b *Borrowers) Find(id domain.UserID) (domain.User, bool) {
	i, ok := b.index[id]
	if !ok {
		return domain.User{}, false
	}

	return b.users[i].Clone(), true
}

// AddHeld records that the user holds the item. Holding it twice is a no-op.
func (b *Borrowers) AddHeld(id domain.UserID, itemID domain.ItemID) error {
	i, ok := b.index[id]
	if !ok {
		return notFound(id)
	}
	b.users[i].Hold(itemID)

	return nil
}

// RemoveHeld drops the item from the user's held set, if present.
func (b *Borrowers) RemoveHeld(id domain.UserID, itemID domain.ItemID) error {
	i, ok := b.index[id]
	if !ok {
		return notFound(id)
	}
	b.users[i].Release(itemID)

	return nil
}

// Add registers a new user. It is rejected when the id is empty or taken.
func (b *Borrowers) Add(user domain.User) error {
	if user.ID == "" {
		return serrors.With(serrors.ErrBadRequest, "user id must not be empty")
	}
	if _, ok := b.index[user.ID]; ok {
		return serrors.Wrap(serrors.ErrDuplicateKey, domain.ErrDuplicateUser, "user %s", user.ID)
	}

	b.index[user.ID] = len(b.users)
	b.users = append(b.users, user.Clone())

	return nil
}

// Update renames a user; an empty name is ignored.
func (b *Borrowers) Update(id domain.UserID, name string) (domain.User, error) {
	i, ok := b.index[id]
	if !ok {
		return domain.User{}, notFound(id)
	}
	if name != "" {
		b.users[i].Name = name
	}

	return b.users[i].Clone(), nil
}

// Delete removes a user holding nothing.
func (b *Borrowers) Delete(id domain.UserID) error {
	i, ok := b.index[id]
	if !ok {
		return notFound(id)
	}
	if n := len(b.users[i].HeldItems); n > 0 {
		return serrors.Wrap(serrors.ErrConflict, domain.ErrUserHoldsItems, "user %s holds %d item(s)", id, n)
	}

	b.users = append(b.users[:i], b.users[i+1:]...)
	b.reindex()

	return nil
}

// Users returns a copy of every user in insertion order.
func (b *Borrowers) Users() []domain.User {
	out := make([]domain.User, len(b.users))
	for i, u := range b.users {
		out[i] = u.Clone()
	}

	return out
}

// Len returns the number of records.
func (b *Borrowers) Len() int {
	return len(b.users)
}

// Search returns the users whose name or id contains query, ignoring case.
func (b *Borrowers) Search(query string) []domain.User {
	query = strings.ToLower(query)
	if query == "" {
		return b.Users()
	}

	out := []domain.User{}
	for _, u := range b.users {
		if strings.Contains(strings.ToLower(u.Name), query) ||
			strings.Contains(strings.ToLower(string(u.ID)), query) {
			out = append(out, u.Clone())
		}
	}

	return out
}

func notFound(id domain.UserID) error {
	return serrors.Wrap(serrors.ErrNotFound, domain.ErrUserNotFound, "user %s", id)
}
