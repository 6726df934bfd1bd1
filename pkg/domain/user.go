package domain

import (
	"fmt"
	"slices"
)

// UserID uniquely identifies a borrower.
type UserID string

// User is a borrower together with the items they currently hold.
type User struct {
	// ID is immutable once the user is registered.
	ID UserID `json:"user_id"`
	// Name of the borrower.
	Name string `json:"name"`
	// HeldItems lists items on open loan to this user, without duplicates.
	HeldItems []ItemID `json:"borrowed_items"`
}

// NewUser returns a user holding nothing.
func NewUser(id UserID, name string) User {
	return User{ID: id, Name: name, HeldItems: []ItemID{}}
}

// Holds reports whether the user currently holds the item.
func (u *User) Holds(id ItemID) bool {
	return slices.Contains(u.HeldItems, id)
}

// Hold adds the item to the held set. It reports false if it was already held.
func (u *User) Hold(id ItemID) bool {
	if u.Holds(id) {
		return false
	}
	u.HeldItems = append(u.HeldItems, id)

	return true
}

// Release removes the item from the held set. It reports false if it was not held.
func (u *User) Release(id ItemID) bool {
	i := slices.Index(u.HeldItems, id)
	if i < 0 {
		return false
	}
	u.HeldItems = slices.Delete(u.HeldItems, i, i+1)

	return true
}

// Clone returns a copy that does not share the held-items backing array.
func (u User) Clone() User {
	u.HeldItems = slices.Clone(u.HeldItems)
	if u.HeldItems == nil {
		u.HeldItems = []ItemID{}
	}

	return u
}

func (u User) String() string {
	return fmt.Sprintf("User(name=%q, user_id=%q, borrowed_items=%v)", u.Name, u.ID, u.HeldItems)
}
