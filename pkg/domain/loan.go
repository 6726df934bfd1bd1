package domain

import (
	"fmt"
	"time"
)

// DefaultLoanPeriod is how long a checkout lasts before it is due.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// LoanStatus describes where a loan is in its lifecycle.
type LoanStatus string

const (
	// LoanStatusOpen means the item has not been returned yet.
	LoanStatusOpen LoanStatus = "Checked Out"
	// LoanStatusClosed means the item was returned; the loan is kept as history.
	LoanStatusClosed LoanStatus = "Returned"
)

// Loan records one checkout of an item by a user.
type Loan struct {
	UserID UserID `json:"user_id"`
	ItemID ItemID `json:"item_id"`

	CheckoutTime time.Time `json:"checkout_date"`
	DueTime      time.Time `json:"due_date"`
	// ReturnTime is the zero time while the loan is open.
	ReturnTime time.Time `json:"return_date"`
}

// NewLoan opens a loan at the given time, due after period.
func NewLoan(userID UserID, itemID ItemID, at time.Time, period time.Duration) Loan {
	return Loan{
		UserID:       userID,
		ItemID:       itemID,
		CheckoutTime: at,
		DueTime:      at.Add(period),
	}
}

// IsOpen reports whether the loan has not been returned.
func (l Loan) IsOpen() bool {
	return l.ReturnTime.IsZero()
}

// Status returns the lifecycle status of the loan.
func (l Loan) Status() LoanStatus {
	if l.IsOpen() {
		return LoanStatusOpen
	}

	return LoanStatusClosed
}

// Overdue reports whether an open loan is past its due time at now.
func (l Loan) Overdue(now time.Time) bool {
	return l.IsOpen() && now.After(l.DueTime)
}

// Matches reports whether the loan is for the given user and item.
func (l Loan) Matches(userID UserID, itemID ItemID) bool {
	return l.UserID == userID && l.ItemID == itemID
}

func (l Loan) String() string {
	return fmt.Sprintf("Loan(user_id=%q, item_id=%q, status=%q)", l.UserID, l.ItemID, l.Status())
}
