package postgres

import (
	"database/sql"
	"fmt"
	"librarian/pkg/domain"

	jsoniter "github.com/json-iterator/go"
)

const (
	itemsTable = "books"
	usersTable = "users"
	loansTable = "checkouts"
)

// PgItem is a row of the books table.
type PgItem struct {
	Position    int    `db:"position"`
	ISBN        string `db:"isbn"`
	Title       string `db:"title"`
	Author      string `db:"author"`
	IsAvailable bool   `db:"is_available"`
}

func (p *PgItem) ToDomain() domain.Item {
	return domain.Item{
		ID:        domain.ItemID(p.ISBN),
		Title:     p.Title,
		Author:    p.Author,
		Available: p.IsAvailable,
	}
}

func (p *PgItem) FromDomain(position int, item domain.Item) {
	*p = PgItem{
		Position:    position,
		ISBN:        string(item.ID),
		Title:       item.Title,
		Author:      item.Author,
		IsAvailable: item.Available,
	}
}

// PgUser is a row of the users table. BorrowedItems is a JSON array of item ids.
type PgUser struct {
	Position      int    `db:"position"`
	UserID        string `db:"user_id"`
	Name          string `db:"name"`
	BorrowedItems string `db:"borrowed_items"`
}

func (p *PgUser) ToDomain() (domain.User, error) {
	user := domain.NewUser(domain.UserID(p.UserID), p.Name)

	var held []string
	if p.BorrowedItems != "" {
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(p.BorrowedItems, &held); err != nil {
			return domain.User{}, fmt.Errorf("could not unmarshal borrowed items of %s: %w", p.UserID, err)
		}
	}
	for _, id := range held {
		user.Hold(domain.ItemID(id))
	}

	return user, nil
}

func (p *PgUser) FromDomain(position int, user domain.User) error {
	held := make([]string, 0, len(user.HeldItems))
	for _, id := range user.HeldItems {
		held = append(held, string(id))
	}
	borrowed, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(held)
	if err != nil {
		return fmt.Errorf("could not marshal borrowed items of %s: %w", user.ID, err)
	}

	*p = PgUser{
		Position:      position,
		UserID:        string(user.ID),
		Name:          user.Name,
		BorrowedItems: borrowed,
	}

	return nil
}

// PgLoan is a row of the checkouts table. Position keeps ledger order.
type PgLoan struct {
	Position     int          `db:"position"`
	UserID       string       `db:"user_id"`
	ItemID       string       `db:"item_id"`
	CheckoutDate sql.NullTime `db:"checkout_date"`
	DueDate      sql.NullTime `db:"due_date"`
	ReturnDate   sql.NullTime `db:"return_date"`
}

func (p *PgLoan) ToDomain() domain.Loan {
	return domain.Loan{
		UserID:       domain.UserID(p.UserID),
		ItemID:       domain.ItemID(p.ItemID),
		CheckoutTime: p.CheckoutDate.Time,
		DueTime:      p.DueDate.Time,
		ReturnTime:   p.ReturnDate.Time,
	}
}

func (p *PgLoan) FromDomain(position int, loan domain.Loan) {
	*p = PgLoan{
		Position:     position,
		UserID:       string(loan.UserID),
		ItemID:       string(loan.ItemID),
		CheckoutDate: sql.NullTime{Time: loan.CheckoutTime, Valid: true},
		DueDate:      sql.NullTime{Time: loan.DueTime, Valid: true},
		ReturnDate: sql.NullTime{
			Time:  loan.ReturnTime,
			Valid: !loan.IsOpen(),
		},
	}
}
