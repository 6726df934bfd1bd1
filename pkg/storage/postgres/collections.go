package postgres

import (
	"context"
	"fmt"
	"librarian/pkg/domain"

	"github.com/doug-martin/goqu/v9"
)

func (p *PgSQL) LoadItems(ctx context.Context) ([]domain.Item, error) {
	var rows []PgItem
	if err := p.Builder.From(itemsTable).
		Order(goqu.I("position").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not load items from pg: %w", err)
	}

	items := make([]domain.Item, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToDomain())
	}

	return items, nil
}

// SaveItems replaces the books table with items, keeping their order.
func (p *PgSQL) SaveItems(ctx context.Context, items []domain.Item) error {
	rows := make([]PgItem, len(items))
	for i := range items {
		rows[i].FromDomain(i, items[i])
	}

	return p.replace(ctx, itemsTable, rows, len(rows))
}

func (p *PgSQL) LoadUsers(ctx context.Context) ([]domain.User, error) {
	var rows []PgUser
	if err := p.Builder.From(usersTable).
		Order(goqu.I("position").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not load users from pg: %w", err)
	}

	users := make([]domain.User, 0, len(rows))
	for i := range rows {
		u, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, nil
}

// SaveUsers replaces the users table with users, keeping their order.
func (p *PgSQL) SaveUsers(ctx context.Context, users []domain.User) error {
	rows := make([]PgUser, len(users))
	for i := range users {
		if err := rows[i].FromDomain(i, users[i]); err != nil {
			return err
		}
	}

	return p.replace(ctx, usersTable, rows, len(rows))
}

func (p *PgSQL) LoadLoans(ctx context.Context) ([]domain.Loan, error) {
	var rows []PgLoan
	if err := p.Builder.From(loansTable).
		Order(goqu.I("position").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not load loans from pg: %w", err)
	}

	loans := make([]domain.Loan, 0, len(rows))
	for i := range rows {
		loans = append(loans, rows[i].ToDomain())
	}

	return loans, nil
}

// SaveLoans replaces the checkouts table with the ledger. Position preserves
// ledger order so the first open loan found on return is stable.
func (p *PgSQL) SaveLoans(ctx context.Context, loans []domain.Loan) error {
	rows := make([]PgLoan, len(loans))
	for i := range loans {
		rows[i].FromDomain(i, loans[i])
	}

	return p.replace(ctx, loansTable, rows, len(rows))
}
