package ledger

import (
	"fmt"
	"librarian/pkg/domain"
	"librarian/pkg/serrors"
	"slices"
	"strings"
)

// Check walks the catalog, the borrowers and the loan history and describes
// every place where they disagree. An empty result means the data satisfies
// all circulation invariants.
func (l *Ledger) Check() []string {
	var violations []string
	report := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	items := map[domain.ItemID]bool{}
	for _, item := range l.catalog.Items() {
		if items[item.ID] {
			report("isbn %s is listed more than once", item.ID)
		}
		items[item.ID] = true
	}

	users := map[domain.UserID]bool{}
	for _, user := range l.borrowers.Users() {
		if users[user.ID] {
			report("user %s is registered more than once", user.ID)
		}
		users[user.ID] = true
	}

	openByItem := map[domain.ItemID][]domain.UserID{}
	openByUser := map[domain.UserID][]domain.ItemID{}
	// closed loans may outlive a deleted item or user; only open ones must resolve
	for i, loan := range l.loans {
		if !loan.IsOpen() {
			continue
		}
		if !items[loan.ItemID] {
			report("loan #%d references unknown isbn %s", i, loan.ItemID)
		}
		if !users[loan.UserID] {
			report("loan #%d references unknown user %s", i, loan.UserID)
		}
		openByItem[loan.ItemID] = append(openByItem[loan.ItemID], loan.UserID)
		openByUser[loan.UserID] = append(openByUser[loan.UserID], loan.ItemID)
	}

	checkedItems := map[domain.ItemID]bool{}
	for _, item := range l.catalog.Items() {
		if checkedItems[item.ID] {
			continue
		}
		checkedItems[item.ID] = true

		open := openByItem[item.ID]
		switch {
		case len(open) > 1:
			report("isbn %s has %d open loans", item.ID, len(open))
		case item.Available && len(open) == 1:
			report("isbn %s is available but lent to user %s", item.ID, open[0])
		case !item.Available && len(open) == 0:
			report("isbn %s is unavailable without an open loan", item.ID)
		}
	}

	checkedUsers := map[domain.UserID]bool{}
	for _, user := range l.borrowers.Users() {
		if checkedUsers[user.ID] {
			continue
		}
		checkedUsers[user.ID] = true

		lent := openByUser[user.ID]
		for _, id := range user.HeldItems {
			if !slices.Contains(lent, id) {
				report("user %s holds isbn %s without an open loan", user.ID, id)
			}
		}
		for _, id := range lent {
			if !user.Holds(id) {
				report("user %s has an open loan for isbn %s but does not hold it", user.ID, id)
			}
		}
	}

	return violations
}

// Verify returns an Inconsistent error listing every violation found by Check.
func (l *Ledger) Verify() error {
	violations := l.Check()
	if len(violations) == 0 {
		return nil
	}

	return serrors.With(serrors.ErrInconsistent, "%d violation(s): %s",
		len(violations), strings.Join(violations, "; "))
}
