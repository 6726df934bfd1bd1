package domain

import "errors"

// Reasons an operation on the catalog, the borrowers or the loan ledger is
// refused. Callers wrap them in a serrors kind so transports can classify them.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrItemUnavailable = errors.New("item is not available")
	ErrNoActiveLoan    = errors.New("no active loan")
	ErrItemLent        = errors.New("item is lent out")
	ErrUserHoldsItems  = errors.New("user still holds items")
	ErrDuplicateItem   = errors.New("item already exists")
	ErrDuplicateUser   = errors.New("user already exists")
)
