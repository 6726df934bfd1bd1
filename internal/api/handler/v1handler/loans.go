package v1handler

import (
	"librarian/internal/ledger"
	"librarian/pkg/domain"
	"librarian/pkg/serrors"
	"net/http"
	"strconv"
	"time"
)

type CirculationRequest struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
}

// Loan is the wire form of domain.Loan. ReturnDate is null while the loan is open.
type Loan struct {
	UserID       string     `json:"user_id"`
	ItemID       string     `json:"item_id"`
	CheckoutDate time.Time  `json:"checkout_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date"`
	Status       string     `json:"status"`
	Overdue      bool       `json:"overdue"`
}

type LoanList struct {
	Loans []Loan `json:"loans"`
}

type VerifyResult struct {
	Consistent bool `json:"consistent"`
}

// DomainLoanToV1 converts a loan for the response, evaluating overdue at now.
func DomainLoanToV1(in domain.Loan, now time.Time) Loan {
	out := Loan{
		UserID:       string(in.UserID),
		ItemID:       string(in.ItemID),
		CheckoutDate: in.CheckoutTime,
		DueDate:      in.DueTime,
		Status:       string(in.Status()),
		Overdue:      in.Overdue(now),
	}
	if !in.IsOpen() {
		returned := in.ReturnTime
		out.ReturnDate = &returned
	}

	return out
}

func (h Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CirculationRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	loan, err := h.deps.Library.Checkout(r.Context(), domain.UserID(req.UserID), domain.ItemID(req.ItemID))
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusCreated, DomainLoanToV1(loan, time.Now()))
}

func (h Handler) Return(w http.ResponseWriter, r *http.Request) {
	var req CirculationRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	loan, err := h.deps.Library.Return(r.Context(), domain.UserID(req.UserID), domain.ItemID(req.ItemID))
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, DomainLoanToV1(loan, time.Now()))
}

// ListLoans supports the user_id, item_id and open query parameters.
func (h Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ledger.Filter{
		UserID: domain.UserID(query.Get("user_id")),
		ItemID: domain.ItemID(query.Get("item_id")),
	}
	if open := query.Get("open"); open != "" {
		v, err := strconv.ParseBool(open)
		if err != nil {
			h.writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "invalid open parameter %q", open))

			return
		}
		filter.OpenOnly = v
	}

	now := time.Now()
	loans := h.deps.Library.Loans(r.Context(), filter)
	out := make([]Loan, 0, len(loans))
	for _, loan := range loans {
		out = append(out, DomainLoanToV1(loan, now))
	}

	writeJSON(r.Context(), w, http.StatusOK, LoanList{Loans: out})
}

func (h Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Library.Verify(r.Context()); err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, VerifyResult{Consistent: true})
}
