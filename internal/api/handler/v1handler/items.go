package v1handler

import (
	"librarian/pkg/domain"
	"net/http"
)

type CreateItemRequest struct {
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// UpdateItemRequest leaves a field unchanged when it is empty.
type UpdateItemRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

type ItemList struct {
	Items []domain.Item `json:"items"`
}

// ListItems returns the catalog, filtered by the optional q parameter.
func (h Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items := h.deps.Library.Items(r.Context(), r.URL.Query().Get("q"))
	writeJSON(r.Context(), w, http.StatusOK, ItemList{Items: items})
}

func (h Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	item, err := h.deps.Library.AddItem(r.Context(), domain.ItemID(req.ISBN), req.Title, req.Author)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusCreated, item)
}

func (h Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.deps.Library.Item(r.Context(), domain.ItemID(r.PathValue("isbn")))
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, item)
}

func (h Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	item, err := h.deps.Library.UpdateItem(r.Context(), domain.ItemID(r.PathValue("isbn")), req.Title, req.Author)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, item)
}

func (h Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Library.DeleteItem(r.Context(), domain.ItemID(r.PathValue("isbn"))); err != nil {
		h.writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
