package v1handler

import (
	"librarian/pkg/domain"
	"net/http"
)

type CreateUserRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type UpdateUserRequest struct {
	Name string `json:"name"`
}

type UserList struct {
	Users []domain.User `json:"users"`
}

func (h Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users := h.deps.Library.Users(r.Context(), r.URL.Query().Get("q"))
	writeJSON(r.Context(), w, http.StatusOK, UserList{Users: users})
}

func (h Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	user, err := h.deps.Library.AddUser(r.Context(), domain.UserID(req.UserID), req.Name)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusCreated, user)
}

func (h Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.deps.Library.User(r.Context(), domain.UserID(r.PathValue("id")))
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, user)
}

func (h Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	user, err := h.deps.Library.UpdateUser(r.Context(), domain.UserID(r.PathValue("id")), req.Name)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, user)
}

func (h Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Library.DeleteUser(r.Context(), domain.UserID(r.PathValue("id"))); err != nil {
		h.writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
