// Package v1handler implements the /v1 JSON API on top of library.Library.
package v1handler

import (
	"context"
	"errors"
	"librarian/internal/library"
	"librarian/pkg/logger"
	"librarian/pkg/serrors"
	"net/http"
	"slices"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies; every v1 payload is a handful of strings.
const maxBodyBytes = 1 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint: gochecknoglobals

// Deps are the services the handlers delegate to.
type Deps struct {
	Library library.Library
}

type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// Route is one v1 endpoint as mounted on the mux.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Pattern is the ServeMux pattern of the route, e.g. "GET /v1/items/{isbn}".
func (r Route) Pattern() string {
	return r.Method + " " + r.Path
}

// Routes lists every v1 endpoint in the order Register mounts them.
func (h Handler) Routes() []Route {
	return []Route{
		{http.MethodGet, "/v1/items", h.ListItems},
		{http.MethodPost, "/v1/items", h.CreateItem},
		{http.MethodGet, "/v1/items/{isbn}", h.GetItem},
		{http.MethodPatch, "/v1/items/{isbn}", h.UpdateItem},
		{http.MethodDelete, "/v1/items/{isbn}", h.DeleteItem},

		{http.MethodGet, "/v1/users", h.ListUsers},
		{http.MethodPost, "/v1/users", h.CreateUser},
		{http.MethodGet, "/v1/users/{id}", h.GetUser},
		{http.MethodPatch, "/v1/users/{id}", h.UpdateUser},
		{http.MethodDelete, "/v1/users/{id}", h.DeleteUser},

		{http.MethodPost, "/v1/checkouts", h.Checkout},
		{http.MethodPost, "/v1/returns", h.Return},
		{http.MethodGet, "/v1/loans", h.ListLoans},
		{http.MethodGet, "/v1/verify", h.Verify},
	}
}

// Methods returns the distinct HTTP methods used by the v1 routes.
func (h Handler) Methods() []string {
	var methods []string
	for _, route := range h.Routes() {
		if !slices.Contains(methods, route.Method) {
			methods = append(methods, route.Method)
		}
	}

	return methods
}

// Register mounts every v1 route on mux.
func (h Handler) Register(mux *http.ServeMux) {
	for _, route := range h.Routes() {
		mux.HandleFunc(route.Pattern(), route.Handler)
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorStatusCode pairs an ErrorResponse with its HTTP status.
type ErrorStatusCode struct {
	StatusCode int
	Response   ErrorResponse
}

// kindStatus maps semantic error kinds to HTTP statuses and the message used
// when the error carries nothing more specific than its kind.
var kindStatus = map[serrors.Kind]struct { //nolint: gochecknoglobals
	status  int
	message string
}{
	serrors.ErrNotFound:     {http.StatusNotFound, "resource not found"},
	serrors.ErrBadRequest:   {http.StatusBadRequest, "bad request"},
	serrors.ErrConflict:     {http.StatusConflict, "conflict with current state"},
	serrors.ErrDuplicateKey: {http.StatusConflict, "resource already exists"},
	serrors.ErrInconsistent: {http.StatusConflict, "library data is inconsistent"},
	serrors.ErrUnavailable:  {http.StatusServiceUnavailable, "service unavailable"},
}

// NewError converts err into the response sent to the client. Errors without
// a known kind are reported as internal and their details only reach the log.
func (h Handler) NewError(ctx context.Context, err error) *ErrorStatusCode {
	kind := serrors.KindOf(err)
	mapped, ok := kindStatus[kind]
	if !ok {
		logger.Error(ctx, "request failed", zap.Error(err))

		return &ErrorStatusCode{
			StatusCode: http.StatusInternalServerError,
			Response: ErrorResponse{
				Code:    serrors.ErrInternal.Error(),
				Message: "internal error",
			},
		}
	}

	logger.Debug(ctx, "request rejected", zap.String("kind", kind.Error()), zap.Error(err))

	message := err.Error()
	if message == kind.Error() {
		message = mapped.message
	}

	return &ErrorStatusCode{
		StatusCode: mapped.status,
		Response:   ErrorResponse{Code: kind.Error(), Message: message},
	}
}

func (h Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	res := h.NewError(r.Context(), err)
	writeJSON(r.Context(), w, res.StatusCode, res.Response)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn(ctx, "could not write response", zap.Error(err))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return serrors.With(serrors.ErrBadRequest, "request body is larger than %d bytes", tooLarge.Limit)
		}

		return serrors.Wrap(serrors.ErrBadRequest, err, "invalid request body")
	}

	return nil
}
