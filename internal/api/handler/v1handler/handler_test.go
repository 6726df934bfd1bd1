package v1handler_test

import (
	"context"
	"errors"
	"librarian/internal/api/handler/v1handler"
	"librarian/pkg/domain"
	"testing"

	"librarian/pkg/logger"
	"librarian/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

func TestNewError_InternalOnPlainError(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	res := h.NewError(ctx, errors.New("boom"))
	require.NotNil(t, res)
	require.Equal(t, 500, res.StatusCode)
	require.Equal(t, serrors.ErrInternal.Error(), res.Response.Code)
	require.Equal(t, "internal error", res.Response.Message)
}

func TestNewError_KindSentinelDirect_NotFound(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	res := h.NewError(ctx, serrors.ErrNotFound)
	require.Equal(t, 404, res.StatusCode)
	require.Equal(t, serrors.ErrNotFound.Error(), res.Response.Code)
	require.Equal(t, "resource not found", res.Response.Message)
}

func TestNewError_SemanticWithMessage_BadRequest(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	err := serrors.With(serrors.ErrBadRequest, "invalid payload: missing isbn")
	res := h.NewError(ctx, err)
	require.Equal(t, 400, res.StatusCode)
	require.Equal(t, serrors.ErrBadRequest.Error(), res.Response.Code)
	require.Equal(t, "invalid payload: missing isbn", res.Response.Message)
}

func TestNewError_DomainReasons(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	cases := []struct {
		err    error
		status int
		code   serrors.Kind
	}{
		{serrors.Wrap(serrors.ErrNotFound, domain.ErrUserNotFound, "user U1"), 404, serrors.ErrNotFound},
		{serrors.Wrap(serrors.ErrConflict, domain.ErrItemUnavailable, "isbn I1"), 409, serrors.ErrConflict},
		{serrors.Wrap(serrors.ErrDuplicateKey, domain.ErrDuplicateItem, "isbn I1"), 409, serrors.ErrDuplicateKey},
		{serrors.With(serrors.ErrInconsistent, "1 violation(s)"), 409, serrors.ErrInconsistent},
	}
	for _, tc := range cases {
		res := h.NewError(ctx, tc.err)
		require.Equal(t, tc.status, res.StatusCode)
		require.Equal(t, tc.code.Error(), res.Response.Code)
		require.Equal(t, tc.err.Error(), res.Response.Message)
	}
}

func TestNewError_InternalKind_HidesCause(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	res := h.NewError(ctx, serrors.Wrap(serrors.ErrInternal, errors.New("open /data/books.json: permission denied"),
		"could not save items"))
	require.Equal(t, 500, res.StatusCode)
	require.Equal(t, serrors.ErrInternal.Error(), res.Response.Code)
	require.Equal(t, "internal error", res.Response.Message)
}
