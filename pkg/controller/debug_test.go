package controller_test

import (
	"librarian/pkg/controller"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebugHandler_LocalClients(t *testing.T) {
	handler := controller.DebugHandler(false)

	for _, addr := range []string{"127.0.0.1:40000", "[::1]:40000"} {
		req := httptest.NewRequest(http.MethodGet, controller.PprofPrefix, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, addr)
		require.NotEmpty(t, rec.Header().Get("Content-Type"))
	}

	req := httptest.NewRequest(http.MethodGet, controller.PprofPrefix+"cmdline", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDebugHandler_RemoteClients(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, controller.PprofPrefix+"cmdline", nil)
	req.RemoteAddr = "192.0.2.10:40000"
	// forwarding headers do not make a remote client local
	req.Header.Set("X-Forwarded-For", "127.0.0.1")

	rec := httptest.NewRecorder()
	controller.DebugHandler(false).ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	controller.DebugHandler(true).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
