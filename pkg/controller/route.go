package controller

import (
	"net/http"
	"net/netip"
	"strings"
)

// UnmatchedRoute labels requests no registered pattern serves.
const UnmatchedRoute = "unmatched"

// RouteResolver reports the pattern that serves a request. *http.ServeMux
// implements it.
type RouteResolver interface {
	Handler(r *http.Request) (h http.Handler, pattern string)
}

// RouteOf returns the registered pattern serving r, e.g. "POST /v1/checkouts",
// or UnmatchedRoute. Patterns keep metric labels and log fields bounded
// regardless of the ids in the path.
func RouteOf(routes RouteResolver, r *http.Request) string {
	if routes == nil {
		return UnmatchedRoute
	}
	if _, pattern := routes.Handler(r); pattern != "" {
		return pattern
	}

	return UnmatchedRoute
}

// ClientIP returns the address of the client that sent r. The first valid
// address in X-Forwarded-For wins, then X-Real-IP, then the connection's
// remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}

	return remoteHost(r)
}

// remoteHost is the host part of r.RemoteAddr, or all of it when it has no port.
func remoteHost(r *http.Request) string {
	if addrPort, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return addrPort.Addr().String()
	}

	return r.RemoteAddr
}
