package controller

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	corsAllowedHeaders = "Content-Type, Accept, X-Request-Id"
	corsExposedHeaders = "X-Request-Id"
	corsMaxAge         = 10 * 60
	anyOrigin          = "*"
)

// CORSOptions configures WithCORS.
type CORSOptions struct {
	// AllowedOrigins lists the browser origins that may call the API. Empty or
	// "*" allows any origin.
	AllowedOrigins []string
	// Methods are the methods the API routes are served with. OPTIONS is
	// always answered.
	Methods []string
}

// WithCORS returns a middleware that lets browsers on allowed origins call the
// API. Preflight requests are answered with 204 and never reach next; requests
// from origins that are not allowed get no CORS headers and preflights from
// them get 403. Requests without an Origin header pass through untouched.
func WithCORS(opts CORSOptions, next http.Handler) http.Handler {
	wildcard := len(opts.AllowedOrigins) == 0 || slices.Contains(opts.AllowedOrigins, anyOrigin)
	methods := strings.Join(append(slices.Clone(opts.Methods), http.MethodOptions), ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)

			return
		}

		preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
		allowed := wildcard || slices.Contains(opts.AllowedOrigins, origin)
		if !allowed {
			if preflight {
				w.WriteHeader(http.StatusForbidden)

				return
			}
			next.ServeHTTP(w, r)

			return
		}

		h := w.Header()
		if wildcard {
			h.Set("Access-Control-Allow-Origin", anyOrigin)
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Expose-Headers", corsExposedHeaders)

		if preflight {
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			h.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			w.WriteHeader(http.StatusNoContent)

			return
		}

		next.ServeHTTP(w, r)
	})
}
