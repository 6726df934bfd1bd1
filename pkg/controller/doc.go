// Package controller contains the HTTP middlewares and helper handlers the API
// server is assembled from.
//
// Middlewares:
//   - WithCORS: lets browsers on allowed origins call the API routes.
//   - WithLogger: request ids, a route-tagged request logger and the access log.
//   - WithMetrics: request latency by method, route and status code.
//
// Helpers:
//   - DebugHandler: net/http/pprof under /debug/pprof/ for local clients.
//   - RouteOf, ClientIP: request attributes shared by the above.
package controller
