// Package server hosts the statekit HTTP surface: a Gin engine behind a
// net/http handler chain, served with h2c so long-lived event streams and
// plain requests share one port.
//
// # Middleware
//
// Applied at the handler level (server/middleware), outermost first:
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation
//   - CORS: cross-origin headers and preflight handling
//   - BodySizeLimit: request body cap
//   - RequestLogger: per-request log line by status
//
// Metrics is a Gin middleware so it can label requests by route template.
//
// # Endpoints
//
// Built-in endpoints (server/endpoint): /health, /ready, /alive, /info and
// /metrics. The state API lives in server/api.
package server
