// Package errors defines the application error type shared by the cache,
// the durable stores and the HTTP surface. Every error carries a
// machine-readable code, a retryable hint and a suggested HTTP status.
package errors
