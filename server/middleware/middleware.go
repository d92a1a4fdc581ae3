package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior. The server
// applies these around its root mux, so they cover Gin routes and any
// handler mounted beside them.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware. The first in the list is the outermost
// (runs first on a request, last on a response).
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
