// Package observability wires OpenTelemetry tracing and metrics.
//
//	shutdown, err := observability.Init(ctx, cfg)
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "statecache.flush")
//	defer span.End()
//
// With telemetry disabled the global no-op providers stay in place, so
// instruments created through Meter and spans started through StartSpan
// cost nothing.
package observability
