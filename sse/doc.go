// Package sse streams state change events to HTTP clients as Server-Sent
// Events. A Hub fans events out to registered clients; each client watches
// a set of fields and receives only events that touch them.
package sse
