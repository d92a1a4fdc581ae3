// Package resilience provides retry with exponential backoff and jitter.
// The state cache uses it to retry durable writes when configured to.
package resilience
