// Package version reports build information for the statecached binary.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/statekit/version.Version=1.0.0" ./cmd/statecached
//
// Fields left unset fall back to the module's embedded VCS build settings.
package version
