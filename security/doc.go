// Package security builds client TLS settings for store connections.
//
//	cfg := security.TLSConfig{Enabled: true, CAFile: "/etc/redis/ca.pem"}
//	tlsConfig, err := cfg.Build()
package security
