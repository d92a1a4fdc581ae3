// Package config loads service configuration from a YAML file, an optional
// .env file and environment variables using viper and godotenv.
//
// Configuration structs implement ApplyDefaults and Validate; Load calls both
// after unmarshalling.
//
//	var cfg statecached.Config
//	err := config.Load("statecached", &cfg, config.WithEnvPrefix("STATECACHED"))
//
// With a prefix, STATECACHED_CACHE_DEBOUNCE=250ms overrides cache.debounce.
package config
