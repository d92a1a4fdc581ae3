// Package logger provides structured logging for statekit processes
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers carrying structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("statecache")
//	log.Info("flush completed", logger.Fields("keys", 3))
package logger
