package bootstrap

import (
	"time"

	"github.com/kbukum/statekit/component"
	"github.com/kbukum/statekit/logger"
)

// logSummary logs the health of every component after startup, then the
// overall status and startup time.
func logSummary(log *logger.Logger, health []component.Health, took time.Duration) {
	for _, h := range health {
		fields := logger.Fields(
			logger.FieldComponent, h.Name,
			logger.FieldStatus, string(h.Status),
		)
		if h.Message != "" {
			fields["message"] = h.Message
		}
		log.Info("component health", fields)
	}

	log.Info("startup complete", logger.Fields(
		"components", len(health),
		"overall", string(component.Overall(health)),
		logger.FieldDuration, took.Milliseconds(),
	))
}
