// Package serverlog builds the structured logger shared across the
// server loop, connection FSM and rule loader.
package serverlog

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logrus.Logger writing to stderr at the given level
// ("debug", "info", "warn", "error"; invalid values fall back to
// "info") in the given format ("text" or "json"; anything else falls
// back to "text").
func New(level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// ConnFields returns the base structured fields logged for every event on
// one connection.
func ConnFields(connID, remoteAddr string) logrus.Fields {
	return logrus.Fields{
		"conn_id":     connID,
		"remote_addr": remoteAddr,
	}
}

// RequestFields extends ConnFields with the per-request fields logged
// once a request completes.
func RequestFields(connID, remoteAddr, method, url string, status int, durationMS int64) logrus.Fields {
	return logrus.Fields{
		"conn_id":     connID,
		"remote_addr": remoteAddr,
		"method":      method,
		"url":         url,
		"status":      status,
		"duration_ms": durationMS,
	}
}
