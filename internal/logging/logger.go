package logging

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Environment overrides.
const (
	EnvLogLevel = "RESISTORTIME_LOG_LEVEL"
	EnvJSONLog  = "RESISTORTIME_JSON_LOG"
)

// NewLogger creates an hclog logger writing to output, or stderr when
// output is nil.
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	opts := &hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: os.Getenv(EnvJSONLog) == "1",
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	}

	return hclog.New(opts)
}

// Level resolves the log level: the environment wins over fallback.
func Level(fallback string) string {
	if level := os.Getenv(EnvLogLevel); level != "" {
		return level
	}
	if fallback == "" {
		return "info"
	}
	return fallback
}
