package gardenutil

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Name of the environment variable holding the logging level.
const LogLevelEnvironmentVariable = "WALLEDGARDEN_LOG_LEVEL"

// Returns current time in UTC.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// Configures the global logrus logger. The level is taken from the
// WALLEDGARDEN_LOG_LEVEL environment variable and defaults to INFO.
func SetupLogging() {
	level := log.InfoLevel
	if value, ok := os.LookupEnv(LogLevelEnvironmentVariable); ok {
		parsed, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
		if err == nil {
			level = parsed
		}
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	log.SetReportCaller(true)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			// Grab filename and line of current frame and add it to log entry
			_, filename := path.Split(f.File)
			return "", fmt.Sprintf("%20v:%-5d", filename, f.Line)
		},
	})
}

// Combines multiple errors into a single one. Nil errors are skipped.
// Returns nil if there are no errors.
func CombineErrors(message string, errs []error) error {
	messages := []string{}
	for _, err := range errs {
		if err != nil {
			messages = append(messages, err.Error())
		}
	}
	if len(messages) == 0 {
		return nil
	}
	return errors.Errorf("%s: %s", message, strings.Join(messages, "; "))
}
