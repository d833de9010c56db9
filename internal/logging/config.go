package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "OFNOTIFY_LOG_LEVEL"
	EnvLogNoColor = "OFNOTIFY_LOG_NOCOLOR"
	EnvLogPlain   = "OFNOTIFY_LOG_PLAIN"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure installs the process-wide logger. The first call wins; later
// calls are no-ops so tests and binaries can both configure defensively.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		level := zerolog.InfoLevel
		if profile == ProfileTest {
			level = zerolog.DebugLevel
		}
		if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
			level = lvl
		}

		var out io.Writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    envBool(EnvLogNoColor),
		}
		if envBool(EnvLogPlain) {
			out = os.Stderr
		}

		log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	})
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func envBool(key string) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}
