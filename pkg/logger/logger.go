package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "neemo"

type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`
	// Level overrides Debug when set (trace, debug, info, warn, error).
	Level string `split_words:"true"`
}

func (c Config) level() zerolog.Level {
	if raw := strings.ToLower(strings.TrimSpace(c.Level)); raw != "" {
		if lvl, err := zerolog.ParseLevel(raw); err == nil {
			return lvl
		}
	}
	if c.Debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// Init replaces the global logger. Loggers pulled from a context without one
// attached fall back to it.
func Init(opts ...Config) {
	var conf Config
	if len(opts) > 0 {
		conf = opts[0]
	}

	var out io.Writer = os.Stdout
	if conf.PrettyFormat {
		out = zerolog.NewConsoleWriter()
	}

	log.Logger = zerolog.New(out).
		Level(conf.level()).
		With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger()
	zerolog.DefaultContextLogger = &log.Logger
}
