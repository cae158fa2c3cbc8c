package backtest

import (
	"os"

	"github.com/rs/zerolog"
)

// log is the package-wide structured logger. It is only ever touched at
// configuration-load and run-boundary granularity — never from inside the
// per-bar simulation loop.
var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

func warnConfigFallback(field, given, used string) {
	log.Warn().
		Str("field", field).
		Str("given", given).
		Str("using", used).
		Msg("config value out of range, falling back to default")
}
