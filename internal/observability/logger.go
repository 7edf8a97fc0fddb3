package observability

import (
	"os"
	"strconv"
	"time"

	"github.com/danmuck/binlens/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs a console logger on stderr tagged with app, leaving
// stdout to command output.
func InitLogger(app string) zerolog.Logger {
	noColor, _ := strconv.ParseBool(os.Getenv(logging.EnvLogNoColor))
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
