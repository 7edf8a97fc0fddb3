package testlog

import (
	"testing"

	"github.com/danmuck/binlens/internal/logging"
	"github.com/rs/zerolog/log"
)

// Start configures test logging once per binary and marks the test's
// start and end in the log stream.
func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Debug().Str("test", t.Name()).Msg("start")
	t.Cleanup(func() {
		log.Debug().Str("test", t.Name()).Bool("failed", t.Failed()).Msg("end")
	})
}
