package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindServer = "server"
	KindCLI    = "cli"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindServer:
		return serverTemplate, nil
	case KindCLI:
		return cliTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Validate loads path as the given kind and reports the first problem.
func Validate(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindServer:
		_, err := LoadServerConfig(path)
		return err
	case KindCLI:
		_, err := LoadCLIConfig(path)
		return err
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}

const serverTemplate = `name = "binlensd"
addr = ":9400"
cors_origins = ["http://localhost:3000"]
# uploads larger than this are rejected with 413
max_body_bytes = 33554432
# 0 disables the limit
max_sessions = 64
seed = 0
log_level = "info"
`

const cliTemplate = `output = "text"
fields = false
seed = 0
log_level = "warn"
`
