package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the server configuration, loaded from the environment.
type Config struct {
	// Addr is the listen address.
	Addr string `env:"GPR_ADDR" envDefault:":8080"`

	// DBPath is the SQLite database file path.
	DBPath string `env:"GPR_DB" envDefault:"gpr.sqlite3"`

	// QRDir is the directory QR label images are written to and served from.
	QRDir string `env:"GPR_QR_DIR" envDefault:"qr"`

	// PublicBaseURL is the externally reachable base URL encoded into QR
	// codes. When empty, QR codes encode a relative-to-host URL built
	// from the listen address, which only works for local use.
	PublicBaseURL string `env:"GPR_PUBLIC_URL"`

	// LogPath is an optional log file; stdout/stderr are always used.
	LogPath string `env:"GPR_LOG"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
