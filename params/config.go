// Package params loads process configuration from environment variables
// and an optional .env file, following the teacher's LoadFromEnv pattern.
package params

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the settings cmd/engined needs to bootstrap a process
// around the core engine. The core itself (internal/engine, internal/
// ledger, internal/orderbook) takes no configuration — it is a pure
// in-memory facade constructed by its caller.
type Config struct {
	// APIAddr is the listen address for the demo HTTP/WS transport.
	APIAddr string
	// LogFile is where structured logs are additionally written, beyond
	// stdout. cmd/engined always opens it; an empty path makes logger
	// construction fail rather than disabling file logging.
	LogFile string
	// Verbose, when true, makes cmd/engined log a "verbose logging enabled"
	// line at startup; it does not change the log level.
	Verbose bool
}

func Default() Config {
	return Config{
		APIAddr: ":8080",
		LogFile: "data/engine.log",
		Verbose: false,
	}
}

// LoadFromEnv loads configuration from an optional .env file (never
// failing if one doesn't exist) and then environment variables, which
// always win. Pass "" to look for .env in the current directory.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("VERBOSE"); v == "true" {
		cfg.Verbose = true
	}

	return cfg
}
