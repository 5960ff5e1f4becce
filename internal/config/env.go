package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "DRIVEGATE_CONFIG"
	EnvHost     = "DRIVEGATE_HOST"
	EnvPort     = "DRIVEGATE_PORT"
	EnvLogLevel = "DRIVEGATE_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // DRIVEGATE_CONFIG: override config file path
	Host       string // DRIVEGATE_HOST: listen host
	Port       string // DRIVEGATE_PORT: listen port, parsed in Resolve
	LogLevel   string // DRIVEGATE_LOG_LEVEL: log level
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Host:       os.Getenv(EnvHost),
		Port:       os.Getenv(EnvPort),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
}
