// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for drivegate. Values flow through a
// four-layer override chain: defaults -> config file -> environment -> CLI
// flags. Durations and sizes are kept as the strings the user wrote and
// parsed on demand, so "config show" prints them back unchanged.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Drive       DriveConfig       `toml:"drive"`
	Upload      UploadConfig      `toml:"upload"`
	Logging     LoggingConfig     `toml:"logging"`
	Credentials CredentialsConfig `toml:"credentials"`
}

// ServerConfig controls the HTTP listener. write_timeout bounds a whole
// upload, so it is generous by default.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	IdleTimeout     string `toml:"idle_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	MaxUploadSize   string `toml:"max_upload_size"`
}

// DriveConfig controls how sessions talk to the provider. endpoint and
// token_url are empty in production.
type DriveConfig struct {
	Scopes          []string `toml:"scopes"`
	Endpoint        string   `toml:"endpoint"`
	TokenURL        string   `toml:"token_url"`
	PageSize        int      `toml:"page_size"`
	UploadChunkSize string   `toml:"upload_chunk_size"`
}

// UploadConfig bounds concurrent content uploads across all requests.
type UploadConfig struct {
	Workers int `toml:"workers"`
}

// LoggingConfig controls log output: level and format. log_level is the
// only setting applied live when the file changes.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CredentialsConfig controls bearer token handling.
type CredentialsConfig struct {
	TokenTTL string `toml:"token_ttl"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish
// "not specified" (nil) from an explicit zero value.
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	Host       *string // --host flag
	Port       *int    // --port flag
	LogLevel   string  // --verbose / --debug / --quiet, already mapped to a level name
}

// Timeouts returns the parsed server timeouts. Call after Validate.
func (s *ServerConfig) Timeouts() (read, write, idle, shutdown time.Duration) {
	return mustDuration(s.ReadTimeout), mustDuration(s.WriteTimeout),
		mustDuration(s.IdleTimeout), mustDuration(s.ShutdownTimeout)
}

// MaxUploadBytes returns max_upload_size in bytes. Call after Validate.
func (s *ServerConfig) MaxUploadBytes() int64 {
	n, _ := ParseSize(s.MaxUploadSize)
	return n
}

// UploadChunkBytes returns upload_chunk_size in bytes. Call after Validate.
func (d *DriveConfig) UploadChunkBytes() int {
	n, _ := ParseSize(d.UploadChunkSize)
	return int(n)
}

// TTL returns token_ttl; zero means tokens never expire.
func (c *CredentialsConfig) TTL() time.Duration {
	return mustDuration(c.TokenTTL)
}

// mustDuration parses a validated duration. "0" and "" are zero.
func mustDuration(s string) time.Duration {
	if s == "" || s == "0" {
		return 0
	}

	d, _ := time.ParseDuration(s)

	return d
}
