package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validation range constants.
const (
	minPort            = 0
	maxPort            = 65535
	minPageSize        = 1
	maxPageSize        = 1000 // provider's own files.list ceiling
	minUploadWorkers   = 1
	maxUploadWorkers   = 64
	uploadChunkAlign   = 256 * 1024
	minShutdownTimeout = time.Second
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

// Validate checks all configuration values and returns all errors found,
// so one run reports every problem.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateDrive(&cfg.Drive)...)
	errs = append(errs, validateUpload(&cfg.Upload)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateCredentials(&cfg.Credentials)...)

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if s.Port < minPort || s.Port > maxPort {
		errs = append(errs, fmt.Errorf("server.port: must be between %d and %d, got %d", minPort, maxPort, s.Port))
	}

	for _, d := range []struct {
		name, value string
	}{
		{"server.read_timeout", s.ReadTimeout},
		{"server.write_timeout", s.WriteTimeout},
		{"server.idle_timeout", s.IdleTimeout},
	} {
		if err := validateDuration(d.name, d.value, 0); err != nil {
			errs = append(errs, err)
		}
	}

	if err := validateDuration("server.shutdown_timeout", s.ShutdownTimeout, minShutdownTimeout); err != nil {
		errs = append(errs, err)
	}

	n, err := ParseSize(s.MaxUploadSize)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("server.max_upload_size: %w", err))
	case n <= 0:
		errs = append(errs, fmt.Errorf("server.max_upload_size: must be positive, got %q", s.MaxUploadSize))
	}

	return errs
}

func validateDrive(d *DriveConfig) []error {
	var errs []error

	if len(d.Scopes) == 0 {
		errs = append(errs, errors.New("drive.scopes: at least one scope is required"))
	}

	for _, scope := range d.Scopes {
		if strings.TrimSpace(scope) == "" {
			errs = append(errs, errors.New("drive.scopes: empty scope"))
		}
	}

	if err := validateURL("drive.endpoint", d.Endpoint); err != nil {
		errs = append(errs, err)
	}

	if err := validateURL("drive.token_url", d.TokenURL); err != nil {
		errs = append(errs, err)
	}

	if d.PageSize < minPageSize || d.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("drive.page_size: must be between %d and %d, got %d",
			minPageSize, maxPageSize, d.PageSize))
	}

	chunk, err := ParseSize(d.UploadChunkSize)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("drive.upload_chunk_size: %w", err))
	case chunk%uploadChunkAlign != 0:
		errs = append(errs, fmt.Errorf("drive.upload_chunk_size: must be a multiple of 256 KiB, got %s (%d bytes)",
			d.UploadChunkSize, chunk))
	}

	return errs
}

func validateUpload(u *UploadConfig) []error {
	if u.Workers < minUploadWorkers || u.Workers > maxUploadWorkers {
		return []error{fmt.Errorf("upload.workers: must be between %d and %d, got %d",
			minUploadWorkers, maxUploadWorkers, u.Workers)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[strings.ToLower(l.LogLevel)] {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[strings.ToLower(l.LogFormat)] {
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validateCredentials(c *CredentialsConfig) []error {
	if err := validateDuration("credentials.token_ttl", c.TokenTTL, 0); err != nil {
		return []error{err}
	}

	return nil
}

// validateDuration accepts "0", "" and any non-negative duration >= floor.
func validateDuration(name, value string, floor time.Duration) error {
	if value == "" || value == "0" {
		if floor > 0 {
			return fmt.Errorf("%s: must be at least %s", name, floor)
		}

		return nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", name, value, err)
	}

	if d < 0 {
		return fmt.Errorf("%s: must not be negative, got %s", name, value)
	}

	if d < floor {
		return fmt.Errorf("%s: must be at least %s, got %s", name, floor, value)
	}

	return nil
}

// validateURL accepts an empty value or an absolute http(s) URL.
func validateURL(name, value string) error {
	if value == "" {
		return nil
	}

	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s: must be an absolute http(s) URL, got %q", name, value)
	}

	return nil
}
