package config

import (
	"fmt"
	"io"
	"strings"
)

// RenderEffective writes the resolved configuration as TOML to w, headed by
// the file it came from. This powers "drivegate config show".
func RenderEffective(cfg *Config, path string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", displayPath(path))

	s := &cfg.Server
	ew.printf("[server]\n")
	ew.printf("host             = %q\n", s.Host)
	ew.printf("port             = %d\n", s.Port)
	ew.printf("read_timeout     = %q\n", s.ReadTimeout)
	ew.printf("write_timeout    = %q\n", s.WriteTimeout)
	ew.printf("idle_timeout     = %q\n", s.IdleTimeout)
	ew.printf("shutdown_timeout = %q\n", s.ShutdownTimeout)
	ew.printf("max_upload_size  = %q\n\n", s.MaxUploadSize)

	d := &cfg.Drive
	ew.printf("[drive]\n")
	ew.printf("scopes            = [%s]\n", joinQuoted(d.Scopes))

	if d.Endpoint != "" {
		ew.printf("endpoint          = %q\n", d.Endpoint)
	}

	if d.TokenURL != "" {
		ew.printf("token_url         = %q\n", d.TokenURL)
	}

	ew.printf("page_size         = %d\n", d.PageSize)
	ew.printf("upload_chunk_size = %q\n\n", d.UploadChunkSize)

	ew.printf("[upload]\n")
	ew.printf("workers = %d\n\n", cfg.Upload.Workers)

	ew.printf("[logging]\n")
	ew.printf("log_level  = %q\n", cfg.Logging.LogLevel)
	ew.printf("log_format = %q\n\n", cfg.Logging.LogFormat)

	ew.printf("[credentials]\n")
	ew.printf("token_ttl = %q\n", cfg.Credentials.TokenTTL)

	return ew.err
}

func displayPath(path string) string {
	if path == "" {
		return "none, defaults only"
	}

	return path
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// joinQuoted formats a string slice as comma-separated quoted values.
func joinQuoted(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}

	return strings.Join(quoted, ", ")
}
