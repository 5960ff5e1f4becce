package config

// Default values for configuration options. These represent "layer 0" of the
// override chain and work without any config file.
const (
	defaultHost            = "127.0.0.1"
	defaultPort            = 8000
	defaultReadTimeout     = "30s"
	defaultWriteTimeout    = "10m"
	defaultIdleTimeout     = "2m"
	defaultShutdownTimeout = "15s"
	defaultMaxUploadSize   = "100MiB"
	defaultDriveScope      = "https://www.googleapis.com/auth/drive"
	defaultPageSize        = 10
	defaultUploadChunkSize = "16MiB"
	defaultUploadWorkers   = 4
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultTokenTTL        = "0"
)

// DefaultConfig returns a Config populated with all default values.
// It is both the starting point for TOML decoding (so unset fields keep
// their defaults) and the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            defaultHost,
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			MaxUploadSize:   defaultMaxUploadSize,
		},
		Drive: DriveConfig{
			Scopes:          []string{defaultDriveScope},
			PageSize:        defaultPageSize,
			UploadChunkSize: defaultUploadChunkSize,
		},
		Upload: UploadConfig{
			Workers: defaultUploadWorkers,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Credentials: CredentialsConfig{
			TokenTTL: defaultTokenTTL,
		},
	}
}
