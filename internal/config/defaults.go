package config

const (
	defaultDataDir           = "~/.local/share/plenum"
	defaultDownloadDir       = "~/.local/share/plenum/downloads"
	defaultLogDir            = "~/.local/share/plenum/logs"
	defaultRequestTimeout    = 600
	defaultRequestsPerMinute = 30
	defaultUserAgent         = "plenum/dev"
	defaultConcurrency       = 1
	defaultBaseDelaySeconds  = 120
	defaultMaxRetries        = 3
	defaultStaleAfterMinutes = 120
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		Downloads: Downloads{
			RequestTimeout:    defaultRequestTimeout,
			RequestsPerMinute: defaultRequestsPerMinute,
			UserAgent:         defaultUserAgent,
			Concurrency:       defaultConcurrency,
		},
		Retry: Retry{
			BaseDelaySeconds: defaultBaseDelaySeconds,
			MaxRetries:       defaultMaxRetries,
		},
		Workers: Workers{
			StaleAfterMinutes: defaultStaleAfterMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
