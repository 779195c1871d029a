package config

const (
	defaultStagingDir   = "~/.local/share/stockpile/staging"
	defaultCacheDir     = "~/.cache/stockpile/packages"
	defaultLogDir       = "~/.local/share/stockpile/logs"
	defaultLockDir      = "~/.local/share/stockpile/locks"
	defaultManifestPath = "~/.local/share/stockpile/install_manifest.json"

	defaultWorkers            = 5
	defaultRetryCount         = 2
	defaultBackoffBaseSeconds = 2
	defaultSelectionPolicy    = "latest"
	defaultLockTimeoutSeconds = 30

	defaultHTTPTimeoutSeconds = 300
	defaultHTTPUserAgent      = "Stockpile/0.1.0"

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

func defaultMethods() []string {
	return []string{MethodHTTPFetch, MethodCacheCopy, MethodShareCopy}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:   defaultStagingDir,
			CacheDir:     defaultCacheDir,
			LogDir:       defaultLogDir,
			LockDir:      defaultLockDir,
			ManifestPath: defaultManifestPath,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			RetryCount:         defaultRetryCount,
			BackoffBaseSeconds: defaultBackoffBaseSeconds,
			Methods:            defaultMethods(),
			SelectionPolicy:    defaultSelectionPolicy,
			LockTimeoutSeconds: defaultLockTimeoutSeconds,
		},
		HTTP: HTTP{
			TimeoutSeconds: defaultHTTPTimeoutSeconds,
			UserAgent:      defaultHTTPUserAgent,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
