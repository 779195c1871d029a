package config

import "strings"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeHTTP()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []*string{
		&c.Paths.StagingDir,
		&c.Paths.CacheDir,
		&c.Paths.ShareDir,
		&c.Paths.LogDir,
		&c.Paths.LockDir,
		&c.Paths.ManifestPath,
	}
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers == 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.BackoffBaseSeconds == 0 {
		c.Workflow.BackoffBaseSeconds = defaultBackoffBaseSeconds
	}
	if c.Workflow.LockTimeoutSeconds == 0 {
		c.Workflow.LockTimeoutSeconds = defaultLockTimeoutSeconds
	}
	if len(c.Workflow.Methods) == 0 {
		c.Workflow.Methods = defaultMethods()
	}
	c.Workflow.SelectionPolicy = strings.ToLower(strings.TrimSpace(c.Workflow.SelectionPolicy))
	if c.Workflow.SelectionPolicy == "" {
		c.Workflow.SelectionPolicy = defaultSelectionPolicy
	}
	for i, method := range c.Workflow.Methods {
		c.Workflow.Methods[i] = strings.ToLower(strings.TrimSpace(method))
	}
}

func (c *Config) normalizeHTTP() {
	if c.HTTP.TimeoutSeconds <= 0 {
		c.HTTP.TimeoutSeconds = defaultHTTPTimeoutSeconds
	}
	if strings.TrimSpace(c.HTTP.UserAgent) == "" {
		c.HTTP.UserAgent = defaultHTTPUserAgent
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
