package config

import (
	"fmt"
	"strings"
)

// Known method strategy names, in default chain order.
const (
	MethodHTTPFetch = "httpfetch"
	MethodCacheCopy = "cachecopy"
	MethodShareCopy = "sharecopy"
)

// Selection policies for ambiguous catalog candidates.
const (
	SelectionLatest = "latest"
	SelectionFirst  = "first"
	SelectionStrict = "strict"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return fmt.Errorf("paths: staging_dir is required")
	}
	if strings.TrimSpace(c.Paths.ManifestPath) == "" {
		return fmt.Errorf("paths: manifest_path is required")
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		return fmt.Errorf("paths: lock_dir is required")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 1 {
		return fmt.Errorf("workflow: workers must be at least 1, got %d", c.Workflow.Workers)
	}
	if c.Workflow.RetryCount < 0 {
		return fmt.Errorf("workflow: retry_count must not be negative, got %d", c.Workflow.RetryCount)
	}
	if c.Workflow.BackoffBaseSeconds < 0 {
		return fmt.Errorf("workflow: backoff_base_seconds must not be negative, got %d", c.Workflow.BackoffBaseSeconds)
	}
	if c.Workflow.LockTimeoutSeconds < 1 {
		return fmt.Errorf("workflow: lock_timeout_seconds must be at least 1, got %d", c.Workflow.LockTimeoutSeconds)
	}
	if len(c.Workflow.Methods) == 0 {
		return fmt.Errorf("workflow: at least one retrieval method is required")
	}
	for _, method := range c.Workflow.Methods {
		switch method {
		case MethodHTTPFetch, MethodCacheCopy, MethodShareCopy:
		default:
			return fmt.Errorf("workflow: unknown method %q", method)
		}
	}
	switch c.Workflow.SelectionPolicy {
	case SelectionLatest, SelectionFirst, SelectionStrict:
	default:
		return fmt.Errorf("workflow: unknown selection_policy %q", c.Workflow.SelectionPolicy)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging: unsupported format %q", c.Logging.Format)
	}
	return nil
}
