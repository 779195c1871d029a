package methods

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"stockpile/internal/config"
	"stockpile/internal/logging"
	"stockpile/internal/services"
	"stockpile/internal/work"
)

// HTTPFetch downloads a package from the first reachable http(s) source.
type HTTPFetch struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewHTTPFetch builds the HTTP retrieval strategy from config.
func NewHTTPFetch(cfg *config.Config, logger *slog.Logger) *HTTPFetch {
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPFetch{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.HTTP.UserAgent,
		logger:    logging.NewComponentLogger(logger, "httpfetch"),
	}
}

func (h *HTTPFetch) Name() string { return config.MethodHTTPFetch }

// Fetch tries each http(s) source in order and stops at the first success.
// Status classification: 404/410 mean the package genuinely does not exist
// (terminal); 401/403/407 mean an authentication precondition is not met on
// this method (environment); everything else is transient.
func (h *HTTPFetch) Fetch(ctx context.Context, item work.Item) (int64, error) {
	sources := httpSources(item.Sources)
	if len(sources) == 0 {
		return 0, services.Wrap(services.ErrEnvironment, "httpfetch", "fetch", "no http sources configured for item", nil)
	}

	var lastErr error
	for _, source := range sources {
		written, err := h.fetchOne(ctx, source, item.Destination)
		if err == nil {
			return written, nil
		}
		if services.IsTerminal(err) {
			return 0, err
		}
		h.logger.Debug("source failed",
			logging.String("source", source),
			logging.Error(err),
		)
		lastErr = err
	}
	return 0, lastErr
}

func (h *HTTPFetch) fetchOne(ctx context.Context, source, destination string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "httpfetch", "build request", source, err)
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "httpfetch", "download", source, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return 0, services.Wrap(services.ErrTerminal, "httpfetch", "download",
			fmt.Sprintf("%s returned %d: package does not exist", source, resp.StatusCode), nil)
	case resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusProxyAuthRequired:
		return 0, services.Wrap(services.ErrEnvironment, "httpfetch", "download",
			fmt.Sprintf("%s returned %d: authentication precondition not met", source, resp.StatusCode), nil)
	default:
		return 0, services.Wrap(services.ErrTransient, "httpfetch", "download",
			fmt.Sprintf("%s returned %d", source, resp.StatusCode), nil)
	}

	out, err := os.Create(destination)
	if err != nil {
		return 0, services.Wrap(services.ErrEnvironment, "httpfetch", "create destination", destination, err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		_ = os.Remove(destination)
		return 0, services.Wrap(services.ErrTransient, "httpfetch", "stream body", source, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(destination)
		return 0, services.Wrap(services.ErrTransient, "httpfetch", "flush destination", destination, err)
	}
	return written, nil
}

func httpSources(sources []string) []string {
	var out []string
	for _, source := range sources {
		trimmed := strings.TrimSpace(source)
		if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
			out = append(out, trimmed)
		}
	}
	return out
}
