package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"stockpile/internal/config"
	"stockpile/internal/notifications"
)

type captured struct {
	title    string
	message  string
	tags     string
	priority string
}

func newTestService(t *testing.T) (notifications.Service, *[]captured) {
	t.Helper()

	var mu sync.Mutex
	var requests []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5
	return notifications.NewService(cfg), &requests
}

func TestRunCompletedMentionsFailures(t *testing.T) {
	svc, requests := newTestService(t)

	if err := svc.NotifyRunCompleted(context.Background(), 4, 2, 90*time.Second); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	got := (*requests)[0]
	if !strings.Contains(got.title, "with errors") {
		t.Fatalf("title should flag errors: %q", got.title)
	}
	if !strings.Contains(got.message, "4 succeeded, 2 failed") {
		t.Fatalf("unexpected message: %q", got.message)
	}
}

func TestRunCompletedCleanPath(t *testing.T) {
	svc, requests := newTestService(t)

	if err := svc.NotifyRunCompleted(context.Background(), 3, 0, 0); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	got := (*requests)[0]
	if strings.Contains(got.title, "errors") {
		t.Fatalf("clean run should not flag errors: %q", got.title)
	}
	if !strings.Contains(got.message, "0s") {
		t.Fatalf("zero duration should render as 0s: %q", got.message)
	}
}

func TestErrorNotificationIsHighPriority(t *testing.T) {
	svc, requests := newTestService(t)

	err := svc.NotifyError(context.Background(), errTest, "manifest write")
	if err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	got := (*requests)[0]
	if got.priority != "high" {
		t.Fatalf("errors should be high priority, got %q", got.priority)
	}
	if !strings.Contains(got.message, "manifest write") {
		t.Fatalf("message should name the failing context: %q", got.message)
	}
}

func TestServerErrorSurfacesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(cfg)

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from non-2xx response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry the status code: %v", err)
	}
}

func TestUnconfiguredTopicIsNoop(t *testing.T) {
	svc := notifications.NewService(&config.Config{})
	if err := svc.NotifyRunStarted(context.Background(), 10); err != nil {
		t.Fatalf("noop service must never fail: %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop service must never fail: %v", err)
	}
}

var errTest = &stubError{"connection reset"}

type stubError struct{ msg string }

func (e *stubError) Error() string { return e.msg }
