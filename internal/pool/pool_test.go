package pool_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stockpile/internal/executor"
	"stockpile/internal/logging"
	"stockpile/internal/manifest"
	"stockpile/internal/pool"
	"stockpile/internal/services"
	"stockpile/internal/work"
)

// fakeRunner resolves items to pre-scripted results and tracks how many
// workers are inside Run at once.
type fakeRunner struct {
	mu       sync.Mutex
	outcomes map[string]work.Result
	delay    time.Duration

	running    int32
	maxRunning int32
}

func (f *fakeRunner) Run(ctx context.Context, item work.Item, reporter executor.Reporter) work.Result {
	current := atomic.AddInt32(&f.running, 1)
	defer atomic.AddInt32(&f.running, -1)
	for {
		observed := atomic.LoadInt32(&f.maxRunning)
		if current <= observed || atomic.CompareAndSwapInt32(&f.maxRunning, observed, current) {
			break
		}
	}

	reporter.Publish(work.Event{ID: item.ID, Kind: work.EventAttempting, Status: "downloading"})
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	result, ok := f.outcomes[item.ID]
	f.mu.Unlock()
	if !ok {
		result = work.Result{ID: item.ID, Success: true, Method: "httpfetch"}
	}
	result.ID = item.ID
	return result
}

type panickyRunner struct {
	inner    fakeRunner
	panicsOn string
}

func (p *panickyRunner) Run(ctx context.Context, item work.Item, reporter executor.Reporter) work.Result {
	if item.ID == p.panicsOn {
		panic("strategy dereferenced nil response")
	}
	return p.inner.Run(ctx, item, reporter)
}

type eventLog struct {
	mu     sync.Mutex
	events []work.Event
}

func (l *eventLog) observe(evt work.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
}

func (l *eventLog) all() []work.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]work.Event(nil), l.events...)
}

func makeItems(ids ...string) []work.Item {
	items := make([]work.Item, len(ids))
	for i, id := range ids {
		items[i] = work.Item{
			ID:          id,
			Sources:     []string{"https://mirror.example/" + id},
			Destination: filepath.Join("staging", id),
		}
	}
	return items
}

func newPool(t *testing.T, workers int, runner pool.Runner, registrar pool.Registrar) *pool.Pool {
	t.Helper()
	p, err := pool.New(pool.Config{Workers: workers}, runner, registrar, logging.NewNop())
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	return p
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := pool.New(pool.Config{Workers: 0}, &fakeRunner{}, nil, logging.NewNop())
	if !errors.Is(err, services.ErrScheduling) {
		t.Fatalf("expected scheduling error for zero workers, got %v", err)
	}
	_, err = pool.New(pool.Config{Workers: 2}, nil, nil, logging.NewNop())
	if !errors.Is(err, services.ErrScheduling) {
		t.Fatalf("expected scheduling error for nil runner, got %v", err)
	}
}

func TestFailAllProducesOneResultPerItem(t *testing.T) {
	items := makeItems("a", "b", "c")
	results := pool.FailAll(items, errors.New("no workers available"))
	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}
	for i, result := range results {
		if result.ID != items[i].ID {
			t.Errorf("result %d id = %q, want %q", i, result.ID, items[i].ID)
		}
		if result.Success || result.ErrorMessage == "" {
			t.Errorf("result %d should be a failure with a message: %+v", i, result)
		}
	}
}

func TestConcurrencyStaysUnderCap(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	items := makeItems("a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l")
	p := newPool(t, 3, runner, nil)

	results := p.Run(context.Background(), items, nil)

	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}
	for _, result := range results {
		if !result.Success {
			t.Errorf("item %s failed unexpectedly: %s", result.ID, result.ErrorMessage)
		}
	}
	if max := atomic.LoadInt32(&runner.maxRunning); max > 3 {
		t.Fatalf("observed %d concurrent workers, cap is 3", max)
	}
}

func TestWorkerPanicBecomesFailedResult(t *testing.T) {
	runner := &panickyRunner{panicsOn: "b"}
	items := makeItems("a", "b", "c")
	p := newPool(t, 2, runner, nil)

	log := &eventLog{}
	results := p.Run(context.Background(), items, log.observe)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	byID := map[string]work.Result{}
	for _, result := range results {
		byID[result.ID] = result
	}
	if byID["b"].Success {
		t.Fatal("panicked item must be a failure")
	}
	if !strings.Contains(byID["b"].ErrorMessage, "worker panic") {
		t.Fatalf("panic message missing from result: %q", byID["b"].ErrorMessage)
	}
	if !byID["a"].Success || !byID["c"].Success {
		t.Fatal("other items must be unaffected by the panic")
	}

	failures := 0
	for _, evt := range log.all() {
		if evt.ID == "b" && evt.Kind == work.EventFailed {
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one terminal failure event for b, got %d", failures)
	}
}

func TestExactlyOneTerminalEventAndNothingAfter(t *testing.T) {
	runner := &fakeRunner{delay: 5 * time.Millisecond}
	items := makeItems("a", "b", "c", "d", "e")
	p := newPool(t, 2, runner, nil)

	log := &eventLog{}
	results := p.Run(context.Background(), items, log.observe)
	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}

	terminalSeen := map[string]int{}
	for _, evt := range log.all() {
		if terminalSeen[evt.ID] > 0 {
			t.Fatalf("event %v for %s delivered after its terminal event", evt.Kind, evt.ID)
		}
		if evt.Kind.Terminal() {
			terminalSeen[evt.ID]++
		}
	}
	for _, item := range items {
		if terminalSeen[item.ID] != 1 {
			t.Fatalf("item %s saw %d terminal events, want 1", item.ID, terminalSeen[item.ID])
		}
	}
}

func TestCancelledRunStillYieldsAllResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &cancelAwareRunner{cancel: cancel}
	items := makeItems("a", "b", "c")
	p := newPool(t, 1, runner, nil)

	results := p.Run(ctx, items, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Success {
		t.Fatalf("the running item should finish despite cancellation: %+v", results[0])
	}
	for _, result := range results[1:] {
		if result.Success {
			t.Fatalf("item %s should not have started after cancel", result.ID)
		}
		if !strings.Contains(result.ErrorMessage, "cancelled before start") {
			t.Fatalf("item %s message = %q", result.ID, result.ErrorMessage)
		}
	}
}

// cancelAwareRunner cancels the run while the first item is in flight,
// then finishes that item successfully.
type cancelAwareRunner struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (r *cancelAwareRunner) Run(ctx context.Context, item work.Item, reporter executor.Reporter) work.Result {
	r.once.Do(func() {
		r.cancel()
		<-ctx.Done()
	})
	return work.Result{ID: item.ID, Success: true, Method: "httpfetch"}
}

func TestRunRegistersInstallersInSubmissionOrder(t *testing.T) {
	dir := t.TempDir()
	store, err := manifest.NewStore(
		filepath.Join(dir, "install_manifest.json"),
		filepath.Join(dir, "locks"),
		5*time.Second,
		logging.NewNop(),
	)
	if err != nil {
		t.Fatalf("manifest.NewStore: %v", err)
	}

	items := makeItems("toolchain", "runtime", "broken")
	items[0].Installer = &work.InstallerSpec{Name: "Toolchain", CommandLine: "toolchain.exe", PackageIdentifier: "org.example.toolchain"}
	items[1].Installer = &work.InstallerSpec{Name: "Runtime", CommandLine: "runtime.exe", PackageIdentifier: "org.example.runtime"}
	items[2].Installer = &work.InstallerSpec{Name: "Broken", CommandLine: "broken.exe", PackageIdentifier: "org.example.broken"}

	runner := &fakeRunner{
		delay: 5 * time.Millisecond,
		outcomes: map[string]work.Result{
			"toolchain": {Success: true, Method: "httpfetch"},
			"runtime":   {Success: true, Method: "sharecopy"},
			"broken":    {ErrorMessage: "not found on any mirror"},
		},
	}
	p := newPool(t, 3, runner, manifest.NewRegistrar(store))

	results := p.Run(context.Background(), items, nil)
	byID := map[string]work.Result{}
	for _, result := range results {
		byID[result.ID] = result
	}
	if !byID["toolchain"].Success || byID["toolchain"].Method != "httpfetch" {
		t.Fatalf("toolchain result: %+v", byID["toolchain"])
	}
	if !byID["runtime"].Success || byID["runtime"].Method != "sharecopy" {
		t.Fatalf("runtime result: %+v", byID["runtime"])
	}
	if byID["broken"].Success {
		t.Fatal("broken item must fail")
	}

	entries, err := store.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("failed items must not be registered; got %d entries", len(entries))
	}
	if entries[0].Name != "Toolchain" || entries[1].Name != "Runtime" {
		t.Fatalf("entries should follow submission order, got [%s, %s]", entries[0].Name, entries[1].Name)
	}
	if entries[0].Priority != 1 || entries[1].Priority != 2 {
		t.Fatalf("priorities must be dense from 1: %d, %d", entries[0].Priority, entries[1].Priority)
	}
}

type failingRegistrar struct{}

func (failingRegistrar) Register(context.Context, work.Item) error {
	return errors.New("lock timeout after 30s")
}

func (failingRegistrar) Finalize(context.Context, []work.Item) error { return nil }

func TestRegistrationFailureFailsTheItem(t *testing.T) {
	items := makeItems("a")
	items[0].Installer = &work.InstallerSpec{Name: "A", CommandLine: "a.exe"}
	p := newPool(t, 1, &fakeRunner{}, failingRegistrar{})

	results := p.Run(context.Background(), items, nil)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Success {
		t.Fatal("item with failed registration must not report success")
	}
	if !strings.Contains(results[0].ErrorMessage, "manifest registration failed") {
		t.Fatalf("unexpected message: %q", results[0].ErrorMessage)
	}
}
