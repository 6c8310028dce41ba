package buildwatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// statusServer serves the given labels in order, repeating the last one.
type statusServer struct {
	mu     sync.Mutex
	labels []string
	hits   atomic.Int32
	paths  []string
}

func (s *statusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(s.hits.Add(1)) - 1

	s.mu.Lock()
	s.paths = append(s.paths, r.URL.Path)
	label := s.labels[len(s.labels)-1]
	if n < len(s.labels) {
		label = s.labels[n]
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status": "` + label + `"}`))
}

func newHeadless(t *testing.T, baseURL string, opts ...Option) *Watcher {
	t.Helper()
	base := []Option{WithBaseURL(baseURL), WithHeadless(), WithLogger(testLogger())}
	w, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return w
}

func TestPoll_PendingToRunning(t *testing.T) {
	srv := &statusServer{labels: []string{"running"}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	w := newHeadless(t, ts.URL,
		WithPagePath("/coprs/alice/demo/build/1234/"),
		WithBinding("hdr", StatusPending),
	)

	rec, err := w.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if rec.Status != StatusRunning {
		t.Errorf("Status = %q, want running", rec.Status)
	}

	b := w.Bindings()[0]
	if b.Status != StatusRunning || b.Transitions != 1 {
		t.Errorf("binding = %+v", b)
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.paths[0] != "/api/builds/1234/status" {
		t.Errorf("requested %q", srv.paths[0])
	}
}

func TestPoll_TwoSucceededTransitionsOnce(t *testing.T) {
	ts := httptest.NewServer(&statusServer{labels: []string{"succeeded"}})
	defer ts.Close()

	var transitions atomic.Int32
	w := newHeadless(t, ts.URL,
		WithBuildID("1"),
		WithTransitionCallback(func(Transition) { transitions.Add(1) }),
	)

	for i := 0; i < 2; i++ {
		if _, err := w.Poll(context.Background()); err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
	}
	if got := transitions.Load(); got != 1 {
		t.Errorf("transitions = %d, want 1", got)
	}
}

func TestPoll_MissingBuildID(t *testing.T) {
	srv := &statusServer{labels: []string{"running"}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	w := newHeadless(t, ts.URL, WithPagePath("/coprs/alice/demo/"))

	if _, err := w.Poll(context.Background()); !errors.Is(err, ErrMissingBuildID) {
		t.Errorf("error = %v, want ErrMissingBuildID", err)
	}
	if srv.hits.Load() != 0 {
		t.Errorf("hits = %d, want 0", srv.hits.Load())
	}
}

func TestPoll_FailureTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, ErrNetworkFailure},
		{"not found", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, ErrNetworkFailure},
		{"invalid json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}, ErrMalformedResponse},
		{"missing field", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"state": "running"}`))
		}, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			w := newHeadless(t, ts.URL, WithBuildID("1"), WithBinding("hdr", StatusRunning))
			if _, err := w.Poll(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			// the last known state survives the failure
			if b := w.Bindings()[0]; b.Status != StatusRunning || b.Transitions != 0 {
				t.Errorf("binding changed on failure: %+v", b)
			}
		})
	}
}

func TestPoll_ConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	w := newHeadless(t, url, WithBuildID("1"), WithTimeout(time.Second))
	if _, err := w.Poll(context.Background()); !errors.Is(err, ErrNetworkFailure) {
		t.Errorf("error = %v, want ErrNetworkFailure", err)
	}
}

func TestPoll_SendsHeadersAndNestedField(t *testing.T) {
	var mu sync.Mutex
	var cookie, requestID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		cookie = r.Header.Get("Cookie")
		requestID = r.Header.Get("X-Request-ID")
		mu.Unlock()
		_, _ = w.Write([]byte(`{"build": {"state": "failed"}}`))
	}))
	defer ts.Close()

	w := newHeadless(t, ts.URL,
		WithBuildID("9"),
		WithHeaders("Cookie", "session=abc"),
		WithStatusField("build.state"),
	)

	rec, err := w.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if rec.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", rec.Status)
	}

	mu.Lock()
	defer mu.Unlock()
	if cookie != "session=abc" {
		t.Errorf("Cookie = %q", cookie)
	}
	if requestID == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestReconcile_RejectsInvalidRecord(t *testing.T) {
	w := newHeadless(t, "https://copr.example.com")
	if _, err := w.Reconcile(StatusRecord{Status: "two words"}); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestStart_NoBuildIDIssuesNoRequest(t *testing.T) {
	srv := &statusServer{labels: []string{"running"}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	w := newHeadless(t, ts.URL,
		WithPagePath("/coprs/alice/demo/"),
		WithPollingInterval(20*time.Millisecond),
		WithPollOnStart(true),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_ = w.Start(ctx)

	if srv.hits.Load() != 0 {
		t.Errorf("hits = %d, want 0", srv.hits.Load())
	}
}

func TestStart_ServerErrorKeepsTicking(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	w := newHeadless(t, ts.URL,
		WithBuildID("1"),
		WithPollingInterval(20*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if hits.Load() < 2 {
		t.Errorf("hits = %d, want at least 2", hits.Load())
	}
}

func TestStart_AppliesPolledStatus(t *testing.T) {
	ts := httptest.NewServer(&statusServer{labels: []string{"pending", "running", "running", "succeeded"}})
	defer ts.Close()

	var mu sync.Mutex
	var seen []Status
	w := newHeadless(t, ts.URL,
		WithBuildID("1"),
		WithPollingInterval(20*time.Millisecond),
		WithPollOnStart(true),
		WithOverlapPolicy(OverlapSkip),
		WithTransitionCallback(func(tr Transition) {
			mu.Lock()
			seen = append(seen, tr.To)
			mu.Unlock()
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_ = w.Start(ctx)

	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusPending, StatusRunning, StatusSucceeded}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestStart_BlocksUntilContextCancelled(t *testing.T) {
	w := newHeadless(t, "https://copr.example.com")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("Start() returned early with error: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}

func TestStart_Twice(t *testing.T) {
	w := newHeadless(t, "https://copr.example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = w.Start(ctx)

	if err := w.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}
}

func TestStart_ServesDashboard(t *testing.T) {
	w, err := New(
		WithBaseURL("https://copr.example.com"),
		WithPort(19401),
		WithTitle("Build 7"),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://127.0.0.1:19401/health")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dashboard never came up: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}

func TestTransitionCallback_PanicRecovered(t *testing.T) {
	ts := httptest.NewServer(&statusServer{labels: []string{"running"}})
	defer ts.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var after atomic.Bool
	w, err := New(
		WithBaseURL(ts.URL),
		WithBuildID("1"),
		WithHeadless(),
		WithLogger(logger),
		WithTransitionCallback(func(Transition) { panic("boom") }),
		WithTransitionCallback(func(Transition) { after.Store(true) }),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := w.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if !after.Load() {
		t.Error("callback after the panicking one was not invoked")
	}
	out := buf.String()
	if !strings.Contains(out, "transition callback panicked") || !strings.Contains(out, "correlation_id") {
		t.Errorf("panic not logged: %s", out)
	}
}
