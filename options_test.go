package buildwatch

import (
	"testing"
	"time"
)

func TestOptions_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr bool
	}{
		{"https base", WithBaseURL("https://copr.example.com"), false},
		{"http base", WithBaseURL("http://localhost:9000"), false},
		{"ftp base", WithBaseURL("ftp://example.com"), true},
		{"base without host", WithBaseURL("https://"), true},
		{"nil page", WithPage(nil), true},
		{"empty build id", WithBuildID(""), true},
		{"zero interval", WithPollingInterval(0), true},
		{"negative timeout", WithTimeout(-time.Second), true},
		{"odd headers", WithHeaders("Cookie"), true},
		{"even headers", WithHeaders("Cookie", "session=abc"), false},
		{"empty status field", WithStatusField(""), true},
		{"unknown overlap", WithOverlapPolicy("queue"), true},
		{"skip overlap", WithOverlapPolicy(OverlapSkip), false},
		{"port zero", WithPort(0), true},
		{"port too high", WithPort(70000), true},
		{"nil logger", WithLogger(nil), true},
		{"empty binding id", WithBinding("", ""), true},
		{"invalid binding label", WithBinding("hdr", "two words"), true},
		{"empty element id", WithElement(""), true},
		{"nil theme", WithThemeService(nil), true},
		{"nil callback ignored", WithTransitionCallback(nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &watcherConfig{headers: make(map[string]string)}
			err := tt.opt(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("New() without base URL should fail")
	}
}

func TestNew_Defaults(t *testing.T) {
	w, err := New(WithBaseURL("https://copr.example.com/"), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if w.PollingInterval() != 10*time.Second {
		t.Errorf("PollingInterval() = %v, want 10s", w.PollingInterval())
	}
	if w.Port() != 8080 {
		t.Errorf("Port() = %d, want 8080", w.Port())
	}
	if w.Theme().Current() != ThemeLight {
		t.Errorf("theme = %q, want light", w.Theme().Current())
	}

	bindings := w.Bindings()
	if len(bindings) != 1 || bindings[0].ID != "build-status" {
		t.Errorf("bindings = %+v, want one build-status element", bindings)
	}
	if got := w.StatusURL("1234"); got != "https://copr.example.com/api/builds/1234/status" {
		t.Errorf("StatusURL() = %q", got)
	}
}

func TestNew_DuplicateBinding(t *testing.T) {
	_, err := New(
		WithBaseURL("https://copr.example.com"),
		WithBinding("hdr", ""),
		WithBinding("hdr", ""),
	)
	if err == nil {
		t.Error("duplicate binding ids should fail")
	}
}

func TestNew_ElementSeedsLabel(t *testing.T) {
	w, err := New(
		WithBaseURL("https://copr.example.com"),
		WithElement("hdr", "card", "build-running"),
		WithBinding("side", StatusPending),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	bindings := w.Bindings()
	if bindings[0].Status != StatusRunning {
		t.Errorf("hdr status = %q, want running", bindings[0].Status)
	}
	if bindings[1].Status != StatusPending || bindings[1].Title != "Build waiting in queue" {
		t.Errorf("side binding = %+v", bindings[1])
	}
}

func TestResolveBuildID(t *testing.T) {
	page := NewPage("/coprs/alice/demo/")

	w, err := New(WithBaseURL("https://copr.example.com"), WithPage(page))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w.ResolveBuildID(); ok {
		t.Error("no build id expected before navigation")
	}

	page.Navigate("/coprs/alice/demo/build/88/")
	if id, ok := w.ResolveBuildID(); !ok || id != "88" {
		t.Errorf("ResolveBuildID() = (%q, %v), want (88, true)", id, ok)
	}

	pinned, err := New(WithBaseURL("https://copr.example.com"), WithPage(page), WithBuildID("7"))
	if err != nil {
		t.Fatal(err)
	}
	if id, _ := pinned.ResolveBuildID(); id != "7" {
		t.Errorf("pinned id = %q, want 7", id)
	}
}

func TestNew_DefaultTimeoutShorterThanInterval(t *testing.T) {
	w, err := New(WithBaseURL("https://copr.example.com"), WithBuildID("1"))
	if err != nil {
		t.Fatal(err)
	}

	target, ok := w.resolveTarget()
	if !ok {
		t.Fatal("resolveTarget() ok = false")
	}
	if target.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", target.Timeout)
	}
	if target.Timeout >= w.PollingInterval() {
		t.Errorf("timeout %v must be shorter than interval %v", target.Timeout, w.PollingInterval())
	}
}

func TestWithOverlapPolicy_EmptyMeansCancel(t *testing.T) {
	cfg := &watcherConfig{}
	if err := WithOverlapPolicy("")(cfg); err != nil {
		t.Fatalf("error = %v", err)
	}
	if cfg.overlap != OverlapCancel {
		t.Errorf("overlap = %q, want cancel", cfg.overlap)
	}
}
