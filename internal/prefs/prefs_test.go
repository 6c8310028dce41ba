package prefs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// store is the contract shared by every implementation.
type store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

func exerciseStore(t *testing.T, s store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "oreon-theme"); err != nil || ok {
		t.Fatalf("Get() on empty store = ok %v, err %v; want missing", ok, err)
	}

	if err := s.Set(ctx, "oreon-theme", "dark"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := s.Get(ctx, "oreon-theme")
	if err != nil || !ok || v != "dark" {
		t.Fatalf("Get() = %q, %v, %v; want dark, true, nil", v, ok, err)
	}

	if err := s.Set(ctx, "oreon-theme", "light"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, _, _ = s.Get(ctx, "oreon-theme")
	if v != "light" {
		t.Errorf("Get() after overwrite = %q, want light", v)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "prefs.yaml"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	exerciseStore(t, fs)
}

func TestFileStore_EmptyPath(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("NewFileStore(\"\") should fail")
	}
}

func TestFileStore_KeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	if err := os.WriteFile(path, []byte("other: value\n"), 0o644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := fs.Set(context.Background(), "oreon-theme", "dark"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "other: value") {
		t.Errorf("file lost existing key:\n%s", content)
	}
	if !strings.Contains(content, "oreon-theme: dark") {
		t.Errorf("file missing new key:\n%s", content)
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	first, _ := NewFileStore(path)
	if err := first.Set(context.Background(), "oreon-theme", "dark"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	second, _ := NewFileStore(path)
	v, ok, err := second.Get(context.Background(), "oreon-theme")
	if err != nil || !ok || v != "dark" {
		t.Errorf("Get() from new instance = %q, %v, %v; want dark, true, nil", v, ok, err)
	}
}

func TestFileStore_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	if err := os.WriteFile(path, []byte("- not\n- a mapping\n"), 0o644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	fs, _ := NewFileStore(path)
	if _, _, err := fs.Get(context.Background(), "oreon-theme"); err == nil {
		t.Error("Get() on malformed file should fail")
	}
}

func TestNewRedisStore_EmptyAddr(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), RedisOptions{}); err == nil {
		t.Error("NewRedisStore() with empty address should fail")
	}
}

// TestRedisStore needs a live server: BUILDWATCH_REDIS_ADDR=localhost:6379 go test ./internal/prefs/...
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("BUILDWATCH_REDIS_ADDR")
	if addr == "" {
		t.Skip("BUILDWATCH_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rs, err := NewRedisStore(ctx, RedisOptions{
		Addr:   addr,
		Prefix: "buildwatch-test:" + time.Now().Format("150405.000000") + ":",
	})
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	defer func() { _ = rs.Close() }()

	exerciseStore(t, rs)
}
