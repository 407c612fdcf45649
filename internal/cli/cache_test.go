package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestCacheClear(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	fc, err := openFileCache()
	if err != nil {
		t.Fatalf("openFileCache() error: %v", err)
	}
	if want := filepath.Join(xdg, appName); fc.Dir() != want {
		t.Fatalf("Dir() = %q, want %q", fc.Dir(), want)
	}

	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		if err := fc.Set(ctx, key, []byte(key), time.Hour); err != nil {
			t.Fatalf("Set(%q) error: %v", key, err)
		}
	}

	cmd := New(&testWriter{t}, LogInfo).cacheClearCommand()
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}

	if _, ok, _ := fc.Get(ctx, "a"); ok {
		t.Error("entry survived cache clear")
	}
	if n, err := fc.Clear(); err != nil || n != 0 {
		t.Errorf("second Clear() = %d, %v; want 0, nil", n, err)
	}
}

type testWriter struct{ t *testing.T }

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
