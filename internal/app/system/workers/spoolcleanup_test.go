package workers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestSpoolCleanup_Sweep(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	touch(t, filepath.Join(dir, "idea-old"), now.Add(-2*time.Hour))
	touch(t, filepath.Join(dir, "idea-fresh"), now.Add(-time.Minute))
	touch(t, filepath.Join(dir, "other-old"), now.Add(-2*time.Hour))
	if err := os.Mkdir(filepath.Join(dir, "idea-dir"), 0o700); err != nil {
		t.Fatal(err)
	}

	w := NewSpoolCleanup(dir, "idea-", time.Minute, time.Hour, zap.NewNop())
	w.now = func() time.Time { return now }

	if n := w.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}

	for name, want := range map[string]bool{
		"idea-old":   false,
		"idea-fresh": true,
		"other-old":  true,
		"idea-dir":   true,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		if exists := err == nil; exists != want {
			t.Errorf("%s exists = %v, want %v", name, exists, want)
		}
	}
}

func TestSpoolCleanup_MissingDir(t *testing.T) {
	w := NewSpoolCleanup(filepath.Join(t.TempDir(), "gone"), "idea-", time.Minute, time.Hour, zap.NewNop())
	if n := w.Sweep(); n != 0 {
		t.Errorf("Sweep removed %d from a missing dir", n)
	}
}

func TestSpoolCleanup_StartStop(t *testing.T) {
	w := NewSpoolCleanup(t.TempDir(), "idea-", time.Millisecond, time.Hour, zap.NewNop())
	w.Start()
	time.Sleep(5 * time.Millisecond)
	w.Stop()
}
