package retention

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ImHoppy/excalidraw/internal/scene"
	"github.com/ImHoppy/excalidraw/internal/store"
)

func setupTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "excalidraw-retention-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create store: %v", err)
	}

	return s, func() {
		s.Close()
		os.RemoveAll(tmpDir)
	}
}

func putScene(t *testing.T, s *store.Store, id string) {
	t.Helper()
	_, err := s.PutScene(id, []scene.Element{{ID: "e1", Version: 1}})
	if err != nil {
		t.Fatalf("Failed to put scene: %v", err)
	}
}

func TestSweepDisabledByDefault(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	putScene(t, s, "keep")

	svc := New(s, DefaultConfig())
	svc.SweepNow()

	if _, err := s.GetScene("keep"); err != nil {
		t.Errorf("Scene should survive a disabled sweep: %v", err)
	}
}

func TestSweepDeletesIdleScenes(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	putScene(t, s, "stale")

	// Stored timestamps have second granularity, so wait past the boundary
	// before sweeping with a sub-second idle limit.
	time.Sleep(1100 * time.Millisecond)

	svc := New(s, Config{Interval: time.Hour, MaxIdle: time.Millisecond})
	svc.SweepNow()

	if _, err := s.GetScene("stale"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Idle scene should be swept, got %v", err)
	}
}

func TestSweepKeepsRecentScenes(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	putScene(t, s, "fresh")

	svc := New(s, Config{Interval: time.Hour, MaxIdle: 24 * time.Hour})
	svc.SweepNow()

	if _, err := s.GetScene("fresh"); err != nil {
		t.Errorf("Recent scene should survive the sweep: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	svc := New(s, Config{Interval: 10 * time.Millisecond, MaxIdle: 0})
	svc.Start()
	time.Sleep(30 * time.Millisecond)
	svc.Stop()
}
