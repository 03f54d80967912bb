package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ImHoppy/excalidraw/internal/scene"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "excalidraw-store-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	s, err := New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create store: %v", err)
	}

	cleanup := func() {
		s.Close()
		os.RemoveAll(tmpDir)
	}

	return s, cleanup
}

func testElements() []scene.Element {
	return []scene.Element{
		{ID: "e1", Type: "rectangle", Version: 1, Nonce: 100},
		{ID: "e2", Type: "arrow", Version: 2, Nonce: 200},
	}
}

func TestPutAndGetScene(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	elements := testElements()
	result, err := s.PutScene("abc", elements)
	if err != nil {
		t.Fatalf("Failed to put scene: %v", err)
	}
	if !result.Created {
		t.Error("First put should report created")
	}
	if result.SceneVersion != scene.Version(elements) {
		t.Errorf("Expected version %d, got %d", scene.Version(elements), result.SceneVersion)
	}

	snap, err := s.GetScene("abc")
	if err != nil {
		t.Fatalf("Failed to get scene: %v", err)
	}
	if len(snap.Elements) != 2 || snap.Elements[0].ID != "e1" {
		t.Errorf("Round trip mismatch: %+v", snap.Elements)
	}
	if snap.SceneVersion != result.SceneVersion {
		t.Errorf("Version mismatch: %d vs %d", snap.SceneVersion, result.SceneVersion)
	}
}

func TestPutSceneOverwritesUnconditionally(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	first, err := s.PutScene("abc", testElements())
	if err != nil {
		t.Fatalf("Failed to put scene: %v", err)
	}

	replacement := []scene.Element{{ID: "e9", Type: "text", Version: 9, Nonce: 1}}
	second, err := s.PutScene("abc", replacement)
	if err != nil {
		t.Fatalf("Failed to overwrite scene: %v", err)
	}
	if second.Created {
		t.Error("Overwrite should not report created")
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("Overwrite should preserve the original createdAt")
	}

	snap, err := s.GetScene("abc")
	if err != nil {
		t.Fatalf("Failed to get scene: %v", err)
	}
	if len(snap.Elements) != 1 || snap.Elements[0].ID != "e9" {
		t.Errorf("Expected last write to win, got %+v", snap.Elements)
	}
}

func TestPutSceneRejectsEmptyElements(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := s.PutScene("abc", nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := s.PutScene("", testElements()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestGetSceneNotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := s.GetScene("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteScene(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := s.PutScene("abc", testElements()); err != nil {
		t.Fatalf("Failed to put scene: %v", err)
	}

	removed, err := s.DeleteScene("abc")
	if err != nil {
		t.Fatalf("Failed to delete scene: %v", err)
	}
	if !removed {
		t.Error("Delete of an existing scene should report true")
	}

	removed, err = s.DeleteScene("abc")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if removed {
		t.Error("Delete of a missing scene should report false")
	}

	if _, err := s.GetScene("abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deleted scene should be gone, got %v", err)
	}
}

func TestListScenes(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	for _, id := range []string{"s1", "s2", "s3"} {
		if _, err := s.PutScene(id, testElements()); err != nil {
			t.Fatalf("Failed to put scene %s: %v", id, err)
		}
	}

	scenes, err := s.ListScenes()
	if err != nil {
		t.Fatalf("Failed to list scenes: %v", err)
	}
	if len(scenes) != 3 {
		t.Fatalf("Expected 3 scenes, got %d", len(scenes))
	}
	for _, summary := range scenes {
		if summary.DataSize <= 0 {
			t.Errorf("Scene %s should report its serialized size", summary.ID)
		}
		if summary.Checksum == "" {
			t.Errorf("Scene %s should report a checksum", summary.ID)
		}
	}
}

func TestBlobRoundTrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	id, err := s.PutBlob([]byte("hello"), "text/plain", "scene-abc")
	if err != nil {
		t.Fatalf("Failed to put blob: %v", err)
	}
	if id == "" {
		t.Fatal("Blob id should be generated")
	}

	data, mediaType, err := s.GetBlob(id)
	if err != nil {
		t.Fatalf("Failed to get blob: %v", err)
	}
	if string(data) != "hello" || mediaType != "text/plain" {
		t.Errorf("Blob round trip mismatch: %q %q", data, mediaType)
	}
}

func TestBlobsAreNotDeduplicated(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	id1, err := s.PutBlob([]byte("same"), "text/plain", "")
	if err != nil {
		t.Fatalf("Failed to put blob: %v", err)
	}
	id2, err := s.PutBlob([]byte("same"), "text/plain", "")
	if err != nil {
		t.Fatalf("Failed to put blob: %v", err)
	}
	if id1 == id2 {
		t.Error("Identical payloads should still get distinct ids")
	}
}

func TestBlobErrors(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := s.PutBlob(nil, "text/plain", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := s.GetBlob("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStats(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := s.PutScene("s1", testElements()); err != nil {
		t.Fatalf("Failed to put scene: %v", err)
	}
	if _, err := s.PutBlob([]byte("x"), "", ""); err != nil {
		t.Fatalf("Failed to put blob: %v", err)
	}
	if _, err := s.PutBlob([]byte("y"), "", ""); err != nil {
		t.Fatalf("Failed to put blob: %v", err)
	}

	scenes, blobs, err := s.Stats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if scenes != 1 || blobs != 2 {
		t.Errorf("Expected 1 scene and 2 blobs, got %d and %d", scenes, blobs)
	}
}
