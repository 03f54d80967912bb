package store

import (
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/ImHoppy/excalidraw/internal/scene"
)

// Store failures the caller is expected to branch on. ErrNotFound is a
// normal outcome for get/delete on an unknown id, never an error to log.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Store is a last-write-wins key/value layer for scene snapshots and
// uploaded blobs. It performs no reconciliation: callers merge before
// overwriting.
type Store struct {
	db *sql.DB
}

// Snapshot is the durable representation of one scene.
type Snapshot struct {
	ID           string
	Elements     []scene.Element
	SceneVersion int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary is the listing view of a stored scene.
type Summary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	DataSize  int       `json:"dataSize"`
	Checksum  string    `json:"checksum"`
}

// PutResult reports the outcome of a write.
type PutResult struct {
	ID           string
	SceneVersion int64
	Created      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	log.Printf("Store initialized at %s", dbPath)
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS scenes (
		id TEXT PRIMARY KEY,
		elements BLOB NOT NULL,
		scene_version INTEGER NOT NULL,
		checksum TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_scenes_updated_at ON scenes(updated_at DESC);

	CREATE TABLE IF NOT EXISTS blobs (
		id TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		media_type TEXT NOT NULL DEFAULT 'application/octet-stream',
		namespace TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NewSceneID generates an id for scenes created without one.
func NewSceneID() string {
	return uuid.NewString()
}

// Scene operations

func (s *Store) GetScene(id string) (*Snapshot, error) {
	row := s.db.QueryRow(
		"SELECT id, elements, scene_version, created_at, updated_at FROM scenes WHERE id = ?",
		id,
	)

	var snap Snapshot
	var raw []byte
	err := row.Scan(&snap.ID, &raw, &snap.SceneVersion, &snap.CreatedAt, &snap.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	elements, err := scene.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	snap.Elements = elements
	return &snap, nil
}

// PutScene creates or unconditionally overwrites a snapshot. The stored
// version and checksum are derived from the element contents.
func (s *Store) PutScene(id string, elements []scene.Element) (*PutResult, error) {
	if id == "" || len(elements) == 0 {
		return nil, ErrInvalidInput
	}

	raw, err := scene.Marshal(elements)
	if err != nil {
		return nil, err
	}
	version := scene.Version(elements)
	checksum := scene.Checksum(elements)

	var exists bool
	if err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM scenes WHERE id = ?)", id).Scan(&exists); err != nil {
		return nil, err
	}

	_, err = s.db.Exec(`
		INSERT INTO scenes (id, elements, scene_version, checksum, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			elements = excluded.elements,
			scene_version = excluded.scene_version,
			checksum = excluded.checksum,
			updated_at = CURRENT_TIMESTAMP
	`, id, raw, version, checksum)
	if err != nil {
		return nil, err
	}

	result := &PutResult{ID: id, SceneVersion: version, Created: !exists}
	err = s.db.QueryRow(
		"SELECT created_at, updated_at FROM scenes WHERE id = ?",
		id,
	).Scan(&result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteScene removes a snapshot and reports whether anything was removed.
func (s *Store) DeleteScene(id string) (bool, error) {
	result, err := s.db.Exec("DELETE FROM scenes WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListScenes returns diagnostics summaries for every stored scene, most
// recently updated first.
func (s *Store) ListScenes() ([]Summary, error) {
	rows, err := s.db.Query(
		"SELECT id, created_at, updated_at, LENGTH(elements), checksum FROM scenes ORDER BY updated_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.CreatedAt, &sum.UpdatedAt, &sum.DataSize, &sum.Checksum); err != nil {
			return nil, err
		}
		scenes = append(scenes, sum)
	}
	return scenes, rows.Err()
}

// Blob operations

// PutBlob stores an immutable binary payload under a generated id. Blobs
// are never deduplicated; every upload gets a fresh id.
func (s *Store) PutBlob(data []byte, mediaType, namespace string) (string, error) {
	if len(data) == 0 {
		return "", ErrInvalidInput
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	id := ulid.Make().String()
	_, err := s.db.Exec(
		"INSERT INTO blobs (id, data, media_type, namespace) VALUES (?, ?, ?, ?)",
		id, data, mediaType, namespace,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetBlob(id string) ([]byte, string, error) {
	row := s.db.QueryRow("SELECT data, media_type FROM blobs WHERE id = ?", id)

	var data []byte
	var mediaType string
	err := row.Scan(&data, &mediaType)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return data, mediaType, nil
}

// Stats

func (s *Store) Stats() (scenes, blobs int, err error) {
	if err = s.db.QueryRow("SELECT COUNT(*) FROM scenes").Scan(&scenes); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRow("SELECT COUNT(*) FROM blobs").Scan(&blobs); err != nil {
		return 0, 0, err
	}
	return scenes, blobs, nil
}
