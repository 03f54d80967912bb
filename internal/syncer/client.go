// Package syncer implements the participant side of scene synchronization:
// the optimistic fetch-reconcile-push save cycle against the scene store,
// plus batched file transfer. The room channel carries live edits, but this
// durable path is what actually guarantees convergence.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/ImHoppy/excalidraw/internal/scene"
)

// Session is the active room/connection/scene context. The version cache is
// scoped to it: entries represent "the version last confirmed persisted from
// this connection" and never outlive it.
type Session struct {
	RoomID       string
	ConnectionID string
	SceneID      string
}

// Client drives saves and loads for one participant. Saves for the same
// scene are serialized: two concurrent reconcile-then-push cycles would each
// read a stale remote snapshot and clobber the other's merge.
type Client struct {
	baseURL   string
	http      *http.Client
	reconcile scene.Reconciler

	mu       sync.Mutex
	session  *Session
	versions map[string]int64
	saving   map[string]*sync.Mutex
}

// New returns a sync client speaking to the persistence API at baseURL.
// A nil httpClient or reconciler selects the defaults.
func New(baseURL string, httpClient *http.Client, reconciler scene.Reconciler) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if reconciler == nil {
		reconciler = scene.Reconcile
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
		reconcile: reconciler,
		versions:  make(map[string]int64),
		saving:    make(map[string]*sync.Mutex),
	}
}

// StartSession binds the client to an active room and connection. Any cached
// versions from a previous session are discarded.
func (c *Client) StartSession(roomID, connectionID, sceneID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = &Session{RoomID: roomID, ConnectionID: connectionID, SceneID: sceneID}
	c.versions = make(map[string]int64)
}

// EndSession drops the session context, the version cache bound to it, and
// the per-scene save locks accumulated over its lifetime.
func (c *Client) EndSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	c.versions = make(map[string]int64)
	c.saving = make(map[string]*sync.Mutex)
}

// IsUpToDate reports whether the given collection matches the version last
// confirmed persisted from this connection. No cached entry means "assume
// dirty": when in doubt, attempt to save. The one exception is having no
// session at all, which reports up to date unconditionally since there is
// nothing to reconcile against.
func (c *Client) IsUpToDate(elements []scene.Element) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return true
	}
	cached, ok := c.versions[c.session.SceneID]
	if !ok {
		return false
	}
	return cached == scene.Version(elements)
}

// SaveResult reports a save attempt. Saved false means the save was a no-op
// (no session, or already up to date). When Saved is true, Elements holds
// the collection that was actually stored; reconciliation may have changed
// it, so the caller must adopt it as the new local working copy.
type SaveResult struct {
	Saved        bool
	Elements     []scene.Element
	SceneVersion int64
}

// Save pushes the local collection through a fetch-reconcile-push cycle.
// AppState is handed to the reconciler untouched.
func (c *Client) Save(ctx context.Context, elements []scene.Element, appState json.RawMessage) (*SaveResult, error) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil || sess.RoomID == "" || sess.ConnectionID == "" || sess.SceneID == "" {
		return &SaveResult{}, nil
	}

	lock := c.sceneLock(sess.SceneID)
	lock.Lock()
	defer lock.Unlock()

	if c.IsUpToDate(elements) {
		return &SaveResult{}, nil
	}

	remote, err := c.fetchScene(ctx, sess.SceneID)
	if err != nil {
		return nil, err
	}

	// Absence just means this is the first save of the scene.
	stored := elements
	if remote != nil {
		stored = c.reconcile(elements, remote.Elements, appState)
	}

	if err := c.putScene(ctx, sess.SceneID, stored); err != nil {
		return nil, err
	}

	version := scene.Version(stored)
	c.mu.Lock()
	if c.session == sess {
		c.versions[sess.SceneID] = version
	}
	c.mu.Unlock()

	return &SaveResult{Saved: true, Elements: stored, SceneVersion: version}, nil
}

// Load fetches and restores a scene. A missing scene is a normal outcome,
// reported by ok=false rather than an error.
func (c *Client) Load(ctx context.Context, sceneID string) (elements []scene.Element, ok bool, err error) {
	remote, err := c.fetchScene(ctx, sceneID)
	if err != nil {
		return nil, false, err
	}
	if remote == nil {
		return nil, false, nil
	}

	restored := scene.Restore(remote.Elements)

	c.mu.Lock()
	if c.session != nil {
		c.versions[sceneID] = remote.SceneVersion
	}
	c.mu.Unlock()

	return restored, true, nil
}

func (c *Client) sceneLock(sceneID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.saving[sceneID]
	if !ok {
		lock = &sync.Mutex{}
		c.saving[sceneID] = lock
	}
	return lock
}

// Wire calls against the persistence protocol.

type remoteScene struct {
	SceneVersion int64           `json:"sceneVersion"`
	Elements     []scene.Element `json:"elements"`
}

func (c *Client) fetchScene(ctx context.Context, sceneID string) (*remoteScene, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/scenes/"+sceneID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch scene %s: %w", sceneID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var remote remoteScene
		if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
			return nil, fmt.Errorf("fetch scene %s: %w", sceneID, err)
		}
		return &remote, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("fetch scene %s: unexpected status %d", sceneID, resp.StatusCode)
	}
}

func (c *Client) putScene(ctx context.Context, sceneID string, elements []scene.Element) error {
	body, err := json.Marshal(map[string]remoteScene{
		"data": {SceneVersion: scene.Version(elements), Elements: elements},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/scenes/"+sceneID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("store scene %s: %w", sceneID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("store scene %s: unexpected status %d", sceneID, resp.StatusCode)
	}
	return nil
}
