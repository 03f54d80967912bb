package syncer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/ImHoppy/excalidraw/internal/blobcodec"
)

// fileConcurrency bounds how many file transfers run at once within a batch.
const fileConcurrency = 4

// File is one binary payload to upload, keyed by the caller's file id.
type File struct {
	ID       string
	Data     []byte
	MimeType string
}

// LoadedFile is one downloaded payload after decoding.
type LoadedFile struct {
	ID       string
	Data     []byte
	MimeType string
}

// SaveFilesResult is the per-file outcome of an upload batch. Saved maps the
// caller's file id to the blob id the store generated for it.
type SaveFilesResult struct {
	Saved   map[string]string
	Errored map[string]error
}

// LoadFilesResult is the per-file outcome of a download batch.
type LoadFilesResult struct {
	Loaded  map[string]LoadedFile
	Errored map[string]error
}

// SaveFiles uploads each file independently with bounded concurrency. One
// failing upload never fails the batch; it lands in Errored instead. The
// prefix names the scene the files belong to and is stored alongside each
// blob for attribution.
func (c *Client) SaveFiles(ctx context.Context, prefix string, files []File) *SaveFilesResult {
	result := &SaveFilesResult{
		Saved:   make(map[string]string),
		Errored: make(map[string]error),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, fileConcurrency)

	seen := make(map[string]bool, len(files))
	for _, file := range files {
		if file.ID == "" || seen[file.ID] {
			continue
		}
		seen[file.ID] = true

		wg.Add(1)
		go func(file File) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			blobID, err := c.uploadFile(ctx, prefix, file)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errored[file.ID] = err
			} else {
				result.Saved[file.ID] = blobID
			}
		}(file)
	}

	wg.Wait()
	return result
}

// LoadFiles downloads the given blob ids independently with bounded
// concurrency, deduplicating requested ids first. When decryptionKey is
// non-empty, each payload is opened with the blob codec; a per-file decode
// failure is recorded as errored, never raised to the batch caller.
func (c *Client) LoadFiles(ctx context.Context, ids []string, decryptionKey string) *LoadFilesResult {
	result := &LoadFilesResult{
		Loaded:  make(map[string]LoadedFile),
		Errored: make(map[string]error),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, fileConcurrency)

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			data, mediaType, err := c.downloadFile(ctx, id)
			if err == nil && decryptionKey != "" {
				data, err = blobcodec.Open(data, decryptionKey)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errored[id] = err
			} else {
				result.Loaded[id] = LoadedFile{ID: id, Data: data, MimeType: mediaType}
			}
		}(id)
	}

	wg.Wait()
	return result
}

func (c *Client) uploadFile(ctx context.Context, prefix string, file File) (string, error) {
	body, err := json.Marshal(map[string]string{
		"data":     base64.StdEncoding.EncodeToString(file.Data),
		"mimeType": file.MimeType,
		"prefix":   prefix,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload file %s: %w", file.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload file %s: unexpected status %d", file.ID, resp.StatusCode)
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("upload file %s: %w", file.ID, err)
	}
	return uploaded.ID, nil
}

func (c *Client) downloadFile(ctx context.Context, id string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/"+id, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", fmt.Errorf("download file %s: not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download file %s: unexpected status %d", id, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("download file %s: %w", id, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
