package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ImHoppy/excalidraw/internal/scene"
	"github.com/ImHoppy/excalidraw/internal/store"
	"github.com/ImHoppy/excalidraw/internal/ws"
)

type API struct {
	hub   *ws.Hub
	store *store.Store
}

func New(hub *ws.Hub, sceneStore *store.Store) *API {
	return &API{
		hub:   hub,
		store: sceneStore,
	}
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	scenes, files, err := a.store.Stats()
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to read store stats")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"scenes":    scenes,
		"files":     files,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"active_rooms":   a.hub.RoomCount(),
		"active_clients": a.hub.ClientCount(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	if scenes, files, err := a.store.Stats(); err == nil {
		stats["total_scenes"] = scenes
		stats["total_files"] = files
	}

	jsonResponse(w, http.StatusOK, stats)
}

// Scene handlers

type sceneData struct {
	SceneVersion int64           `json:"sceneVersion"`
	Elements     []scene.Element `json:"elements"`
}

type putSceneRequest struct {
	Data sceneData `json:"data"`
}

func (a *API) GetSceneHandler(w http.ResponseWriter, r *http.Request, sceneID string) {
	snap, err := a.store.GetScene(sceneID)
	if errors.Is(err, store.ErrNotFound) {
		errorResponse(w, http.StatusNotFound, "Scene not found")
		return
	}
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to get scene")
		return
	}

	jsonResponse(w, http.StatusOK, sceneData{
		SceneVersion: snap.SceneVersion,
		Elements:     snap.Elements,
	})
}

func (a *API) PutSceneHandler(w http.ResponseWriter, r *http.Request, sceneID string) {
	var req putSceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := a.store.PutScene(sceneID, req.Data.Elements)
	if errors.Is(err, store.ErrInvalidInput) {
		errorResponse(w, http.StatusBadRequest, "Elements payload is required")
		return
	}
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to store scene")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"id":        result.ID,
		"success":   true,
		"updatedAt": result.UpdatedAt,
	})
}

func (a *API) CreateSceneHandler(w http.ResponseWriter, r *http.Request) {
	var req putSceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := a.store.PutScene(store.NewSceneID(), req.Data.Elements)
	if errors.Is(err, store.ErrInvalidInput) {
		errorResponse(w, http.StatusBadRequest, "Elements payload is required")
		return
	}
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to store scene")
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]interface{}{
		"id":        result.ID,
		"success":   true,
		"createdAt": result.CreatedAt,
	})
}

func (a *API) DeleteSceneHandler(w http.ResponseWriter, r *http.Request, sceneID string) {
	removed, err := a.store.DeleteScene(sceneID)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to delete scene")
		return
	}
	if !removed {
		errorResponse(w, http.StatusNotFound, "Scene not found")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (a *API) ListScenesHandler(w http.ResponseWriter, r *http.Request) {
	scenes, err := a.store.ListScenes()
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to list scenes")
		return
	}
	if scenes == nil {
		scenes = []store.Summary{}
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"scenes": scenes,
		"total":  len(scenes),
	})
}

func (a *API) ScenesRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/scenes")

	// /scenes or /scenes/
	if path == "" || path == "/" {
		switch r.Method {
		case http.MethodGet:
			a.ListScenesHandler(w, r)
		case http.MethodPost:
			a.CreateSceneHandler(w, r)
		default:
			errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	// /scenes/{id}
	sceneID := strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/")
	if sceneID == "" {
		errorResponse(w, http.StatusBadRequest, "Scene ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.GetSceneHandler(w, r, sceneID)
	case http.MethodPut:
		a.PutSceneHandler(w, r, sceneID)
	case http.MethodDelete:
		a.DeleteSceneHandler(w, r, sceneID)
	default:
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// File handlers

type uploadFileRequest struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
	Prefix   string `json:"prefix"`
}

func (a *API) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	var req uploadFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payload, urlMediaType, err := decodeFilePayload(req.Data)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid file payload")
		return
	}

	mediaType := req.MimeType
	if mediaType == "" {
		mediaType = urlMediaType
	}

	id, err := a.store.PutBlob(payload, mediaType, req.Prefix)
	if errors.Is(err, store.ErrInvalidInput) {
		errorResponse(w, http.StatusBadRequest, "File payload is required")
		return
	}
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"success": true,
		"url":     fmt.Sprintf("/files/%s", id),
	})
}

func (a *API) GetFileHandler(w http.ResponseWriter, r *http.Request, fileID string) {
	data, mediaType, err := a.store.GetBlob(fileID)
	if errors.Is(err, store.ErrNotFound) {
		errorResponse(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to get file")
		return
	}

	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing file response: %v", err)
	}
}

func (a *API) FilesRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/files")

	// /files or /files/
	if path == "" || path == "/" {
		if r.Method != http.MethodPost {
			errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		a.UploadFileHandler(w, r)
		return
	}

	// /files/{id}
	fileID := strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/")
	if fileID == "" {
		errorResponse(w, http.StatusBadRequest, "File ID is required")
		return
	}

	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	a.GetFileHandler(w, r, fileID)
}

// decodeFilePayload accepts either a base64 string or a full data URL.
// Data URLs are decoded here so downloads always transmit raw bytes.
func decodeFilePayload(data string) ([]byte, string, error) {
	mediaType := ""
	if strings.HasPrefix(data, "data:") {
		header, body, found := strings.Cut(data, ",")
		if !found {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		mediaType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		data = body
	}

	payload, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", err
	}
	return payload, mediaType, nil
}
