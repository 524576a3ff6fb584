package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"idstation-backend/internal/upload"

	"github.com/go-chi/chi/v5"
)

// UploadHandler relays chunked file uploads (citizen photos, scans) through
// the upload manager.
type UploadHandler struct {
	Manager *upload.Manager
}

func (h UploadHandler) RegisterRoutes(r chi.Router) {
	r.Post("/uploads", h.begin)
	r.Put("/uploads/{token}/chunks/{index}", h.putChunk)
	r.Post("/uploads/{token}/finalize", h.finalize)
	r.Delete("/uploads/{token}", h.abort)
	r.Get("/files/{name}", h.serve)
}

func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, upload.ErrSessionNotFound), errors.Is(err, upload.ErrBadName):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, upload.ErrSessionClosed),
		errors.Is(err, upload.ErrDuplicateChunk),
		errors.Is(err, upload.ErrIncomplete):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, upload.ErrChunkIndex),
		errors.Is(err, upload.ErrChunkSize),
		errors.Is(err, upload.ErrChecksum):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h UploadHandler) begin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename    string `json:"filename"`
		TotalChunks int    `json:"totalChunks"`
		TotalSize   int64  `json:"totalSize"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	token, err := h.Manager.Begin(req.Filename, req.TotalChunks, req.TotalSize)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"token":     token,
		"chunkSize": upload.ChunkSize,
	})
}

func (h UploadHandler) putChunk(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chunk index")
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, upload.ChunkSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read chunk body")
		return
	}
	if err := h.Manager.PutChunk(token, index, data); err != nil {
		writeUploadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "index": index})
}

func (h UploadHandler) finalize(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req struct {
		SHA256 string `json:"sha256"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
	}
	name, err := h.Manager.Finalize(token, req.SHA256)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name": name,
		"url":  "/files/" + name,
	})
}

func (h UploadHandler) abort(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.Abort(chi.URLParam(r, "token")); err != nil {
		writeUploadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h UploadHandler) serve(w http.ResponseWriter, r *http.Request) {
	f, err := h.Manager.Open(chi.URLParam(r, "name"))
	if err != nil {
		writeUploadError(w, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
