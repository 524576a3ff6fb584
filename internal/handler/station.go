package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"idstation-backend/internal/domain"
	"idstation-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

// StationHandler is superAdmin-only; the router gates the whole group.
type StationHandler struct {
	Repo repository.StationRepository
}

func (h StationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stations", h.list)
	r.Get("/stations/{id}", h.get)
	r.Post("/stations", h.create)
	r.Put("/stations/{id}", h.update)
	r.Delete("/stations/{id}", h.delete)
	r.Post("/stations/{id}/images/{kind}", h.uploadImage)
	r.Delete("/stations/{id}/images/{kind}", h.clearImage)
}

// RegisterImageRoutes serves stamp/signature images to every station role;
// the printable card layouts embed them.
func (h StationHandler) RegisterImageRoutes(r chi.Router) {
	r.Get("/stations/{id}/images/{kind}", h.getImage)
}

func stationJSON(s domain.Station) map[string]any {
	return map[string]any{
		"id":        s.ID,
		"code":      s.Code,
		"nameEn":    s.NameEn,
		"nameAm":    s.NameAm,
		"adminName": s.AdminName,
		"createdAt": s.CreatedAt,
		"updatedAt": s.UpdatedAt,
	}
}

func (h StationHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.Repo.List(r.Context(), 500)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, s := range items {
		resp = append(resp, stationJSON(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h StationHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stationJSON(*s))
}

type stationRequest struct {
	Code      string `json:"code"`
	NameEn    string `json:"nameEn"`
	NameAm    string `json:"nameAm"`
	AdminName string `json:"adminName"`
}

func (req stationRequest) validate() string {
	if req.Code == "" {
		return "code is required"
	}
	if req.NameEn == "" {
		return "nameEn is required"
	}
	return ""
}

func (h StationHandler) create(w http.ResponseWriter, r *http.Request) {
	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	s, err := h.Repo.Create(r.Context(), domain.Station{
		Code:      req.Code,
		NameEn:    req.NameEn,
		NameAm:    req.NameAm,
		AdminName: req.AdminName,
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			writeError(w, http.StatusConflict, "station code already used")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stationJSON(*s))
}

func (h StationHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	s, err := h.Repo.Update(r.Context(), id, domain.Station{
		Code:      req.Code,
		NameEn:    req.NameEn,
		NameAm:    req.NameAm,
		AdminName: req.AdminName,
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			writeError(w, http.StatusConflict, "station code already used")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stationJSON(*s))
}

func (h StationHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func imageKind(r *http.Request) (string, bool) {
	kind := chi.URLParam(r, "kind")
	if kind != "stamp" && kind != "signature" {
		return "", false
	}
	return kind, true
}

func (h StationHandler) getImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	kind, ok := imageKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be stamp or signature")
		return
	}
	bytes, mime, err := h.Repo.GetImage(r.Context(), id, kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if mime == "" {
		mime = http.DetectContentType(bytes)
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bytes)
}

func (h StationHandler) uploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	kind, ok := imageKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be stamp or signature")
		return
	}
	if err := r.ParseMultipartForm(6 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	limited := io.LimitReader(file, 5<<20)
	bytes, err := io.ReadAll(limited)
	if err != nil || len(bytes) == 0 {
		writeError(w, http.StatusBadRequest, "file is empty")
		return
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(bytes)
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "image/jpg" {
		mime = "image/jpeg"
	}
	if mime != "image/png" && mime != "image/jpeg" {
		writeError(w, http.StatusBadRequest, "format must be PNG or JPG")
		return
	}
	if err := h.Repo.SetImage(r.Context(), id, kind, bytes, mime); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h StationHandler) clearImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	kind, ok := imageKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be stamp or signature")
		return
	}
	if err := h.Repo.ClearImage(r.Context(), id, kind); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}
