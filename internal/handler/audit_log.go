package handler

import (
	"net/http"
	"strconv"

	"idstation-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

type AuditLogHandler struct {
	Repo repository.AuditLogRepository
}

func (h AuditLogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/audit-logs", h.list)
}

func (h AuditLogHandler) list(w http.ResponseWriter, r *http.Request) {
	scope, _, ok := adminScope(r)
	if !ok {
		writeError(w, http.StatusForbidden, "station assignment required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.Repo.List(r.Context(), scope, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, e := range items {
		resp = append(resp, map[string]any{
			"id":        e.ID,
			"stationId": e.StationID,
			"actor":     e.Actor,
			"action":    e.Action,
			"entity":    e.Entity,
			"entityId":  e.EntityID,
			"detail":    e.Detail,
			"type":      string(e.Type),
			"loggedAt":  e.LoggedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
