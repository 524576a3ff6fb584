package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// DocsHandler serves a plain endpoint catalog so operators can see the API
// surface without external tooling.
type DocsHandler struct{}

type docEntry struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Roles  string `json:"roles"`
	About  string `json:"about"`
}

func (h DocsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/docs", h.catalog)
}

func (h DocsHandler) catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []docEntry{
		{"GET", "/health", "public", "liveness and database probe"},
		{"GET", "/metrics", "public", "Prometheus metrics"},
		{"POST", "/auth/login", "public", "username/password login, returns token pair"},
		{"POST", "/auth/refresh", "public", "exchange refresh token for a new pair"},
		{"GET", "/auth/me", "any authenticated", "current account"},
		{"GET", "/citizens", "station roles", "search citizens in scope"},
		{"GET", "/citizens/{id}", "station roles", "citizen detail"},
		{"POST", "/citizens", "registrar, stationAdmin", "register a citizen (starts PENDING)"},
		{"PUT", "/citizens/{id}", "registrar, stationAdmin", "update citizen fields"},
		{"DELETE", "/citizens/{id}", "registrar, stationAdmin", "delete citizen without orders"},
		{"PATCH", "/citizens/{id}/verification", "stationAdmin, superAdmin", "set verification state"},
		{"GET", "/orders", "station roles", "search orders in scope"},
		{"GET", "/orders/{id}", "station roles", "order detail"},
		{"GET", "/orders/track", "station roles", "track orders by phone"},
		{"POST", "/orders", "registrar", "place an order for an approved citizen"},
		{"DELETE", "/orders/{id}", "registrar", "delete own PENDING order"},
		{"PATCH", "/orders/{id}/status", "stationAdmin, superAdmin", "set order status"},
		{"POST", "/orders/bulk-approve", "stationAdmin, superAdmin", "approve many orders"},
		{"POST", "/orders/bulk-reject", "stationAdmin, superAdmin", "reject many orders"},
		{"PATCH", "/orders/{id}/print/approve", "printer", "mark card printed"},
		{"PATCH", "/orders/{id}/print/reject", "printer", "reject print"},
		{"PATCH", "/orders/{id}/accept", "printer", "mark card handed over"},
		{"GET", "/reports/summary", "station roles", "aggregate counters for the caller's scope"},
		{"GET", "/reports/export", "station roles", "summary as csv or xlsx"},
		{"GET", "/reports/stations", "superAdmin, cross-station printer", "per-station breakdown"},
		{"GET", "/audit-logs", "stationAdmin, superAdmin", "recent audit entries"},
		{"GET", "/stations", "superAdmin", "list stations"},
		{"POST", "/stations", "superAdmin", "create station"},
		{"PUT", "/stations/{id}", "superAdmin", "update station"},
		{"DELETE", "/stations/{id}", "superAdmin", "soft-delete station"},
		{"GET", "/stations/{id}/images/{kind}", "station roles", "stamp or signature image"},
		{"POST", "/stations/{id}/images/{kind}", "superAdmin", "set stamp or signature image"},
		{"DELETE", "/stations/{id}/images/{kind}", "superAdmin", "clear stamp or signature image"},
		{"GET", "/users", "stationAdmin, superAdmin", "list users in scope"},
		{"GET", "/users/{id}", "stationAdmin, superAdmin", "user detail"},
		{"POST", "/users", "stationAdmin, superAdmin", "create user"},
		{"PUT", "/users/{id}", "stationAdmin, superAdmin", "update user"},
		{"PATCH", "/users/{id}/active", "stationAdmin, superAdmin", "activate or deactivate"},
		{"DELETE", "/users/{id}", "stationAdmin, superAdmin", "soft-delete user"},
		{"POST", "/uploads", "station roles", "begin a chunked upload session"},
		{"PUT", "/uploads/{token}/chunks/{index}", "station roles", "send one 512 KiB chunk"},
		{"POST", "/uploads/{token}/finalize", "station roles", "assemble and store the file"},
		{"DELETE", "/uploads/{token}", "station roles", "abort an upload session"},
		{"GET", "/files/{name}", "station roles", "download a stored file"},
	})
}
