package handler

import (
	"encoding/json"
	"net/http"

	"idstation-backend/internal/domain"
	"idstation-backend/internal/repository"
	"idstation-backend/internal/server/authctx"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

// UserHandler manages operator accounts. superAdmin works across stations;
// stationAdmin is limited to accounts in its own station.
type UserHandler struct {
	Repo repository.UserRepository
}

func (h UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.list)
	r.Get("/users/{id}", h.get)
	r.Post("/users", h.create)
	r.Put("/users/{id}", h.update)
	r.Patch("/users/{id}/active", h.setActive)
	r.Delete("/users/{id}", h.delete)
}

func userJSON(u domain.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"stationId": u.StationID,
		"username":  u.Username,
		"phone":     u.Phone,
		"role":      string(u.Role),
		"active":    u.Active,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}

// adminScope returns the station filter for the calling admin. superAdmin and
// developer see all stations; stationAdmin only its own.
func adminScope(r *http.Request) (*int64, *authctx.CurrentUser, bool) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		return nil, nil, false
	}
	if user.Is(domain.RoleSuperAdmin, domain.RoleDeveloper) {
		return nil, user, true
	}
	if user.StationID == nil {
		return nil, nil, false
	}
	return user.StationID, user, true
}

func (h UserHandler) list(w http.ResponseWriter, r *http.Request) {
	scope, _, ok := adminScope(r)
	if !ok {
		writeError(w, http.StatusForbidden, "station assignment required")
		return
	}
	items, err := h.Repo.List(r.Context(), scope, 200)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, u := range items {
		resp = append(resp, userJSON(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h UserHandler) get(w http.ResponseWriter, r *http.Request) {
	scope, _, ok := adminScope(r)
	if !ok {
		writeError(w, http.StatusForbidden, "station assignment required")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	u, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if scope != nil && (u.StationID == nil || *u.StationID != *scope) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, userJSON(*u))
}

type userRequest struct {
	Username  string `json:"username"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	StationID *int64 `json:"stationId"`
	Password  string `json:"password"`
}

// resolveRole validates the requested role against the caller. A stationAdmin
// may only manage station-scoped roles and only within its own station.
func resolveRole(req userRequest, scope *int64) (domain.UserRole, *int64, string) {
	role, ok := domain.NormalizeRole(req.Role)
	if !ok {
		return "", nil, "unknown role"
	}
	stationID := req.StationID
	if scope != nil {
		if role == domain.RoleSuperAdmin || role == domain.RoleDeveloper {
			return "", nil, "role not allowed"
		}
		stationID = scope
	}
	if role != domain.RoleSuperAdmin && role != domain.RoleDeveloper && stationID == nil {
		return "", nil, "stationId is required for station roles"
	}
	return role, stationID, ""
}

func (h UserHandler) create(w http.ResponseWriter, r *http.Request) {
	scope, _, ok := adminScope(r)
	if !ok {
		writeError(w, http.StatusForbidden, "station assignment required")
		return
	}
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	role, stationID, msg := resolveRole(req, scope)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	u, err := h.Repo.Create(r.Context(), repository.CreateUserParams{
		Username:     req.Username,
		Phone:        req.Phone,
		Role:         role,
		StationID:    stationID,
		PasswordHash: string(hash),
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			writeError(w, http.StatusConflict, "username already used")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userJSON(*u))
}

func (h UserHandler) update(w http.ResponseWriter, r *http.Request) {
	scope, _, ok := adminScope(r)
	if !ok {
		writeError(w, http.StatusForbidden, "station assignment required")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if scope != nil && (existing.StationID == nil || *existing.StationID != *scope) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	role, stationID, msg := resolveRole(req, scope)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	var hash *string
	if req.Password != "" {
		raw, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s := string(raw)
		hash = &s
	}
	u, err := h.Repo.Update(r.Context(), id, repository.UpdateUserParams{
		Phone:        req.Phone,
		Role:         role,
		StationID:    stationID,
		PasswordHash: hash,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userJSON(*u))
}

func (h UserHandler) setActive(w http.ResponseWriter, r *http.Request) {
	scope, caller, ok := adminScope(r)
	if !ok {
		writeError(w, http.StatusForbidden, "station assignment required")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if caller.ID == id {
		writeError(w, http.StatusUnprocessableEntity, "cannot change own account state")
		return
	}
	existing, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if scope != nil && (existing.StationID == nil || *existing.StationID != *scope) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.Repo.SetActive(r.Context(), id, req.Active); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "active": req.Active})
}

func (h UserHandler) delete(w http.ResponseWriter, r *http.Request) {
	scope, caller, ok := adminScope(r)
	if !ok {
		writeError(w, http.StatusForbidden, "station assignment required")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if caller.ID == id {
		writeError(w, http.StatusUnprocessableEntity, "cannot delete own account")
		return
	}
	existing, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if scope != nil && (existing.StationID == nil || *existing.StationID != *scope) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
