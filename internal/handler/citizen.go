package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"idstation-backend/internal/domain"
	"idstation-backend/internal/repository"
	"idstation-backend/internal/server/authctx"
	"idstation-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

type CitizenHandler struct {
	Service service.CitizenService
}

// RegisterRoutes mounts the read surface shared by every station role.
func (h CitizenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/citizens", h.search)
	r.Get("/citizens/{id}", h.get)
}

// RegisterRegistrarRoutes mounts the write surface for registrars and
// station admins.
func (h CitizenHandler) RegisterRegistrarRoutes(r chi.Router) {
	r.Post("/citizens", h.create)
	r.Put("/citizens/{id}", h.update)
	r.Delete("/citizens/{id}", h.delete)
}

// RegisterAdminRoutes mounts the verification decision endpoint.
func (h CitizenHandler) RegisterAdminRoutes(r chi.Router) {
	r.Patch("/citizens/{id}/verification", h.setVerification)
}

func citizenJSON(c domain.Citizen) map[string]any {
	return map[string]any{
		"id":                c.ID,
		"stationId":         c.StationID,
		"regNumber":         c.RegNumber,
		"firstName":         c.FirstName,
		"middleName":        c.MiddleName,
		"lastName":          c.LastName,
		"fullName":          c.FullName(),
		"gender":            c.Gender,
		"birthDate":         c.BirthDate.Format(dateLayout),
		"birthPlace":        c.BirthPlace,
		"occupation":        c.Occupation,
		"phone":             c.Phone,
		"emergencyName":     c.EmergencyName,
		"emergencyPhone":    c.EmergencyPhone,
		"emergencyRelation": c.EmergencyRelation,
		"photoRef":          c.PhotoRef,
		"barcode":           c.Barcode,
		"isVerified":        string(c.IsVerified),
		"createdAt":         c.CreatedAt,
		"updatedAt":         c.UpdatedAt,
	}
}

func pageQuery(r *http.Request) (page, pageSize int, sortDesc bool) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	pageSize, _ = strconv.Atoi(q.Get("pageSize"))
	sortDesc = q.Get("sort") == "desc"
	return page, pageSize, sortDesc
}

func currentUser(w http.ResponseWriter, r *http.Request) (authctx.CurrentUser, bool) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return authctx.CurrentUser{}, false
	}
	return *user, true
}

func (h CitizenHandler) search(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, pageSize, sortDesc := pageQuery(r)
	items, total, err := h.Service.Search(r.Context(), user, repository.CitizenQuery{
		Term:     r.URL.Query().Get("q"),
		Page:     page,
		PageSize: pageSize,
		SortDesc: sortDesc,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, c := range items {
		resp = append(resp, citizenJSON(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": resp,
		"total": total,
	})
}

func (h CitizenHandler) get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	c, err := h.Service.GetByID(r.Context(), user, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, citizenJSON(*c))
}

type citizenRequest struct {
	RegNumber         string `json:"regNumber"`
	FirstName         string `json:"firstName"`
	MiddleName        string `json:"middleName"`
	LastName          string `json:"lastName"`
	Gender            string `json:"gender"`
	BirthDate         string `json:"birthDate"`
	BirthPlace        string `json:"birthPlace"`
	Occupation        string `json:"occupation"`
	Phone             string `json:"phone"`
	EmergencyName     string `json:"emergencyName"`
	EmergencyPhone    string `json:"emergencyPhone"`
	EmergencyRelation string `json:"emergencyRelation"`
	PhotoRef          string `json:"photoRef"`
}

func (req citizenRequest) fields() (service.CitizenFields, error) {
	var birthDate time.Time
	if req.BirthDate != "" {
		parsed, err := time.Parse(dateLayout, req.BirthDate)
		if err != nil {
			return service.CitizenFields{}, err
		}
		birthDate = parsed
	}
	return service.CitizenFields{
		RegNumber:         req.RegNumber,
		FirstName:         req.FirstName,
		MiddleName:        req.MiddleName,
		LastName:          req.LastName,
		Gender:            req.Gender,
		BirthDate:         birthDate,
		BirthPlace:        req.BirthPlace,
		Occupation:        req.Occupation,
		Phone:             req.Phone,
		EmergencyName:     req.EmergencyName,
		EmergencyPhone:    req.EmergencyPhone,
		EmergencyRelation: req.EmergencyRelation,
		PhotoRef:          req.PhotoRef,
	}, nil
}

func (h CitizenHandler) create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req citizenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	fields, err := req.fields()
	if err != nil {
		writeError(w, http.StatusBadRequest, "birthDate must be YYYY-MM-DD")
		return
	}
	c, err := h.Service.Create(r.Context(), user, fields)
	if err != nil {
		if repository.IsDuplicate(err) {
			writeError(w, http.StatusConflict, "regNumber already used")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, citizenJSON(*c))
}

func (h CitizenHandler) update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req citizenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	fields, err := req.fields()
	if err != nil {
		writeError(w, http.StatusBadRequest, "birthDate must be YYYY-MM-DD")
		return
	}
	c, err := h.Service.Update(r.Context(), user, id, fields)
	if err != nil {
		if repository.IsDuplicate(err) {
			writeError(w, http.StatusConflict, "regNumber already used")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, citizenJSON(*c))
}

func (h CitizenHandler) delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Service.Delete(r.Context(), user, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h CitizenHandler) setVerification(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	c, err := h.Service.SetVerification(r.Context(), user, id, domain.Status(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, citizenJSON(*c))
}
