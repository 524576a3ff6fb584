package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"idstation-backend/internal/domain"
	"idstation-backend/internal/repository"
	"idstation-backend/internal/server/authctx"
	"idstation-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	Service *service.OrderService
}

// RegisterRoutes mounts the read surface shared by every station role.
func (h OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.search)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/track", h.track)
}

// RegisterRegistrarRoutes mounts order placement and withdrawal.
func (h OrderHandler) RegisterRegistrarRoutes(r chi.Router) {
	r.Post("/orders", h.create)
	r.Delete("/orders/{id}", h.delete)
}

// RegisterAdminRoutes mounts the approval decision endpoints.
func (h OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Patch("/orders/{id}/status", h.setStatus)
	r.Post("/orders/bulk-approve", h.bulkApprove)
	r.Post("/orders/bulk-reject", h.bulkReject)
}

// RegisterPrinterRoutes mounts the print and hand-over endpoints.
func (h OrderHandler) RegisterPrinterRoutes(r chi.Router) {
	r.Patch("/orders/{id}/print/approve", h.approvePrint)
	r.Patch("/orders/{id}/print/reject", h.rejectPrint)
	r.Patch("/orders/{id}/accept", h.accept)
}

func orderJSON(o domain.Order) map[string]any {
	resp := map[string]any{
		"id":               o.ID,
		"stationId":        o.StationID,
		"citizenId":        o.CitizenID,
		"registrarId":      o.RegistrarID,
		"printerId":        o.PrinterID,
		"orderNumber":      o.OrderNumber,
		"orderType":        o.OrderType,
		"orderStatus":      string(o.OrderStatus),
		"isPrinted":        string(o.IsPrinted),
		"isAccepted":       string(o.IsAccepted),
		"paymentMethod":    o.PaymentMethod,
		"paymentReference": o.PaymentReference,
		"amount":           o.Amount.Amount,
		"currency":         o.Amount.Currency,
		"createdAt":        o.CreatedAt,
		"updatedAt":        o.UpdatedAt,
	}
	if o.Citizen != nil {
		resp["citizen"] = map[string]any{
			"id":        o.Citizen.ID,
			"regNumber": o.Citizen.RegNumber,
			"fullName":  o.Citizen.FullName,
			"phone":     o.Citizen.Phone,
		}
	}
	if o.Printer != nil {
		resp["printer"] = map[string]any{
			"id":       o.Printer.ID,
			"username": o.Printer.Username,
		}
	}
	return resp
}

func orderListJSON(items []domain.Order) []map[string]any {
	resp := make([]map[string]any, 0, len(items))
	for _, o := range items {
		resp = append(resp, orderJSON(o))
	}
	return resp
}

func (h OrderHandler) search(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, pageSize, sortDesc := pageQuery(r)
	items, total, err := h.Service.Search(r.Context(), user, repository.OrderQuery{
		Term:     r.URL.Query().Get("q"),
		Status:   domain.Status(r.URL.Query().Get("status")),
		Page:     page,
		PageSize: pageSize,
		SortDesc: sortDesc,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": orderListJSON(items),
		"total": total,
	})
}

func (h OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	o, err := h.Service.GetByID(r.Context(), user, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderJSON(*o))
}

func (h OrderHandler) track(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}
	items, err := h.Service.TrackByPhone(r.Context(), user, phone)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderListJSON(items))
}

func (h OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		CitizenID        int64  `json:"citizenId"`
		OrderType        string `json:"orderType"`
		PaymentMethod    string `json:"paymentMethod"`
		PaymentReference string `json:"paymentReference"`
		Amount           int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	o, err := h.Service.Create(r.Context(), user, service.CreateOrderInput{
		CitizenID:        req.CitizenID,
		OrderType:        req.OrderType,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		Amount:           req.Amount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderJSON(*o))
}

func (h OrderHandler) delete(w http.ResponseWriter, r *http.Request) {
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

func (h OrderHandler) setStatus(w http.ResponseWriter, r *http.Request) {
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
	o, err := h.Service.UpdateStatus(r.Context(), user, id, domain.Status(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderJSON(*o))
}

func (h OrderHandler) approvePrint(w http.ResponseWriter, r *http.Request) {
	h.printAction(w, r, h.Service.ApprovePrint)
}

func (h OrderHandler) rejectPrint(w http.ResponseWriter, r *http.Request) {
	h.printAction(w, r, h.Service.RejectPrint)
}

func (h OrderHandler) accept(w http.ResponseWriter, r *http.Request) {
	h.printAction(w, r, h.Service.Accept)
}

func (h OrderHandler) printAction(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, user authctx.CurrentUser, id int64) (*domain.Order, error),
) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	o, err := fn(r.Context(), user, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderJSON(*o))
}

func (h OrderHandler) bulkApprove(w http.ResponseWriter, r *http.Request) {
	h.bulkAction(w, r, h.Service.BulkApprove)
}

func (h OrderHandler) bulkReject(w http.ResponseWriter, r *http.Request) {
	h.bulkAction(w, r, h.Service.BulkReject)
}

func (h OrderHandler) bulkAction(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, user authctx.CurrentUser, ids []int64) (service.BulkResult, error),
) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}
	res, err := fn(r.Context(), user, req.IDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	failed := make([]map[string]any, 0, len(res.Failed))
	for _, f := range res.Failed {
		failed = append(failed, map[string]any{"id": f.ID, "reason": f.Reason})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updated": res.Updated,
		"failed":  failed,
	})
}
