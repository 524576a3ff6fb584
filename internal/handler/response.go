package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"idstation-backend/internal/repository"
	"idstation-backend/internal/server/authctx"
	"idstation-backend/internal/service"
)

type apiError struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
}

type apiResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Data    any       `json:"data"`
	Error   *apiError `json:"error,omitempty"`
}

func writeRawJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if status >= 400 {
		writeRawJSON(w, status, apiResponse{
			Status:  "error",
			Message: "",
			Data:    payload,
			Error: &apiError{
				Code:   status,
				Status: http.StatusText(status),
			},
		})
		return
	}
	writeRawJSON(w, status, apiResponse{
		Status:  "ok",
		Message: "",
		Data:    payload,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	if status < 400 {
		status = http.StatusInternalServerError
	}
	writeRawJSON(w, status, apiResponse{
		Status:  "error",
		Message: message,
		Data:    nil,
		Error: &apiError{
			Code:   status,
			Status: http.StatusText(status),
		},
	})
}

// writeDomainError maps repository/service error kinds onto HTTP statuses.
// ErrStationMismatch deliberately answers with the same "not found" as a
// truly absent record so station boundaries stay invisible on the wire.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrStationMismatch):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRoleDenied), errors.Is(err, authctx.ErrStationRequired):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrCitizenNotApproved),
		errors.Is(err, repository.ErrOrderNotPending),
		errors.Is(err, repository.ErrNotOrderOwner),
		errors.Is(err, repository.ErrCitizenHasOrders):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case repository.IsDuplicate(err):
		writeError(w, http.StatusConflict, "already exists")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
