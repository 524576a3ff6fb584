package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"idstation-backend/internal/domain"
	"idstation-backend/internal/server/authctx"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestStationBreakdownNeedsAllStationsScope(t *testing.T) {
	r := chi.NewRouter()
	ReportHandler{}.RegisterCrossStationRoutes(r)

	// A station-bound printer is scoped and only gets the summary view.
	station := int64(2)
	req := httptest.NewRequest(http.MethodGet, "/reports/stations", nil)
	req = req.WithContext(authctx.WithCurrentUser(req.Context(), authctx.CurrentUser{
		ID: 9, Username: "printer2", Role: domain.RolePrinter, StationID: &station,
	}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// No authenticated caller at all.
	req = httptest.NewRequest(http.MethodGet, "/reports/stations", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
