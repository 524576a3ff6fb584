package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocsCatalogServesEndpointList(t *testing.T) {
	r := chi.NewRouter()
	DocsHandler{}.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body struct {
		Data []docEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data)

	paths := make(map[string]bool, len(body.Data))
	for _, e := range body.Data {
		paths[e.Method+" "+e.Path] = true
	}
	assert.True(t, paths["POST /auth/login"])
	assert.True(t, paths["POST /orders"])
	assert.True(t, paths["GET /reports/summary"])
	assert.True(t, paths["PUT /uploads/{token}/chunks/{index}"])
}
