package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/livebook-backend/internal/config"
	"github.com/ignatzorin/livebook-backend/internal/interface/http/response"
	"github.com/ignatzorin/livebook-backend/internal/service"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: "test", RateLimitLimit: 100, RateLimitPeriod: time.Minute}
	store := memory.NewStore()
	return SetupRouter(cfg, Handlers{}, service.NewTokenManager("router-test-secret-0123456789abcdef"), store)
}

func TestSetupRouter_UnknownRouteUsesEnvelope(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestSetupRouter_AdminRequiresToken(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/disputes", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
