package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"notewiz-notes/notewiz/services"
	"notewiz-notes/notewiz/testutils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHealthAndMetrics(t *testing.T) {
	db, close := testutils.SetupTestDB()
	defer close()

	metrics := services.NewHubMetrics()
	registry := services.NewGroupRegistry(metrics)
	registry.Join(services.UserGroupKey(uuid.New()), services.NewConnection(uuid.New(), "", services.NotificationsRoute, 1))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterHealthRoutes(router, db, metrics)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "notewiz_ws_groups 1")
}
