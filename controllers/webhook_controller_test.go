package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sairanjith101/acme-importer/apperrors"
	"github.com/sairanjith101/acme-importer/events"
	"github.com/sairanjith101/acme-importer/models"
	"github.com/sairanjith101/acme-importer/progress"
	"github.com/sairanjith101/acme-importer/services"
)

func newWebhookRouter() (*gin.Engine, *fakeWebhookRepo, *fakeQueue, *fakeStore) {
	gin.SetMode(gin.TestMode)
	repo := &fakeWebhookRepo{}
	q := &fakeQueue{}
	store := newFakeStore()
	dispatcher := services.NewDispatcher(repo, q)
	h := NewWebhookController(repo, dispatcher, store, NewRequestValidator())

	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.GET("/api/webhooks/", h.List)
	r.POST("/api/webhooks/", h.Create)
	r.PUT("/api/webhooks/:id", h.Update)
	r.DELETE("/api/webhooks/:id", h.Delete)
	r.POST("/api/webhooks/:id/test", h.Test)
	r.GET("/api/webhooks/:id/logs", h.Logs)
	return r, repo, q, store
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateWebhookValidatesEventType(t *testing.T) {
	r, repo, _, _ := newWebhookRouter()

	w := postJSON(r, "/api/webhooks/", `{"url":"http://example.com/hook","event":"product.exploded"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.hooks)

	w = postJSON(r, "/api/webhooks/", `{"url":"http://example.com/hook","event":"product.created"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.hooks, 1)
	assert.True(t, repo.hooks[0].Enabled)
}

func TestCreateWebhookRequiresURL(t *testing.T) {
	r, repo, _, _ := newWebhookRouter()

	w := postJSON(r, "/api/webhooks/", `{"event":"product.created"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.hooks)
}

func TestTestWebhookDispatchesPayload(t *testing.T) {
	r, repo, q, _ := newWebhookRouter()

	hook := &models.Webhook{URL: "http://example.com/hook", Event: string(events.ImportCompleted), Enabled: true}
	require.NoError(t, repo.Create(context.Background(), hook))

	w := postJSON(r, "/api/webhooks/"+hook.ID.String()+"/test", `{"payload":{"hello":"world"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, q.tasks, 1)
	task := q.tasks[0].payload.(services.DeliveryTask)
	assert.Equal(t, hook.ID, task.WebhookID)
	assert.JSONEq(t, `{"hello":"world"}`, string(task.Payload))
}

func TestWebhookLogsNewestFirst(t *testing.T) {
	r, repo, _, store := newWebhookRouter()

	hook := &models.Webhook{URL: "http://example.com/hook", Event: string(events.ProductCreated), Enabled: true}
	require.NoError(t, repo.Create(context.Background(), hook))

	key := progress.WebhookLogKey(hook.ID.String())
	store.PushLog(context.Background(), key, models.DeliveryLogEntry{Event: "product.created", StatusCode: 500, Timestamp: time.Now()}, 100)
	store.PushLog(context.Background(), key, models.DeliveryLogEntry{Event: "product.created", StatusCode: 200, Timestamp: time.Now()}, 100)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/webhooks/"+hook.ID.String()+"/logs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Logs []models.DeliveryLogEntry `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, 200, resp.Logs[0].StatusCode)
	assert.Equal(t, 500, resp.Logs[1].StatusCode)
}

func TestWebhookLogsUnknownID(t *testing.T) {
	r, _, _, _ := newWebhookRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/webhooks/6a9c7b9e-8a69-4f1e-9d0a-111111111111/logs", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListWebhooksRepoFailureRendersAppError(t *testing.T) {
	r, repo, _, _ := newWebhookRouter()
	repo.listErr = errors.New("connection refused")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/webhooks/", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(http.StatusInternalServerError), resp["code"])
	assert.Equal(t, "Failed to list webhooks", resp["message"])
}
