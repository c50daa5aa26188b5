package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sairanjith101/acme-importer/apperrors"
	"github.com/sairanjith101/acme-importer/events"
	"github.com/sairanjith101/acme-importer/models"
	"github.com/sairanjith101/acme-importer/progress"
	"github.com/sairanjith101/acme-importer/repository"
	"github.com/sairanjith101/acme-importer/services"
)

// Delivery log reads are capped below the stored history.
const webhookLogReadLimit = 50

// WebhookController manages webhook subscriptions, manual test firing, and
// delivery log retrieval.
type WebhookController struct {
	webhooks   repository.WebhookRepository
	dispatcher *services.Dispatcher
	progress   progress.Store
	validator  *RequestValidator
}

func NewWebhookController(webhooks repository.WebhookRepository, dispatcher *services.Dispatcher, store progress.Store, validator *RequestValidator) *WebhookController {
	return &WebhookController{
		webhooks:   webhooks,
		dispatcher: dispatcher,
		progress:   store,
		validator:  validator,
	}
}

type webhookRequest struct {
	URL     string `json:"url" validate:"required,url"`
	Event   string `json:"event" validate:"required"`
	Enabled *bool  `json:"enabled"`
}

func (h *WebhookController) List(c *gin.Context) {
	hooks, err := h.webhooks.List(c.Request.Context())
	if err != nil {
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to list webhooks", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhooks": hooks})
}

func (h *WebhookController) Create(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !events.Type(req.Event).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
		return
	}

	hook := models.Webhook{
		URL:     req.URL,
		Event:   req.Event,
		Enabled: true,
	}
	if req.Enabled != nil {
		hook.Enabled = *req.Enabled
	}
	if err := h.webhooks.Create(c.Request.Context(), &hook); err != nil {
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to create webhook", err))
		return
	}
	c.JSON(http.StatusCreated, hook)
}

func (h *WebhookController) Update(c *gin.Context) {
	hook, ok := h.find(c)
	if !ok {
		return
	}

	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.URL != "" {
		hook.URL = req.URL
	}
	if req.Event != "" {
		if !events.Type(req.Event).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
			return
		}
		hook.Event = req.Event
	}
	if req.Enabled != nil {
		hook.Enabled = *req.Enabled
	}

	if err := h.webhooks.Update(c.Request.Context(), hook); err != nil {
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to update webhook", err))
		return
	}
	c.JSON(http.StatusOK, hook)
}

func (h *WebhookController) Delete(c *gin.Context) {
	hook, ok := h.find(c)
	if !ok {
		return
	}
	if err := h.webhooks.Delete(c.Request.Context(), hook.ID); err != nil {
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to delete webhook", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": hook.ID})
}

// Test fires the subscription's event type with a caller-provided payload,
// fanning out to every enabled subscriber of that type.
func (h *WebhookController) Test(c *gin.Context) {
	hook, ok := h.find(c)
	if !ok {
		return
	}

	var body struct {
		Payload map[string]interface{} `json:"payload"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.Payload == nil {
		body.Payload = map[string]interface{}{"test": true}
	}

	evt := events.Event{Type: events.Type(hook.Event), Payload: body.Payload}
	if err := h.dispatcher.Dispatch(c.Request.Context(), evt); err != nil {
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to trigger webhook", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "triggered"})
}

// Logs returns the webhook's most recent delivery outcomes, newest first.
func (h *WebhookController) Logs(c *gin.Context) {
	hook, ok := h.find(c)
	if !ok {
		return
	}

	entries, err := h.progress.RecentLog(c.Request.Context(), progress.WebhookLogKey(hook.ID.String()), webhookLogReadLimit)
	if err != nil {
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to read delivery log", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

func (h *WebhookController) find(c *gin.Context) (*models.Webhook, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook ID"})
		return nil, false
	}
	hook, err := h.webhooks.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
			return nil, false
		}
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to load webhook", err))
		return nil, false
	}
	return hook, true
}
