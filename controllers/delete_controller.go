package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sairanjith101/acme-importer/apperrors"
	"github.com/sairanjith101/acme-importer/models"
	"github.com/sairanjith101/acme-importer/progress"
	"github.com/sairanjith101/acme-importer/queue"
	"github.com/sairanjith101/acme-importer/services"
)

// BulkDeleteController starts full-table delete jobs and serves their
// progress snapshots.
type BulkDeleteController struct {
	queue    queue.Enqueuer
	progress progress.Store
}

func NewBulkDeleteController(q queue.Enqueuer, store progress.Store) *BulkDeleteController {
	return &BulkDeleteController{queue: q, progress: store}
}

type bulkDeleteRequest struct {
	Confirm bool `json:"confirm"`
}

// BulkDelete requires an explicit confirmation flag, then enqueues the
// delete job and returns its id.
func (h *BulkDeleteController) BulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation required"})
		return
	}

	ctx := c.Request.Context()
	taskID := uuid.New().String()
	key := progress.BulkDeleteProgressKey(taskID)
	if err := h.progress.SetProgress(ctx, key, models.JobProgress{Status: models.JobStatusQueued, Percent: 0}); err != nil {
		zap.L().Error("Failed to record queued progress", zap.Error(err))
	}

	if err := h.queue.Enqueue(ctx, services.TaskBulkDelete, services.BulkDeleteTask{TaskID: taskID}); err != nil {
		// Overwrite the queued snapshot so pollers don't see a job that
		// will never run.
		if serr := h.progress.SetProgress(ctx, key, models.JobProgress{
			Status: models.JobStatusFailed, Reason: "failed to queue delete job",
		}); serr != nil {
			zap.L().Error("Failed to record failed progress", zap.Error(serr))
		}
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to queue delete job", err))
		return
	}

	zap.L().Info("Bulk delete job queued", zap.String("task_id", taskID))
	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID})
}

// GetProgress returns the current snapshot for a delete job.
func (h *BulkDeleteController) GetProgress(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task ID required"})
		return
	}

	p, err := h.progress.GetProgress(c.Request.Context(), progress.BulkDeleteProgressKey(id))
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "not_found"})
			return
		}
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to retrieve job status", err))
		return
	}
	c.JSON(http.StatusOK, p)
}
