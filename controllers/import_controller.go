package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sairanjith101/acme-importer/apperrors"
	"github.com/sairanjith101/acme-importer/models"
	"github.com/sairanjith101/acme-importer/progress"
	"github.com/sairanjith101/acme-importer/queue"
	"github.com/sairanjith101/acme-importer/services"
)

// ImportController accepts CSV uploads and exposes job progress polling.
type ImportController struct {
	queue      queue.Enqueuer
	progress   progress.Store
	validator  *RequestValidator
	storageDir string
}

func NewImportController(q queue.Enqueuer, store progress.Store, validator *RequestValidator, storageDir string) *ImportController {
	if storageDir == "" {
		storageDir = "./data/uploads"
	}
	return &ImportController{
		queue:      q,
		progress:   store,
		validator:  validator,
		storageDir: storageDir,
	}
}

// UploadCSV persists the uploaded file, records a queued snapshot, and
// enqueues the import task. Returns the generated upload id immediately.
func (h *ImportController) UploadCSV(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if !h.validator.IsValidCSVFile(file) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file type. Only CSV files are allowed"})
		return
	}
	if err := h.validator.ValidateFileSize(file); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uploadID := uuid.New().String()
	filePath, err := h.persistUpload(file, uploadID)
	if err != nil {
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to store uploaded file", err))
		return
	}

	ctx := c.Request.Context()
	key := progress.UploadProgressKey(uploadID)
	if err := h.progress.SetProgress(ctx, key, models.JobProgress{Status: models.JobStatusQueued, Percent: 0}); err != nil {
		zap.L().Error("Failed to record queued progress", zap.Error(err))
	}

	task := services.ImportTask{UploadID: uploadID, FilePath: filePath}
	if err := h.queue.Enqueue(ctx, services.TaskImportProducts, task); err != nil {
		os.Remove(filePath)
		// Overwrite the queued snapshot so pollers don't see a job that
		// will never run.
		if serr := h.progress.SetProgress(ctx, key, models.JobProgress{
			Status: models.JobStatusFailed, Reason: "failed to queue import job",
		}); serr != nil {
			zap.L().Error("Failed to record failed progress", zap.Error(serr))
		}
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to queue import job", err))
		return
	}

	zap.L().Info("Import job queued", zap.String("upload_id", uploadID))
	c.JSON(http.StatusAccepted, gin.H{"upload_id": uploadID})
}

// GetProgress returns the current snapshot for an import job.
func (h *ImportController) GetProgress(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "upload ID required"})
		return
	}

	p, err := h.progress.GetProgress(c.Request.Context(), progress.UploadProgressKey(id))
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

func (h *ImportController) persistUpload(file *multipart.FileHeader, uploadID string) (string, error) {
	if err := os.MkdirAll(h.storageDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	filePath := filepath.Join(h.storageDir, fmt.Sprintf("upload_%s.csv", uploadID))
	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	start := time.Now()
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	zap.L().Debug("upload persisted",
		zap.String("path", filePath),
		zap.Int64("size", file.Size),
		zap.Duration("elapsed", time.Since(start)),
	)
	return filePath, nil
}
