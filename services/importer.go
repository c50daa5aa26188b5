package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sairanjith101/acme-importer/events"
	"github.com/sairanjith101/acme-importer/models"
	"github.com/sairanjith101/acme-importer/progress"
	"github.com/sairanjith101/acme-importer/repository"
)

const (
	stagingBatchSize     = 1000
	stagingProgressEvery = 10000
	upsertPageSize       = 5000
	importProgressEvery  = 1000
)

// Importer stages an uploaded CSV into the staging table, then upserts the
// rows into products in bounded pages, publishing progress throughout.
type Importer struct {
	staging    repository.StagingRepository
	products   repository.ProductRepository
	progress   progress.Store
	dispatcher *Dispatcher
}

func NewImporter(staging repository.StagingRepository, products repository.ProductRepository, store progress.Store, dispatcher *Dispatcher) *Importer {
	return &Importer{
		staging:    staging,
		products:   products,
		progress:   store,
		dispatcher: dispatcher,
	}
}

// columnIndexes maps the four logical columns to positions in the header
// row. A value of -1 means the column is absent.
type columnIndexes struct {
	sku, name, description, price int
}

// resolveHeaders matches headers case-insensitively against the accepted
// synonyms, independent of column order.
func resolveHeaders(headers []string) columnIndexes {
	idx := columnIndexes{sku: -1, name: -1, description: -1, price: -1}
	for i, h := range headers {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "sku":
			idx.sku = i
		case "name", "title":
			idx.name = i
		case "description", "desc":
			idx.description = i
		case "price", "cost":
			idx.price = i
		}
	}
	return idx
}

func field(row []string, i int) string {
	if i >= 0 && i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// parsePrice coerces the staged price text to a numeric value. Empty or
// unparseable input yields nil, never an error.
func parsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Run executes one import job. Unexpected errors mark the job failed and
// propagate to the job backend; staging rows and the uploaded file are
// released on every exit path.
func (s *Importer) Run(ctx context.Context, uploadID, filePath string) error {
	key := progress.UploadProgressKey(uploadID)
	s.setProgress(ctx, key, models.JobProgress{Status: models.JobStatusStarting, Percent: 0})

	defer func() {
		if err := s.staging.Purge(context.Background(), uploadID); err != nil {
			zap.L().Error("failed to purge staging rows", zap.String("upload_id", uploadID), zap.Error(err))
		}
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("failed to remove uploaded file", zap.String("path", filePath), zap.Error(err))
		}
	}()

	imported, fatal, err := s.run(ctx, uploadID, filePath, key)
	if fatal != "" {
		s.setProgress(ctx, key, models.JobProgress{Status: models.JobStatusFailed, Percent: 0, Reason: fatal})
		zap.L().Warn("import rejected", zap.String("upload_id", uploadID), zap.String("reason", fatal))
		return nil
	}
	if err != nil {
		s.setProgress(ctx, key, models.JobProgress{Status: models.JobStatusFailed, Reason: err.Error()})
		return fmt.Errorf("import %s failed: %w", uploadID, err)
	}

	zap.L().Info("import completed", zap.String("upload_id", uploadID), zap.Int("imported", imported))
	return nil
}

// run returns the imported count, a fatal rejection reason (handled, not
// retried), or an unexpected error.
func (s *Importer) run(ctx context.Context, uploadID, filePath, key string) (int, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return 0, "CSV must include a header row", nil
	}
	idx := resolveHeaders(headers)
	if idx.sku < 0 {
		return 0, "SKU header not found", nil
	}

	processed, err := s.stage(ctx, reader, uploadID, idx, key)
	if err != nil {
		return 0, "", err
	}

	total64, err := s.staging.Count(ctx, uploadID)
	if err != nil {
		return 0, "", fmt.Errorf("failed to count staged rows: %w", err)
	}
	total := int(total64)
	if total == 0 {
		s.setProgress(ctx, key, models.JobProgress{
			Status: models.JobStatusComplete, Percent: 100, Processed: 0, Imported: 0,
		})
		return 0, "", nil
	}

	imported, err := s.upsert(ctx, uploadID, total, key)
	if err != nil {
		return 0, "", err
	}

	s.setProgress(ctx, key, models.JobProgress{
		Status: models.JobStatusComplete, Percent: 100,
		Processed: processed, Imported: imported, Total: total,
	})

	if err := s.dispatcher.Dispatch(ctx, events.NewImportCompleted(events.ImportCompletedPayload{
		UploadID: uploadID,
		Imported: imported,
	})); err != nil {
		// Delivery is fire-and-forget relative to the import.
		zap.L().Error("failed to dispatch import.completed", zap.String("upload_id", uploadID), zap.Error(err))
	}

	return imported, "", nil
}

// stage normalizes data rows into the staging table. Rows with an empty
// trimmed sku are dropped silently.
func (s *Importer) stage(ctx context.Context, reader *csv.Reader, uploadID string, idx columnIndexes, key string) (int, error) {
	batch := make([]models.StagingProduct, 0, stagingBatchSize)
	processed := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.staging.CreateBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to stage rows: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to parse CSV: %w", err)
		}

		sku := field(row, idx.sku)
		if sku == "" {
			continue
		}
		batch = append(batch, models.StagingProduct{
			ImportID:    uploadID,
			SKU:         sku,
			Name:        field(row, idx.name),
			Description: field(row, idx.description),
			Price:       field(row, idx.price),
		})
		processed++

		if len(batch) >= stagingBatchSize {
			if err := flush(); err != nil {
				return 0, err
			}
		}
		if processed%stagingProgressEvery == 0 {
			s.setProgress(ctx, key, models.JobProgress{
				Status: models.JobStatusStaging, Percent: 0, Processed: processed,
			})
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}
	return processed, nil
}

// upsert reads staged rows in fixed pages and writes each page atomically.
func (s *Importer) upsert(ctx context.Context, uploadID string, total int, key string) (int, error) {
	offset := 0
	imported := 0

	for {
		page, err := s.staging.Page(ctx, uploadID, offset, upsertPageSize)
		if err != nil {
			return 0, fmt.Errorf("failed to read staged page: %w", err)
		}
		if len(page) == 0 {
			break
		}

		if err := s.products.UpsertBatch(ctx, dedupeLastWins(page)); err != nil {
			return 0, fmt.Errorf("failed to upsert page at offset %d: %w", offset, err)
		}

		prev := imported
		offset += len(page)
		imported += len(page)

		if imported/importProgressEvery > prev/importProgressEvery || imported == total {
			pct := imported * 100 / total
			s.setProgress(ctx, key, models.JobProgress{
				Status: models.JobStatusProcessing, Percent: pct,
				Processed: imported, Total: total,
			})
		}
	}
	return imported, nil
}

// dedupeLastWins collapses duplicate SKUs within one page, keeping the last
// occurrence. Postgres rejects a single INSERT .. ON CONFLICT touching the
// same row twice; the later row is what the upsert would have left anyway.
func dedupeLastWins(page []models.StagingProduct) []models.Product {
	out := make([]models.Product, 0, len(page))
	seen := make(map[string]int, len(page))
	for _, row := range page {
		p := models.Product{
			SKU:         row.SKU,
			Name:        row.Name,
			Description: row.Description,
			Price:       parsePrice(row.Price),
		}
		if i, ok := seen[row.SKU]; ok {
			out[i] = p
			continue
		}
		seen[row.SKU] = len(out)
		out = append(out, p)
	}
	return out
}

func (s *Importer) setProgress(ctx context.Context, key string, p models.JobProgress) {
	if err := s.progress.SetProgress(ctx, key, p); err != nil {
		zap.L().Error("failed to update progress", zap.String("key", key), zap.Error(err))
	}
}
