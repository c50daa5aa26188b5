package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sairanjith101/acme-importer/models"
	"github.com/sairanjith101/acme-importer/progress"
)

// memProgressStore keeps snapshots and logs in memory and records every
// snapshot written so tests can assert on the progression.
type memProgressStore struct {
	mu      sync.Mutex
	current map[string]models.JobProgress
	history map[string][]models.JobProgress
	logs    map[string][]models.DeliveryLogEntry
}

func newMemProgressStore() *memProgressStore {
	return &memProgressStore{
		current: make(map[string]models.JobProgress),
		history: make(map[string][]models.JobProgress),
		logs:    make(map[string][]models.DeliveryLogEntry),
	}
}

func (s *memProgressStore) SetProgress(ctx context.Context, key string, p models.JobProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[key] = p
	s.history[key] = append(s.history[key], p)
	return nil
}

func (s *memProgressStore) GetProgress(ctx context.Context, key string) (*models.JobProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.current[key]
	if !ok {
		return nil, progress.ErrNotFound
	}
	return &p, nil
}

func (s *memProgressStore) PushLog(ctx context.Context, key string, entry models.DeliveryLogEntry, max int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := append([]models.DeliveryLogEntry{entry}, s.logs[key]...)
	if int64(len(entries)) > max {
		entries = entries[:max]
	}
	s.logs[key] = entries
	return nil
}

func (s *memProgressStore) RecentLog(ctx context.Context, key string, limit int64) ([]models.DeliveryLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.logs[key]
	if int64(len(entries)) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// enqueuedTask captures one producer call on the fake queue.
type enqueuedTask struct {
	taskType string
	payload  interface{}
	delay    time.Duration
	delayed  bool
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []enqueuedTask

	enqueueCalls int
	// enqueueErrOnCall fails that Enqueue call (1-based) with enqueueErr.
	enqueueErrOnCall int
	enqueueErr       error
}

func (q *fakeEnqueuer) Enqueue(ctx context.Context, taskType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueueCalls++
	if q.enqueueErrOnCall == q.enqueueCalls && q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.tasks = append(q.tasks, enqueuedTask{taskType: taskType, payload: payload})
	return nil
}

func (q *fakeEnqueuer) EnqueueIn(ctx context.Context, delay time.Duration, taskType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, enqueuedTask{taskType: taskType, payload: payload, delay: delay, delayed: true})
	return nil
}

// fakeStagingRepo stages rows in memory, keyed by import id.
type fakeStagingRepo struct {
	mu   sync.Mutex
	rows map[string][]models.StagingProduct
}

func newFakeStagingRepo() *fakeStagingRepo {
	return &fakeStagingRepo{rows: make(map[string][]models.StagingProduct)}
}

func (r *fakeStagingRepo) CreateBatch(ctx context.Context, rows []models.StagingProduct) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		r.rows[row.ImportID] = append(r.rows[row.ImportID], row)
	}
	return nil
}

func (r *fakeStagingRepo) Count(ctx context.Context, importID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows[importID])), nil
}

func (r *fakeStagingRepo) Page(ctx context.Context, importID string, offset, limit int) ([]models.StagingProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.rows[importID]
	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]models.StagingProduct, end-offset)
	copy(out, rows[offset:end])
	return out, nil
}

func (r *fakeStagingRepo) Purge(ctx context.Context, importID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, importID)
	return nil
}

// fakeProductRepo simulates the product table keyed by sku, mirroring the
// conflict-resolution rules of the real upsert.
type fakeProductRepo struct {
	mu          sync.Mutex
	table       map[string]models.Product
	upsertCalls int
	upsertErr   error
	deleteCalls int
	// deleteErrOnCall fails the nth DeleteBatch call (1-based, 0 = never).
	deleteErrOnCall int
	deleteErr       error
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{table: make(map[string]models.Product)}
}

func (r *fakeProductRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.table)), nil
}

func (r *fakeProductRepo) DeleteBatch(ctx context.Context, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	if r.deleteErrOnCall > 0 && r.deleteCalls >= r.deleteErrOnCall {
		return 0, r.deleteErr
	}
	skus := make([]string, 0, len(r.table))
	for sku := range r.table {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	if len(skus) > limit {
		skus = skus[:limit]
	}
	for _, sku := range skus {
		delete(r.table, sku)
	}
	return int64(len(skus)), nil
}

func (r *fakeProductRepo) UpsertBatch(ctx context.Context, rows []models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	if r.upsertErr != nil {
		return r.upsertErr
	}
	for _, row := range rows {
		existing, ok := r.table[row.SKU]
		if !ok {
			if row.ID == uuid.Nil {
				row.ID = uuid.New()
			}
			r.table[row.SKU] = row
			continue
		}
		existing.Name = row.Name
		existing.Description = row.Description
		if row.Price != nil {
			existing.Price = row.Price
		}
		r.table[row.SKU] = existing
	}
	return nil
}

func (r *fakeProductRepo) Find(ctx context.Context, search string, limit, offset int) ([]models.Product, int64, error) {
	return nil, 0, nil
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) Create(ctx context.Context, p *models.Product) error { return nil }

func (r *fakeProductRepo) Update(ctx context.Context, p *models.Product) error { return nil }

func (r *fakeProductRepo) Delete(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

// fakeWebhookRepo serves subscriptions from memory.
type fakeWebhookRepo struct {
	mu    sync.Mutex
	hooks []models.Webhook
}

func (r *fakeWebhookRepo) ListEnabled(ctx context.Context, event string) ([]models.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Webhook
	for _, h := range r.hooks {
		if h.Enabled && h.Event == event {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeWebhookRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.hooks {
		if h.ID == id {
			hook := h
			return &hook, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeWebhookRepo) List(ctx context.Context) ([]models.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Webhook(nil), r.hooks...), nil
}

func (r *fakeWebhookRepo) Create(ctx context.Context, w *models.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	r.hooks = append(r.hooks, *w)
	return nil
}

func (r *fakeWebhookRepo) Update(ctx context.Context, w *models.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, h := range r.hooks {
		if h.ID == w.ID {
			r.hooks[i] = *w
		}
	}
	return nil
}

func (r *fakeWebhookRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, h := range r.hooks {
		if h.ID == id {
			r.hooks = append(r.hooks[:i], r.hooks[i+1:]...)
			return nil
		}
	}
	return nil
}
