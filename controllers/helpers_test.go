package controllers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sairanjith101/acme-importer/models"
	"github.com/sairanjith101/acme-importer/progress"
)

type capturedTask struct {
	taskType string
	payload  interface{}
	delay    time.Duration
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []capturedTask
	err   error
}

func (q *fakeQueue) Enqueue(ctx context.Context, taskType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, capturedTask{taskType: taskType, payload: payload})
	return nil
}

func (q *fakeQueue) EnqueueIn(ctx context.Context, delay time.Duration, taskType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, capturedTask{taskType: taskType, payload: payload, delay: delay})
	return nil
}

type fakeStore struct {
	mu       sync.Mutex
	progress map[string]models.JobProgress
	logs     map[string][]models.DeliveryLogEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		progress: make(map[string]models.JobProgress),
		logs:     make(map[string][]models.DeliveryLogEntry),
	}
}

func (s *fakeStore) SetProgress(ctx context.Context, key string, p models.JobProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[key] = p
	return nil
}

func (s *fakeStore) GetProgress(ctx context.Context, key string) (*models.JobProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[key]
	if !ok {
		return nil, progress.ErrNotFound
	}
	return &p, nil
}

func (s *fakeStore) PushLog(ctx context.Context, key string, entry models.DeliveryLogEntry, max int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[key] = append([]models.DeliveryLogEntry{entry}, s.logs[key]...)
	return nil
}

func (s *fakeStore) RecentLog(ctx context.Context, key string, limit int64) ([]models.DeliveryLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.logs[key]
	if int64(len(entries)) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type fakeWebhookRepo struct {
	mu      sync.Mutex
	hooks   []models.Webhook
	listErr error
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
	if r.listErr != nil {
		return nil, r.listErr
	}
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
