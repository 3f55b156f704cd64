package service

import (
	"context"
	"servidor_ocr/internal/domain"
	"servidor_ocr/internal/repository"
	"sync"
	"time"

	"github.com/google/uuid"
)

type fakeDetector struct {
	text  string
	err   error
	calls int
}

func (f *fakeDetector) DetectText(ctx context.Context, image []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type memStorage struct {
	files map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{files: map[string][]byte{}} }

func (m *memStorage) Upload(ctx context.Context, key string, data []byte) (string, error) {
	m.files[key] = data
	return key, nil
}

func (m *memStorage) GetURL(ctx context.Context, key string) (string, error) {
	return "/uploads/" + key, nil
}

func (m *memStorage) Download(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.files[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return data, nil
}

type memReadingRepo struct {
	readings   []domain.PlateReading
	lastFilter domain.PlateReadingFilterDTO
}

func (m *memReadingRepo) Create(ctx context.Context, r *domain.PlateReading) error {
	m.readings = append(m.readings, *r)
	return nil
}

func (m *memReadingRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.PlateReading, error) {
	for i := range m.readings {
		if m.readings[i].ID == id {
			r := m.readings[i]
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memReadingRepo) FindLatestByImageKey(ctx context.Context, key string) (*domain.PlateReading, error) {
	for i := len(m.readings) - 1; i >= 0; i-- {
		if m.readings[i].ImageKey == key {
			r := m.readings[i]
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memReadingRepo) FindRecent(ctx context.Context, filter domain.PlateReadingFilterDTO) ([]domain.PlateReading, error) {
	m.lastFilter = filter
	var out []domain.PlateReading
	for i := len(m.readings) - 1; i >= 0; i-- {
		r := m.readings[i]
		if filter.Plate == "" || r.Plate.String == filter.Plate {
			out = append(out, r)
		}
	}
	return out, nil
}

type memCache struct {
	mu    sync.Mutex
	items map[string]string
	ttl   time.Duration
}

func newMemCache() *memCache { return &memCache{items: map[string]string{}} }

func (m *memCache) Get(ctx context.Context, hash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.items[hash]
	if !ok {
		return "", repository.ErrCacheMiss
	}
	return text, nil
}

func (m *memCache) Set(ctx context.Context, hash, text string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[hash] = text
	m.ttl = ttl
	return nil
}

type recordingNotifier struct {
	events []domain.PlateReadNotification
}

func (r *recordingNotifier) BroadcastPlateRead(e domain.PlateReadNotification) {
	r.events = append(r.events, e)
}

type recordingPublisher struct {
	events []domain.PlateReadNotification
	err    error
}

func (r *recordingPublisher) PublishPlateRead(ctx context.Context, e domain.PlateReadNotification) error {
	r.events = append(r.events, e)
	return r.err
}

type memOperatorRepo struct {
	mu      sync.Mutex
	ops     map[string]*domain.Operator
	nextID  int
	touched map[int]time.Time
}

func newMemOperatorRepo() *memOperatorRepo {
	return &memOperatorRepo{ops: map[string]*domain.Operator{}, touched: map[int]time.Time{}}
}

func (m *memOperatorRepo) Create(ctx context.Context, op *domain.Operator, firstRole string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ops[op.Username]; ok {
		return repository.ErrDuplicateEntry
	}
	if len(m.ops) == 0 {
		op.Role = firstRole
	}
	m.nextID++
	op.ID = m.nextID
	op.CreatedAt = time.Now().UTC()
	stored := *op
	m.ops[op.Username] = &stored
	return nil
}

func (m *memOperatorRepo) FindByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *op
	return &c, nil
}

func (m *memOperatorRepo) TouchLastLogin(ctx context.Context, id int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[id] = at
	return nil
}
