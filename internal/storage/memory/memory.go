package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fdg312/nutricart/internal/storage"
	"github.com/google/uuid"
)

// MemoryStorage — in-memory реализация ProductsStorage, SessionsStorage и ReportsStorage
type MemoryStorage struct {
	mu       sync.RWMutex
	products []storage.ProductRow
	sessions *SessionsMemoryStorage
	reports  *ReportsMemoryStorage
}

// New создаёт пустой MemoryStorage
func New() *MemoryStorage {
	return &MemoryStorage{
		sessions: NewSessionsMemoryStorage(),
		reports:  NewReportsMemoryStorage(),
	}
}

func (m *MemoryStorage) ListProducts(ctx context.Context) ([]storage.ProductRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.ProductRow, len(m.products))
	copy(out, m.products)
	return out, nil
}

func (m *MemoryStorage) ReplaceProducts(ctx context.Context, rows []storage.ProductRow) (int64, error) {
	sorted := make([]storage.ProductRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	m.mu.Lock()
	defer m.mu.Unlock()

	m.products = sorted
	return int64(len(sorted)), nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

// SessionsStorage methods - делегируем к встроенному sessions storage

func (m *MemoryStorage) CreateSession(ctx context.Context, session *storage.Session) error {
	return m.sessions.CreateSession(ctx, session)
}

func (m *MemoryStorage) GetSession(ctx context.Context, id uuid.UUID) (*storage.Session, error) {
	return m.sessions.GetSession(ctx, id)
}

func (m *MemoryStorage) UpdateSession(ctx context.Context, session *storage.Session) error {
	return m.sessions.UpdateSession(ctx, session)
}

func (m *MemoryStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return m.sessions.DeleteSession(ctx, id)
}

// ReportsStorage methods - делегируем к встроенному reports storage

func (m *MemoryStorage) CreateReport(ctx context.Context, report *storage.ReportMeta) error {
	return m.reports.CreateReport(ctx, report)
}

func (m *MemoryStorage) GetReport(ctx context.Context, id uuid.UUID) (*storage.ReportMeta, error) {
	return m.reports.GetReport(ctx, id)
}

func (m *MemoryStorage) ListReports(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]storage.ReportMeta, error) {
	return m.reports.ListReports(ctx, sessionID, limit, offset)
}

func (m *MemoryStorage) DeleteReport(ctx context.Context, id uuid.UUID) error {
	return m.reports.DeleteReport(ctx, id)
}
