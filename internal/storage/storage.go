package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
)

// ProductRow — строка таблицы products
type ProductRow struct {
	Code          int
	Name          string
	Category      string
	Proteins      float64
	Fats          float64
	Carbohydrates float64
	Calories      float64
	Cholesterol   float64
	Sugars        float64
}

// ProductsStorage — источник каталога продуктов
type ProductsStorage interface {
	// ListProducts возвращает все продукты, отсортированные по code
	ListProducts(ctx context.Context) ([]ProductRow, error)

	// ReplaceProducts атомарно заменяет содержимое каталога
	ReplaceProducts(ctx context.Context, rows []ProductRow) (int64, error)
}

// Session is a server-side user profile addressed by a bearer token.
type Session struct {
	ID        uuid.UUID
	Gender    string
	WeightKg  float64
	HeightCm  float64
	AgeYears  int
	Days      int
	Diet      string
	Allergies []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionsStorage — интерфейс для работы с сессиями
type SessionsStorage interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// ReportsStorage — интерфейс для работы с отчётами
type ReportsStorage interface {
	// CreateReport создаёт новый отчёт (metadata + optional data for memory mode)
	CreateReport(ctx context.Context, report *ReportMeta) error

	// GetReport возвращает отчёт по ID
	GetReport(ctx context.Context, id uuid.UUID) (*ReportMeta, error)

	// ListReports возвращает список отчётов сессии с пагинацией
	ListReports(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]ReportMeta, error)

	// DeleteReport удаляет отчёт (metadata и данные)
	DeleteReport(ctx context.Context, id uuid.UUID) error
}

// ReportMeta — метаданные отчёта по корзине
type ReportMeta struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Format    string  // "pdf" or "csv"
	ObjectKey *string // S3 object key (NULL for memory mode)
	SizeBytes int64
	ItemCount int
	Status    string // "ready" or "failed"
	Error     *string
	CreatedAt time.Time
	UpdatedAt time.Time
	Data      []byte // Only used in memory mode
}
