package repository

import (
	"context"
	"errors"
	"servidor_ocr/internal/domain"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")
var ErrCacheMiss = errors.New("cache miss")

type OperatorRepository interface {
	// Create fills ID and CreatedAt; ErrDuplicateEntry when the username is taken.
	// When no operator exists yet the new one gets firstRole instead of op.Role;
	// the emptiness check and the insert are atomic.
	Create(ctx context.Context, op *domain.Operator, firstRole string) error
	FindByUsername(ctx context.Context, username string) (*domain.Operator, error)
	TouchLastLogin(ctx context.Context, id int, at time.Time) error
}

type PlateReadingRepository interface {
	Create(ctx context.Context, reading *domain.PlateReading) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.PlateReading, error)
	FindLatestByImageKey(ctx context.Context, imageKey string) (*domain.PlateReading, error)
	// FindRecent returns the newest readings first; an empty plate matches all.
	FindRecent(ctx context.Context, filter domain.PlateReadingFilterDTO) ([]domain.PlateReading, error)
}

// OCRTextCache keeps OCR transcriptions keyed by the image content hash so the
// same image is never sent to the OCR provider twice.
type OCRTextCache interface {
	Get(ctx context.Context, imageHash string) (string, error) // ErrCacheMiss when absent
	Set(ctx context.Context, imageHash string, text string, ttl time.Duration) error
}
