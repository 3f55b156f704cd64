package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"servidor_ocr/internal/domain"
	"servidor_ocr/internal/repository"
	"time"

	"github.com/google/uuid"
)

const (
	defaultReadingsLimit = 50
	maxReadingsLimit     = 500
)

type pgPlateReadingRepository struct {
	db *sql.DB
}

func NewPgPlateReadingRepository(db *sql.DB) repository.PlateReadingRepository {
	return &pgPlateReadingRepository{db: db}
}

func (r *pgPlateReadingRepository) Create(ctx context.Context, reading *domain.PlateReading) error {
	query := `INSERT INTO plate_readings
		(id, image_key, image_url, ocr_text, plate, message, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		reading.ID, reading.ImageKey, reading.ImageURL, reading.OCRText,
		reading.Plate, reading.Message, reading.Source, reading.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "plate_readings_pkey") {
			return fmt.Errorf("%w: reading %s", repository.ErrDuplicateEntry, reading.ID)
		}
		return fmt.Errorf("PlateReadingRepository.Create: %w", err)
	}
	return nil
}

const readingColumns = `id, image_key, image_url, ocr_text, plate, message, source, created_at`

func (r *pgPlateReadingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PlateReading, error) {
	query := `SELECT ` + readingColumns + ` FROM plate_readings WHERE id = $1`
	return r.findOne(ctx, "FindByID", query, id)
}

func (r *pgPlateReadingRepository) FindLatestByImageKey(ctx context.Context, imageKey string) (*domain.PlateReading, error) {
	query := `SELECT ` + readingColumns + ` FROM plate_readings
		WHERE image_key = $1
		ORDER BY created_at DESC
		LIMIT 1`
	return r.findOne(ctx, "FindLatestByImageKey", query, imageKey)
}

func (r *pgPlateReadingRepository) findOne(ctx context.Context, op, query string, arg any) (*domain.PlateReading, error) {
	reading := &domain.PlateReading{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&reading.ID, &reading.ImageKey, &reading.ImageURL, &reading.OCRText,
		&reading.Plate, &reading.Message, &reading.Source, &reading.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("PlateReadingRepository.%s: %w", op, err)
	}
	reading.CreatedAt = reading.CreatedAt.In(time.UTC)
	return reading, nil
}

func (r *pgPlateReadingRepository) FindRecent(ctx context.Context, filter domain.PlateReadingFilterDTO) ([]domain.PlateReading, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultReadingsLimit
	}
	if limit > maxReadingsLimit {
		limit = maxReadingsLimit
	}

	query := `SELECT ` + readingColumns + ` FROM plate_readings
		WHERE ($1::text = '' OR plate = $1::text)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, filter.Plate, limit)
	if err != nil {
		return nil, fmt.Errorf("PlateReadingRepository.FindRecent: %w", err)
	}
	defer rows.Close()

	readings := make([]domain.PlateReading, 0)
	for rows.Next() {
		var reading domain.PlateReading
		err := rows.Scan(
			&reading.ID, &reading.ImageKey, &reading.ImageURL, &reading.OCRText,
			&reading.Plate, &reading.Message, &reading.Source, &reading.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("PlateReadingRepository.FindRecent (scanning): %w", err)
		}
		reading.CreatedAt = reading.CreatedAt.In(time.UTC)
		readings = append(readings, reading)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("PlateReadingRepository.FindRecent (rows error): %w", err)
	}
	return readings, nil
}
