package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"servidor_ocr/internal/domain"
	"servidor_ocr/internal/repository"
	"time"
)

type pgOperatorRepository struct {
	db *sql.DB
}

func NewPgOperatorRepository(db *sql.DB) repository.OperatorRepository {
	return &pgOperatorRepository{db: db}
}

// Serializes registrations so only the first operator can take firstRole.
const operatorsLockKey int64 = 0x6f70_6572

func (r *pgOperatorRepository) Create(ctx context.Context, op *domain.Operator, firstRole string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("OperatorRepository.Create: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, operatorsLockKey); err != nil {
		return fmt.Errorf("OperatorRepository.Create (lock): %w", err)
	}
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM operators)`).Scan(&exists); err != nil {
		return fmt.Errorf("OperatorRepository.Create (count): %w", err)
	}
	role := op.Role
	if !exists {
		role = firstRole
	}

	query := `INSERT INTO operators (username, password_hash, role)
	           VALUES ($1, $2, $3)
	           RETURNING id, created_at`
	var id int
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, query, op.Username, op.PasswordHash, role).Scan(&id, &createdAt)
	if err != nil {
		if isUniqueViolation(err, "operators_username_key") {
			return fmt.Errorf("%w: operator '%s'", repository.ErrDuplicateEntry, op.Username)
		}
		return fmt.Errorf("OperatorRepository.Create: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("OperatorRepository.Create (commit): %w", err)
	}

	op.ID = id
	op.Role = role
	op.CreatedAt = createdAt.UTC()
	return nil
}

func (r *pgOperatorRepository) FindByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	query := `SELECT id, username, password_hash, role, created_at, last_login_at
	           FROM operators WHERE username = $1`
	op := &domain.Operator{}
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&op.ID, &op.Username, &op.PasswordHash, &op.Role, &op.CreatedAt, &op.LastLoginAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("OperatorRepository.FindByUsername: %w", err)
	}
	op.CreatedAt = op.CreatedAt.UTC()
	return op, nil
}

func (r *pgOperatorRepository) TouchLastLogin(ctx context.Context, id int, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE operators SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("OperatorRepository.TouchLastLogin: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
