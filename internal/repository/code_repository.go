package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/handover-api/internal/models"
)

// CodeRepository persists single-use upload codes. Rows are inserted once,
// claimed at most once and never deleted.
type CodeRepository struct {
	db *sqlx.DB
}

// NewCodeRepository constructs the repository.
func NewCodeRepository(db *sqlx.DB) *CodeRepository {
	return &CodeRepository{db: db}
}

// Create stores a freshly issued code.
func (r *CodeRepository) Create(ctx context.Context, code *models.UploadCode) error {
	const query = `INSERT INTO upload_codes (code, issued_by, issued_at, expires_at, consumed, consumed_at)
	VALUES (:code, :issued_by, :issued_at, :expires_at, :consumed, :consumed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, code); err != nil {
		return fmt.Errorf("create upload code: %w", err)
	}
	return nil
}

// FindByCode retrieves one code row. Callers treat sql.ErrNoRows as
// "code not found".
func (r *CodeRepository) FindByCode(ctx context.Context, code string) (*models.UploadCode, error) {
	const query = `SELECT code, issued_by, issued_at, expires_at, consumed, consumed_at
	FROM upload_codes WHERE code = $1`
	var row models.UploadCode
	if err := r.db.GetContext(ctx, &row, query, code); err != nil {
		return nil, err
	}
	return &row, nil
}

// Claim atomically flips an unconsumed, unexpired code to consumed. The
// condition and the write are one statement so that N racing claims for the
// same code yield exactly one affected row; the database, not the process,
// provides the serialization. Returns false when the code was already
// consumed, expired, or absent at claim time.
func (r *CodeRepository) Claim(ctx context.Context, code string, now time.Time) (bool, error) {
	const query = `UPDATE upload_codes SET consumed = TRUE, consumed_at = $2
	WHERE code = $1 AND consumed = FALSE AND expires_at > $2`
	res, err := r.db.ExecContext(ctx, query, code, now)
	if err != nil {
		return false, fmt.Errorf("claim upload code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check claim rows: %w", err)
	}
	return affected == 1, nil
}

// ListRecent returns the newest codes for the admin listing.
func (r *CodeRepository) ListRecent(ctx context.Context, limit int) ([]models.UploadCode, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	const query = `SELECT code, issued_by, issued_at, expires_at, consumed, consumed_at
	FROM upload_codes ORDER BY issued_at DESC LIMIT $1`
	var rows []models.UploadCode
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list upload codes: %w", err)
	}
	return rows, nil
}

// CountActive counts codes that are still usable at the given instant.
func (r *CodeRepository) CountActive(ctx context.Context, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM upload_codes WHERE consumed = FALSE AND expires_at > $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, now); err != nil {
		return 0, fmt.Errorf("count active codes: %w", err)
	}
	return count, nil
}
