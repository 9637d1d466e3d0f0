package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/handover-api/internal/models"
)

const submissionColumns = `id, upload_code, position_level, department, experience_range, team_size_range,
       main_responsibilities, essential_tools, critical_skills, learning_resources, common_problems,
       solutions, communication_methods, collaboration_tips, handoff_advice, final_advice, allow_followup,
       process_files, template_files, example_files, status, created_at, approved_at, approved_by,
       ai_summary, ai_keywords, ai_categories, enriched_at`

// SubmissionRepository persists knowledge submissions. Creation is a single
// insert; the status transition and the enrichment merge are conditional
// updates so concurrent writers never read-modify-write the row.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts the submission row produced by the saga commit phase.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now().UTC()
	}
	if submission.Status == "" {
		submission.Status = models.SubmissionStatusPending
	}
	const query = `INSERT INTO knowledge_submissions
	(id, upload_code, position_level, department, experience_range, team_size_range,
	 main_responsibilities, essential_tools, critical_skills, learning_resources, common_problems,
	 solutions, communication_methods, collaboration_tips, handoff_advice, final_advice, allow_followup,
	 process_files, template_files, example_files, status, created_at)
	VALUES (:id, :upload_code, :position_level, :department, :experience_range, :team_size_range,
	 :main_responsibilities, :essential_tools, :critical_skills, :learning_resources, :common_problems,
	 :solutions, :communication_methods, :collaboration_tips, :handoff_advice, :final_advice, :allow_followup,
	 :process_files, :template_files, :example_files, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// GetByID retrieves one submission row.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM knowledge_submissions WHERE id = $1`
	var row models.Submission
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns submissions newest first, optionally filtered by status.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + submissionColumns + ` FROM knowledge_submissions`)
	args := make([]interface{}, 0, 1)
	if filter.Status != "" {
		args = append(args, filter.Status)
		builder.WriteString(" WHERE status = $1")
	}
	builder.WriteString(" ORDER BY created_at DESC")

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize))

	var rows []models.Submission
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return rows, nil
}

// TransitionStatus moves a pending submission into a terminal status. The
// guard on status = 'pending' makes the transition safe under concurrent
// moderation: exactly one caller wins, the rest see sql.ErrNoRows.
func (r *SubmissionRepository) TransitionStatus(ctx context.Context, id string, status models.SubmissionStatus, decidedAt time.Time, decidedBy string) error {
	const query = `UPDATE knowledge_submissions SET status = $2, approved_at = $3, approved_by = $4
	WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, status, decidedAt, decidedBy)
	if err != nil {
		return fmt.Errorf("transition submission status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyEnrichment merges AI-derived fields into an existing submission. The
// write touches only the ai_* columns; it never conflicts with a concurrent
// moderation decision on the same row.
func (r *SubmissionRepository) ApplyEnrichment(ctx context.Context, id, summary string, keywords, categories []string, enrichedAt time.Time) error {
	const query = `UPDATE knowledge_submissions
	SET ai_summary = $2, ai_keywords = $3, ai_categories = $4, enriched_at = $5
	WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, summary, pq.Array(keywords), pq.Array(categories), enrichedAt)
	if err != nil {
		return fmt.Errorf("apply enrichment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check enrichment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus aggregates totals for the dashboard.
func (r *SubmissionRepository) CountByStatus(ctx context.Context) (*models.SubmissionCounts, error) {
	const query = `SELECT COUNT(*) AS total,
       COUNT(*) FILTER (WHERE status = 'pending') AS pending,
       COUNT(*) FILTER (WHERE status = 'approved') AS approved,
       COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
	FROM knowledge_submissions`
	var counts models.SubmissionCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	return &counts, nil
}
