package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/models"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
)

// Charset excludes ambiguous characters; codes are read aloud and typed.
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type codeStore interface {
	Create(ctx context.Context, code *models.UploadCode) error
	FindByCode(ctx context.Context, code string) (*models.UploadCode, error)
	Claim(ctx context.Context, code string, now time.Time) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]models.UploadCode, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type codeMetrics interface {
	IncCodeIssued()
	IncCodeClaimed()
	IncClaimConflict()
}

// CodeServiceConfig holds issuance parameters.
type CodeServiceConfig struct {
	TTL        time.Duration
	CodeLength int
}

// CodeService issues and redeems single-use upload codes. Validate is
// advisory and side-effect free; Claim is the authoritative consumption,
// delegated to a single conditional UPDATE so racing claims serialize in
// the database rather than in this process.
type CodeService struct {
	repo    codeStore
	audit   auditLogger
	metrics codeMetrics
	logger  *zap.Logger
	cfg     CodeServiceConfig
}

// NewCodeService constructs the service with defaults.
func NewCodeService(repo codeStore, audit auditLogger, metrics codeMetrics, logger *zap.Logger, cfg CodeServiceConfig) *CodeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.CodeLength < 8 {
		cfg.CodeLength = 12
	}
	return &CodeService{repo: repo, audit: audit, metrics: metrics, logger: logger, cfg: cfg}
}

// Issue generates and stores a fresh upload code for out-of-band delivery
// to a departing employee.
func (s *CodeService) Issue(ctx context.Context, actor *models.JWTClaims) (*dto.IssueCodeResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	value, err := s.generateCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate upload code")
	}

	now := time.Now().UTC()
	code := &models.UploadCode{
		Code:      value,
		IssuedBy:  actor.UserID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	if err := s.repo.Create(ctx, code); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload code")
	}

	if s.metrics != nil {
		s.metrics.IncCodeIssued()
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionCodeIssue,
		Resource:   "upload_code",
		ResourceID: &code.Code,
		NewValues:  []byte(fmt.Sprintf(`{"expires_at":"%s"}`, code.ExpiresAt.Format(time.RFC3339))),
	})

	return &dto.IssueCodeResponse{Code: code.Code, ExpiresAt: code.ExpiresAt}, nil
}

// Validate reports whether a code could currently authorize a submission.
// It has no side effect and its answer can be stale by the time the
// submission arrives; only Claim consumes.
func (s *CodeService) Validate(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return appErrors.Clone(appErrors.ErrValidation, "code is required")
	}
	row, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrCodeNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up upload code")
	}
	if row.Consumed {
		return appErrors.ErrCodeUsed
	}
	if !time.Now().UTC().Before(row.ExpiresAt) {
		return appErrors.ErrCodeExpired
	}
	return nil
}

// Claim consumes the code, or fails with CLAIM_CONFLICT if it was already
// consumed, expired, or never existed at claim time.
func (s *CodeService) Claim(ctx context.Context, code string) error {
	claimed, err := s.repo.Claim(ctx, strings.TrimSpace(code), time.Now().UTC())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim upload code")
	}
	if !claimed {
		if s.metrics != nil {
			s.metrics.IncClaimConflict()
		}
		return appErrors.ErrClaimConflict
	}
	if s.metrics != nil {
		s.metrics.IncCodeClaimed()
	}
	return nil
}

// List returns the most recently issued codes with their derived state.
func (s *CodeService) List(ctx context.Context, actor *models.JWTClaims, limit int) ([]dto.CodeListItem, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	rows, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upload codes")
	}
	now := time.Now().UTC()
	items := make([]dto.CodeListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.CodeListItem{
			Code:       row.Code,
			State:      row.State(now),
			IssuedAt:   row.IssuedAt,
			ExpiresAt:  row.ExpiresAt,
			ConsumedAt: row.ConsumedAt,
		})
	}
	return items, nil
}

func (s *CodeService) generateCode() (string, error) {
	max := big.NewInt(int64(len(codeCharset)))
	b := make([]byte, s.cfg.CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeCharset[n.Int64()]
	}
	return string(b), nil
}

func (s *CodeService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create code audit", zap.Error(err))
	}
}
