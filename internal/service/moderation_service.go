package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/models"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
)

type moderationStore interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	TransitionStatus(ctx context.Context, id string, status models.SubmissionStatus, decidedAt time.Time, decidedBy string) error
}

type moderationMetrics interface {
	IncSubmission(status string)
}

// ModerationService applies approve/reject decisions. Approved and rejected
// are terminal; a decision against an already-decided submission is a benign
// no-op reported with Changed=false, never an error. Concurrent decisions on
// the same submission serialize on the store's pending-only transition.
type ModerationService struct {
	repo    moderationStore
	audit   auditLogger
	metrics moderationMetrics
	signer  downloadSigner
	logger  *zap.Logger
	prefix  string
}

// NewModerationService constructs the service.
func NewModerationService(repo moderationStore, audit auditLogger, metrics moderationMetrics, signer downloadSigner, logger *zap.Logger, apiPrefix string) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	return &ModerationService{repo: repo, audit: audit, metrics: metrics, signer: signer, logger: logger, prefix: apiPrefix}
}

// List returns submissions for the moderation queue, optionally filtered by
// status, newest first.
func (s *ModerationService) List(ctx context.Context, filter models.SubmissionFilter, actor *models.JWTClaims) ([]models.Submission, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if filter.Status != "" {
		switch filter.Status {
		case models.SubmissionStatusPending, models.SubmissionStatusApproved, models.SubmissionStatusRejected:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
		}
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return items, nil
}

// Get returns one submission with signed download links for its files.
func (s *ModerationService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Submission, []dto.SubmissionFileLink, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, nil, err
	}
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrNotFound
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	links := submissionFileLinks(submission, s.signer, s.prefix, s.logger)
	return submission, links, nil
}

// Approve moves a pending submission into the approved state.
func (s *ModerationService) Approve(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ModerationResult, error) {
	return s.decide(ctx, id, models.SubmissionStatusApproved, actor)
}

// Reject moves a pending submission into the rejected state. The decision
// is irreversible, so the caller must set the explicit confirm flag.
func (s *ModerationService) Reject(ctx context.Context, id string, decision dto.ModerationDecision, actor *models.JWTClaims) (*dto.ModerationResult, error) {
	if !decision.Confirm {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection requires the confirm flag")
	}
	return s.decide(ctx, id, models.SubmissionStatusRejected, actor)
}

func (s *ModerationService) decide(ctx context.Context, id string, status models.SubmissionStatus, actor *models.JWTClaims) (*dto.ModerationResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	err := s.repo.TransitionStatus(ctx, id, status, time.Now().UTC(), actor.UserID)
	if err == nil {
		if s.metrics != nil {
			s.metrics.IncSubmission(string(status))
		}
		s.emitAudit(ctx, actor, id, status)
		return &dto.ModerationResult{ID: id, Status: string(status), Changed: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition submission")
	}

	// No pending row matched: either the submission does not exist, or a
	// decision already landed. The latter is benign and reported as such.
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return &dto.ModerationResult{ID: id, Status: string(current.Status), Changed: false}, nil
}

func (s *ModerationService) emitAudit(ctx context.Context, actor *models.JWTClaims, id string, status models.SubmissionStatus) {
	if s.audit == nil {
		return
	}
	action := models.AuditActionSubmissionApprove
	if status == models.SubmissionStatusRejected {
		action = models.AuditActionSubmissionReject
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "submission",
		ResourceID: &id,
		NewValues:  []byte(fmt.Sprintf(`{"status":"%s"}`, status)),
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create moderation audit", zap.Error(err))
	}
}

func requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	return nil
}
