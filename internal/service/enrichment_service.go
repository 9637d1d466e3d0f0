package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/handover-api/internal/dto"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
	"github.com/noah-isme/handover-api/pkg/jobs"
)

type enrichmentStore interface {
	ApplyEnrichment(ctx context.Context, id, summary string, keywords, categories []string, enrichedAt time.Time) error
}

type enrichmentMetrics interface {
	IncEnrichmentTrigger(outcome string)
}

// EnrichmentServiceConfig points at the external enrichment collaborator.
type EnrichmentServiceConfig struct {
	Enabled        bool
	EndpointURL    string
	RequestTimeout time.Duration
	Workers        int
}

// EnrichmentService handles both directions of the best-effort enrichment
// flow: the outbound trigger after a submission commits, and the inbound
// callback merging AI-derived fields. The trigger is fire-and-forget with
// no retries; a submission that never gets enriched is a valid outcome.
type EnrichmentService struct {
	repo      enrichmentStore
	metrics   enrichmentMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       EnrichmentServiceConfig

	client *http.Client
	queue  *jobs.Queue
}

// NewEnrichmentService constructs the service and its dispatch queue.
func NewEnrichmentService(repo enrichmentStore, metrics enrichmentMetrics, validate *validator.Validate, logger *zap.Logger, cfg EnrichmentServiceConfig) *EnrichmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	s := &EnrichmentService{
		repo:      repo,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.RequestTimeout},
	}
	s.queue = jobs.NewQueue("enrichment", s.handleTrigger, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the trigger dispatch workers.
func (s *EnrichmentService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *EnrichmentService) Stop() {
	s.queue.Stop()
}

// TriggerAsync requests enrichment for a committed submission. Failures to
// enqueue are swallowed; the caller's submission already succeeded and must
// not be failed retroactively.
func (s *EnrichmentService) TriggerAsync(submissionID string) {
	if !s.cfg.Enabled {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "enrichment.trigger",
		Payload: submissionID,
	})
	if err != nil {
		s.logger.Debug("enrichment trigger dropped",
			zap.String("submission_id", submissionID),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.IncEnrichmentTrigger("dropped")
		}
	}
}

func (s *EnrichmentService) handleTrigger(ctx context.Context, job jobs.Job) error {
	submissionID, ok := job.Payload.(string)
	if !ok || submissionID == "" {
		return fmt.Errorf("malformed trigger payload")
	}
	body, err := json.Marshal(dto.EnrichmentRequest{SubmissionID: submissionID})
	if err != nil {
		return fmt.Errorf("encode trigger: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncEnrichmentTrigger("failed")
		}
		return fmt.Errorf("send trigger: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if s.metrics != nil {
			s.metrics.IncEnrichmentTrigger("failed")
		}
		return fmt.Errorf("trigger rejected with status %d", resp.StatusCode)
	}
	if s.metrics != nil {
		s.metrics.IncEnrichmentTrigger("sent")
	}
	return nil
}

// ApplyCallback merges enrichment results into the submission. The merge is
// additive and touches only the AI fields, so it commutes with moderation
// decisions on the same row. A callback for a submission that no longer
// exists is tolerated silently.
func (s *EnrichmentService) ApplyCallback(ctx context.Context, callback dto.EnrichmentCallback) error {
	if err := s.validator.Struct(callback); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrichment callback")
	}
	err := s.repo.ApplyEnrichment(ctx, callback.SubmissionID, callback.Summary,
		callback.Keywords, callback.Categories, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("enrichment callback for unknown submission",
				zap.String("submission_id", callback.SubmissionID))
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply enrichment")
	}
	if s.metrics != nil {
		s.metrics.IncEnrichmentTrigger("applied")
	}
	return nil
}
