package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/models"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
	"github.com/noah-isme/handover-api/pkg/storage"
)

type submissionStore interface {
	Create(ctx context.Context, submission *models.Submission) error
}

type sagaCodeGate interface {
	Validate(ctx context.Context, code string) error
	Claim(ctx context.Context, code string) error
}

type submissionBlobStore interface {
	SaveStream(bucket, name string, r io.Reader) error
}

type enrichmentTrigger interface {
	TriggerAsync(submissionID string)
}

type submissionMetrics interface {
	IncSubmission(status string)
}

// SubmissionUpload carries one uploaded file's metadata and stream.
type SubmissionUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// SubmissionServiceConfig holds upload validation parameters.
type SubmissionServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// SubmissionService coordinates the multi-step submission write: upload the
// files, commit the record, claim the code, trigger enrichment. The steps
// run in that order and each phase has its own failure contract:
//
//   - an upload failure aborts before any record exists; files already
//     written stay on disk as unreferenced garbage for the cleanup sweep
//   - a commit failure leaves only that same garbage
//   - a claim conflict is surfaced to the caller even though the record
//     already exists; no compensating delete is attempted
//   - an enrichment trigger failure is invisible to the caller
type SubmissionService struct {
	repo       submissionStore
	codes      sagaCodeGate
	storage    submissionBlobStore
	enrichment enrichmentTrigger
	metrics    submissionMetrics
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        SubmissionServiceConfig
	mimeSet    map[string]struct{}
}

// NewSubmissionService constructs the saga coordinator.
func NewSubmissionService(repo submissionStore, codes sagaCodeGate, blob submissionBlobStore, enrichment enrichmentTrigger, metrics submissionMetrics, validate *validator.Validate, logger *zap.Logger, cfg SubmissionServiceConfig) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 25 * 1024 * 1024
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &SubmissionService{
		repo:       repo,
		codes:      codes,
		storage:    blob,
		enrichment: enrichment,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		mimeSet:    mimeSet,
	}
}

var categoryBuckets = map[models.FileCategory]string{
	models.FileCategoryProcess:  storage.BucketProcessDocuments,
	models.FileCategoryTemplate: storage.BucketTemplates,
	models.FileCategoryExample:  storage.BucketExamples,
}

// Submit runs the full submission saga and returns the new submission id.
func (s *SubmissionService) Submit(ctx context.Context, payload dto.SubmissionPayload, files map[models.FileCategory][]SubmissionUpload) (*dto.SubmitResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	// Advisory gate before any side effect. A code that is already spent
	// or expired here fails the whole request with nothing written. The
	// check can still go stale before the claim below; that race is the
	// claim's problem, not this check's.
	if err := s.codes.Validate(ctx, payload.Code); err != nil {
		return nil, err
	}

	submission := s.buildSubmission(payload)

	// Upload phase. Abort on the first failure; files already stored are
	// left behind on purpose and reclaimed by the storage sweep.
	for _, category := range []models.FileCategory{models.FileCategoryProcess, models.FileCategoryTemplate, models.FileCategoryExample} {
		names, err := s.uploadCategory(category, files[category])
		if err != nil {
			return nil, err
		}
		switch category {
		case models.FileCategoryProcess:
			submission.ProcessFiles = names
		case models.FileCategoryTemplate:
			submission.TemplateFiles = names
		case models.FileCategoryExample:
			submission.ExampleFiles = names
		}
	}

	// Commit phase.
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRecordCreateFailed.Code, appErrors.ErrRecordCreateFailed.Status, appErrors.ErrRecordCreateFailed.Message)
	}

	// Claim phase. On conflict the record committed above stays; deleting
	// it would be a compensation that can itself fail, so the
	// inconsistency is accepted and logged instead.
	if err := s.codes.Claim(ctx, payload.Code); err != nil {
		s.logger.Warn("code claim failed after submission commit",
			zap.String("submission_id", submission.ID),
			zap.Error(err))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncSubmission(string(models.SubmissionStatusPending))
	}

	// Enrichment is fire-and-forget; the submission is already durable.
	if s.enrichment != nil {
		s.enrichment.TriggerAsync(submission.ID)
	}

	return &dto.SubmitResponse{ID: submission.ID}, nil
}

func (s *SubmissionService) buildSubmission(payload dto.SubmissionPayload) *models.Submission {
	tools := append([]string(nil), payload.EssentialTools...)
	if custom := strings.TrimSpace(payload.CustomTools); custom != "" {
		tools = append(tools, custom)
	}
	return &models.Submission{
		ID:                   uuid.NewString(),
		UploadCode:           strings.TrimSpace(payload.Code),
		PositionLevel:        payload.PositionLevel,
		Department:           payload.Department,
		ExperienceRange:      payload.ExperienceRange,
		TeamSizeRange:        payload.TeamSizeRange,
		MainResponsibilities: pq.StringArray(payload.MainResponsibilities),
		EssentialTools:       pq.StringArray(tools),
		CriticalSkills:       pq.StringArray(payload.CriticalSkills),
		LearningResources:    payload.LearningResources,
		CommonProblems:       payload.CommonProblems,
		Solutions:            payload.Solutions,
		CommunicationMethods: pq.StringArray(payload.CommunicationMethods),
		CollaborationTips:    payload.CollaborationTips,
		HandoffAdvice:        payload.HandoffAdvice,
		FinalAdvice:          payload.FinalAdvice,
		AllowFollowup:        payload.AllowFollowup,
		Status:               models.SubmissionStatusPending,
	}
}

func (s *SubmissionService) uploadCategory(category models.FileCategory, uploads []SubmissionUpload) (pq.StringArray, error) {
	bucket := categoryBuckets[category]
	names := make(pq.StringArray, 0, len(uploads))
	for _, upload := range uploads {
		name, err := s.uploadOne(bucket, upload)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *SubmissionService) uploadOne(bucket string, upload SubmissionUpload) (string, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %q is empty", upload.Filename))
	}
	if upload.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %q exceeds %d bytes limit", upload.Filename, s.cfg.MaxFileSize))
	}
	mimeType, err := s.detectMime(upload)
	if err != nil {
		return "", err
	}
	if len(s.mimeSet) > 0 {
		if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %q has disallowed type %s", upload.Filename, mimeType))
		}
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	// Stored name is opaque; the original filename never reaches disk.
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	name := uuid.NewString() + ext
	if err := s.storage.SaveStream(bucket, name, upload.Content); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status,
			fmt.Sprintf("failed to store file %q", upload.Filename))
	}
	return name, nil
}

func (s *SubmissionService) detectMime(upload SubmissionUpload) (string, error) {
	if upload.MimeType != "" {
		return upload.MimeType, nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	return http.DetectContentType(header[:n]), nil
}
