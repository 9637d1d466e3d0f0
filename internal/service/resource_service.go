package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/models"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
)

type downloadSigner interface {
	Generate(bucket, name string) (string, time.Time, error)
	Parse(token string) (bucket, name string, expiresAt time.Time, err error)
}

type resourceStore interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
}

type blobOpener interface {
	Open(bucket, name string) (*os.File, error)
}

// FileDownload bundles an open stored file with its streaming metadata.
type FileDownload struct {
	File      *os.File
	Filename  string
	SizeBytes int64
	ExpiresAt time.Time
}

// ResourceService is the read surface over the approved knowledge base.
// Pending and rejected submissions are invisible here regardless of the
// caller's role; moderation has its own view.
type ResourceService struct {
	repo    resourceStore
	storage blobOpener
	signer  downloadSigner
	logger  *zap.Logger
	prefix  string
}

// NewResourceService constructs the service.
func NewResourceService(repo resourceStore, blob blobOpener, signer downloadSigner, logger *zap.Logger, apiPrefix string) *ResourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	return &ResourceService{repo: repo, storage: blob, signer: signer, logger: logger, prefix: apiPrefix}
}

// List returns approved submissions, newest first.
func (s *ResourceService) List(ctx context.Context, page, pageSize int, actor *models.JWTClaims) ([]models.Submission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.SubmissionFilter{
		Status:   models.SubmissionStatusApproved,
		Page:     page,
		PageSize: pageSize,
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}
	return items, nil
}

// Get returns one approved submission with signed file links.
func (s *ResourceService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Submission, []dto.SubmissionFileLink, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrNotFound
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	if submission.Status != models.SubmissionStatusApproved {
		return nil, nil, appErrors.ErrNotFound
	}
	links := submissionFileLinks(submission, s.signer, s.prefix, s.logger)
	return submission, links, nil
}

// Download validates a signed token and opens the referenced stored file.
// The token itself is the capability; no further authorization applies.
func (s *ResourceService) Download(ctx context.Context, token string) (*FileDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	bucket, name, expiresAt, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	file, err := s.storage.Open(bucket, name)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file metadata")
	}
	return &FileDownload{
		File:      file,
		Filename:  name,
		SizeBytes: info.Size(),
		ExpiresAt: expiresAt,
	}, nil
}

// submissionFileLinks builds signed download URLs for every stored file on
// a submission. Signing failures drop the individual link with a warning
// rather than failing the whole read.
func submissionFileLinks(submission *models.Submission, signer downloadSigner, apiPrefix string, logger *zap.Logger) []dto.SubmissionFileLink {
	if submission == nil || signer == nil {
		return nil
	}
	base := strings.TrimRight(apiPrefix, "/")
	links := make([]dto.SubmissionFileLink, 0, len(submission.ProcessFiles)+len(submission.TemplateFiles)+len(submission.ExampleFiles))
	for _, category := range []models.FileCategory{models.FileCategoryProcess, models.FileCategoryTemplate, models.FileCategoryExample} {
		bucket := categoryBuckets[category]
		for _, name := range submission.FilesFor(category) {
			token, _, err := signer.Generate(bucket, name)
			if err != nil {
				if logger != nil {
					logger.Warn("failed to sign download link",
						zap.String("submission_id", submission.ID),
						zap.String("file", name),
						zap.Error(err))
				}
				continue
			}
			links = append(links, dto.SubmissionFileLink{
				Category:    string(category),
				Name:        name,
				DownloadURL: fmt.Sprintf("%s/files/download?token=%s", base, url.QueryEscape(token)),
			})
		}
	}
	return links
}
