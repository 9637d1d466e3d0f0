package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/models"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
	"github.com/noah-isme/handover-api/pkg/storage"
)

type submissionRepoStub struct {
	mu        sync.Mutex
	items     map[string]*models.Submission
	createErr error
}

func newSubmissionRepoStub() *submissionRepoStub {
	return &submissionRepoStub{items: make(map[string]*models.Submission)}
}

func (r *submissionRepoStub) Create(ctx context.Context, submission *models.Submission) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now().UTC()
	}
	stored := *submission
	r.items[submission.ID] = &stored
	return nil
}

func (r *submissionRepoStub) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[id]; ok {
		copy := *item
		return &copy, nil
	}
	return nil, fmt.Errorf("not found")
}

type blobStoreStub struct {
	mu      sync.Mutex
	saved   map[string][]byte
	failOn  int
	saveErr error
	calls   int
}

func newBlobStoreStub() *blobStoreStub {
	return &blobStoreStub{saved: make(map[string][]byte), failOn: -1}
}

func (s *blobStoreStub) SaveStream(bucket, name string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn >= 0 && s.calls > s.failOn {
		if s.saveErr != nil {
			return s.saveErr
		}
		return fmt.Errorf("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.saved[bucket+"/"+name] = data
	return nil
}

type enrichmentStub struct {
	mu        sync.Mutex
	triggered []string
}

func (e *enrichmentStub) TriggerAsync(submissionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.triggered = append(e.triggered, submissionID)
}

func validPayload(code string) dto.SubmissionPayload {
	return dto.SubmissionPayload{
		Code:                 code,
		PositionLevel:        "senior",
		Department:           "engineering",
		ExperienceRange:      "5-10",
		TeamSizeRange:        "5-10",
		MainResponsibilities: []string{"deploys", "code review", "incident response"},
		EssentialTools:       []string{"terraform", "grafana"},
		CustomTools:          "an internal release dashboard",
		CriticalSkills:       []string{"debugging"},
		LearningResources:    "the runbook wiki",
		CommonProblems:       "flaky integration environment",
		Solutions:            "pin the fixture versions",
		CommunicationMethods: []string{"slack"},
		CollaborationTips:    "overcommunicate during releases",
		HandoffAdvice:        "read the oncall postmortems first",
		FinalAdvice:          "automate the boring parts",
		AllowFollowup:        true,
	}
}

func uploadOf(name, content string) SubmissionUpload {
	return SubmissionUpload{
		Filename: name,
		Size:     int64(len(content)),
		MimeType: "text/plain",
		Content:  bytes.NewReader([]byte(content)),
	}
}

func newSagaFixture(t *testing.T) (*SubmissionService, *submissionRepoStub, *codeRepoStub, *blobStoreStub, *enrichmentStub) {
	t.Helper()
	repo := newSubmissionRepoStub()
	codes := newCodeRepoStub()
	blob := newBlobStoreStub()
	enrichment := &enrichmentStub{}
	codeSvc := NewCodeService(codes, nil, nil, nil, CodeServiceConfig{})
	svc := NewSubmissionService(repo, codeSvc, blob, enrichment, nil, nil, nil, SubmissionServiceConfig{
		AllowedMIMEs: []string{"text/plain"},
	})
	return svc, repo, codes, blob, enrichment
}

func TestSubmissionSagaHappyPath(t *testing.T) {
	svc, repo, codes, blob, enrichment := newSagaFixture(t)
	seedCode(codes, "ABC123XYZ789", time.Hour, false)

	files := map[models.FileCategory][]SubmissionUpload{
		models.FileCategoryProcess:  {uploadOf("runbook.txt", "step one")},
		models.FileCategoryTemplate: {uploadOf("template.txt", "fill this in")},
	}
	resp, err := svc.Submit(context.Background(), validPayload("ABC123XYZ789"), files)
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)

	stored, err := repo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPending, stored.Status)
	require.Len(t, stored.ProcessFiles, 1)
	require.Len(t, stored.TemplateFiles, 1)
	require.Empty(t, stored.ExampleFiles)
	// Stored names are opaque; the original filename must not leak.
	require.NotContains(t, stored.ProcessFiles[0], "runbook")
	require.True(t, strings.HasSuffix(stored.ProcessFiles[0], ".txt"))
	// Free-text tools fold into the tools list.
	require.Contains(t, []string(stored.EssentialTools), "an internal release dashboard")

	code, err := codes.FindByCode(context.Background(), "ABC123XYZ789")
	require.NoError(t, err)
	require.True(t, code.Consumed)

	require.Len(t, blob.saved, 2)
	for key := range blob.saved {
		require.True(t, strings.HasPrefix(key, storage.BucketProcessDocuments+"/") ||
			strings.HasPrefix(key, storage.BucketTemplates+"/"))
	}
	require.Equal(t, []string{resp.ID}, enrichment.triggered)
}

func TestSubmissionSagaRejectsInvalidPayload(t *testing.T) {
	svc, repo, codes, blob, _ := newSagaFixture(t)
	seedCode(codes, "ABC123XYZ789", time.Hour, false)

	payload := validPayload("ABC123XYZ789")
	payload.MainResponsibilities = []string{"only one"}

	_, err := svc.Submit(context.Background(), payload, nil)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Empty(t, repo.items)
	require.Empty(t, blob.saved)
}

func TestSubmissionSagaExpiredCodeWritesNothing(t *testing.T) {
	svc, repo, codes, blob, enrichment := newSagaFixture(t)
	seedCode(codes, "OLD001", -time.Hour, false)

	files := map[models.FileCategory][]SubmissionUpload{
		models.FileCategoryProcess: {uploadOf("runbook.txt", "step one")},
	}
	_, err := svc.Submit(context.Background(), validPayload("OLD001"), files)
	require.ErrorIs(t, err, appErrors.ErrCodeExpired)
	require.Empty(t, repo.items)
	require.Empty(t, blob.saved)
	require.Empty(t, enrichment.triggered)
}

func TestSubmissionSagaUploadFailureAborts(t *testing.T) {
	svc, repo, codes, blob, enrichment := newSagaFixture(t)
	seedCode(codes, "ABC123XYZ789", time.Hour, false)
	blob.failOn = 1

	files := map[models.FileCategory][]SubmissionUpload{
		models.FileCategoryProcess: {
			uploadOf("first.txt", "ok"),
			uploadOf("second.txt", "fails"),
		},
	}
	_, err := svc.Submit(context.Background(), validPayload("ABC123XYZ789"), files)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrUploadFailed.Code, appErr.Code)
	require.Contains(t, appErr.Message, "second.txt")

	// No record, no claim. The first file stays behind as garbage.
	require.Empty(t, repo.items)
	code, lookupErr := codes.FindByCode(context.Background(), "ABC123XYZ789")
	require.NoError(t, lookupErr)
	require.False(t, code.Consumed)
	require.Len(t, blob.saved, 1)
	require.Empty(t, enrichment.triggered)
}

func TestSubmissionSagaCommitFailure(t *testing.T) {
	svc, repo, codes, _, enrichment := newSagaFixture(t)
	seedCode(codes, "ABC123XYZ789", time.Hour, false)
	repo.createErr = fmt.Errorf("connection reset")

	_, err := svc.Submit(context.Background(), validPayload("ABC123XYZ789"), nil)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrRecordCreateFailed.Code, appErr.Code)

	code, lookupErr := codes.FindByCode(context.Background(), "ABC123XYZ789")
	require.NoError(t, lookupErr)
	require.False(t, code.Consumed)
	require.Empty(t, enrichment.triggered)
}

func TestSubmissionSagaClaimConflictKeepsRecord(t *testing.T) {
	svc, repo, codes, _, enrichment := newSagaFixture(t)
	seedCode(codes, "XYZ999", time.Hour, false)

	// First submission wins the code.
	first, err := svc.Submit(context.Background(), validPayload("XYZ999"), nil)
	require.NoError(t, err)

	// A second submission that passed the advisory check but lost the
	// claim race: the gate stub models the code being stolen in between.
	conflictSvc := NewSubmissionService(repo, conflictGate{}, newBlobStoreStub(), enrichment, nil, nil, nil, SubmissionServiceConfig{})

	_, err = conflictSvc.Submit(context.Background(), validPayload("XYZ999"), nil)
	require.ErrorIs(t, err, appErrors.ErrClaimConflict)

	// Both records exist: the winner's, and the loser's orphaned row. The
	// orphan is the documented accepted inconsistency.
	require.Len(t, repo.items, 2)
	_, err = repo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
}

// conflictGate passes validation but always loses the claim, standing in
// for a code stolen between the advisory check and the claim.
type conflictGate struct{}

func (conflictGate) Validate(ctx context.Context, code string) error { return nil }
func (conflictGate) Claim(ctx context.Context, code string) error {
	return appErrors.ErrClaimConflict
}

func TestSubmissionSagaRejectsOversizeFile(t *testing.T) {
	repo := newSubmissionRepoStub()
	codes := newCodeRepoStub()
	seedCode(codes, "ABC123XYZ789", time.Hour, false)
	codeSvc := NewCodeService(codes, nil, nil, nil, CodeServiceConfig{})
	svc := NewSubmissionService(repo, codeSvc, newBlobStoreStub(), nil, nil, nil, nil, SubmissionServiceConfig{
		MaxFileSize: 4,
	})

	files := map[models.FileCategory][]SubmissionUpload{
		models.FileCategoryProcess: {uploadOf("big.txt", "more than four bytes")},
	}
	_, err := svc.Submit(context.Background(), validPayload("ABC123XYZ789"), files)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Empty(t, repo.items)
}
