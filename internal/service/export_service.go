package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/handover-api/internal/models"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
	"github.com/noah-isme/handover-api/pkg/export"
)

type exportSubmissionReader interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile bundles rendered export bytes with download metadata.
type ExportFile struct {
	Content     []byte
	Filename    string
	ContentType string
}

// ExportService renders submissions as handoff-brief PDFs and the
// moderation queue as CSV.
type ExportService struct {
	repo   exportSubmissionReader
	pdf    pdfRenderer
	csv    csvRenderer
	logger *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(repo exportSubmissionReader, pdf pdfRenderer, csv csvRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &ExportService{repo: repo, pdf: pdf, csv: csv, logger: logger}
}

// SubmissionPDF renders one submission as a handoff brief.
func (s *ExportService) SubmissionPDF(ctx context.Context, id string, actor *models.JWTClaims) (*ExportFile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	content, err := s.pdf.Render(buildHandoffBrief(submission))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return &ExportFile{
		Content:     content,
		Filename:    fmt.Sprintf("handoff-brief-%s.pdf", submission.ID),
		ContentType: "application/pdf",
	}, nil
}

// SubmissionsCSV renders the submission queue as a spreadsheet.
func (s *ExportService) SubmissionsCSV(ctx context.Context, filter models.SubmissionFilter, actor *models.JWTClaims) (*ExportFile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}

	dataset := export.Dataset{
		Headers: []string{"id", "status", "department", "position_level", "created_at", "files"},
	}
	for _, item := range items {
		files := len(item.ProcessFiles) + len(item.TemplateFiles) + len(item.ExampleFiles)
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":             item.ID,
			"status":         string(item.Status),
			"department":     item.Department,
			"position_level": item.PositionLevel,
			"created_at":     item.CreatedAt.Format(time.RFC3339),
			"files":          fmt.Sprintf("%d", files),
		})
	}
	content, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return &ExportFile{
		Content:     content,
		Filename:    fmt.Sprintf("submissions-%s.csv", time.Now().UTC().Format("20060102")),
		ContentType: "text/csv",
	}, nil
}

func buildHandoffBrief(submission *models.Submission) export.Document {
	doc := export.Document{
		Title:    "Knowledge Handoff Brief",
		Subtitle: fmt.Sprintf("%s / %s / submitted %s", submission.Department, submission.PositionLevel, submission.CreatedAt.Format("2006-01-02")),
	}
	doc.Sections = append(doc.Sections,
		export.Section{
			Heading: "Role Context",
			Paragraphs: []string{
				fmt.Sprintf("Experience: %s. Team size: %s.", submission.ExperienceRange, submission.TeamSizeRange),
			},
		},
		export.Section{
			Heading: "Main Responsibilities",
			Bullets: submission.MainResponsibilities,
		},
		export.Section{
			Heading: "Tools and Skills",
			Bullets: append(append([]string(nil), submission.EssentialTools...), submission.CriticalSkills...),
		},
		export.Section{
			Heading:    "Learning Resources",
			Paragraphs: []string{submission.LearningResources},
		},
		export.Section{
			Heading:    "Problems and Solutions",
			Paragraphs: []string{submission.CommonProblems, submission.Solutions},
		},
		export.Section{
			Heading:    "Collaboration",
			Paragraphs: []string{submission.CollaborationTips},
			Bullets:    submission.CommunicationMethods,
		},
		export.Section{
			Heading:    "Advice",
			Paragraphs: []string{submission.HandoffAdvice, submission.FinalAdvice},
		},
	)
	if submission.AISummary != nil && strings.TrimSpace(*submission.AISummary) != "" {
		doc.Sections = append(doc.Sections, export.Section{
			Heading:    "AI Summary",
			Paragraphs: []string{*submission.AISummary},
			Tags:       append(append([]string(nil), submission.AIKeywords...), submission.AICategories...),
		})
	}
	return doc
}
