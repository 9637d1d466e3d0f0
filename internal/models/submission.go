package models

import (
	"time"

	"github.com/lib/pq"
)

// SubmissionStatus is the moderation state of a knowledge submission.
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// FileCategory partitions uploaded files into their storage buckets.
type FileCategory string

const (
	FileCategoryProcess  FileCategory = "process"
	FileCategoryTemplate FileCategory = "template"
	FileCategoryExample  FileCategory = "example"
)

// Submission is one anonymous knowledge handoff: the questionnaire answers,
// the stored-file names per category, the moderation state and the optional
// AI enrichment fields. The saga coordinator writes the row once; moderation
// owns the status fields; the enrichment consumer owns the ai_* fields.
type Submission struct {
	ID         string `db:"id" json:"id"`
	UploadCode string `db:"upload_code" json:"-"`

	PositionLevel        string         `db:"position_level" json:"position_level"`
	Department           string         `db:"department" json:"department"`
	ExperienceRange      string         `db:"experience_range" json:"experience_range"`
	TeamSizeRange        string         `db:"team_size_range" json:"team_size_range"`
	MainResponsibilities pq.StringArray `db:"main_responsibilities" json:"main_responsibilities"`
	EssentialTools       pq.StringArray `db:"essential_tools" json:"essential_tools"`
	CriticalSkills       pq.StringArray `db:"critical_skills" json:"critical_skills"`
	LearningResources    string         `db:"learning_resources" json:"learning_resources"`
	CommonProblems       string         `db:"common_problems" json:"common_problems"`
	Solutions            string         `db:"solutions" json:"solutions"`
	CommunicationMethods pq.StringArray `db:"communication_methods" json:"communication_methods"`
	CollaborationTips    string         `db:"collaboration_tips" json:"collaboration_tips"`
	HandoffAdvice        string         `db:"handoff_advice" json:"handoff_advice"`
	FinalAdvice          string         `db:"final_advice" json:"final_advice"`
	AllowFollowup        bool           `db:"allow_followup" json:"allow_followup"`

	ProcessFiles  pq.StringArray `db:"process_files" json:"process_files"`
	TemplateFiles pq.StringArray `db:"template_files" json:"template_files"`
	ExampleFiles  pq.StringArray `db:"example_files" json:"example_files"`

	Status     SubmissionStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	ApprovedAt *time.Time       `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy *string          `db:"approved_by" json:"approved_by,omitempty"`

	AISummary    *string        `db:"ai_summary" json:"ai_summary,omitempty"`
	AIKeywords   pq.StringArray `db:"ai_keywords" json:"ai_keywords,omitempty"`
	AICategories pq.StringArray `db:"ai_categories" json:"ai_categories,omitempty"`
	EnrichedAt   *time.Time     `db:"enriched_at" json:"enriched_at,omitempty"`
}

// FilesFor returns the stored names for one category.
func (s *Submission) FilesFor(category FileCategory) []string {
	switch category {
	case FileCategoryProcess:
		return s.ProcessFiles
	case FileCategoryTemplate:
		return s.TemplateFiles
	case FileCategoryExample:
		return s.ExampleFiles
	default:
		return nil
	}
}

// SubmissionFilter narrows moderation queue listings.
type SubmissionFilter struct {
	Status   SubmissionStatus
	Page     int
	PageSize int
}

// SubmissionCounts aggregates the dashboard totals.
type SubmissionCounts struct {
	Total    int `db:"total" json:"total"`
	Pending  int `db:"pending" json:"pending"`
	Approved int `db:"approved" json:"approved"`
	Rejected int `db:"rejected" json:"rejected"`
}
