package dto

// SubmissionPayload is the questionnaire part of a submission request. It is
// validated in full before any side effect runs.
type SubmissionPayload struct {
	Code string `json:"code" validate:"required"`

	PositionLevel        string   `json:"position_level" validate:"required"`
	Department           string   `json:"department" validate:"required"`
	ExperienceRange      string   `json:"experience_range" validate:"required"`
	TeamSizeRange        string   `json:"team_size_range" validate:"required"`
	MainResponsibilities []string `json:"main_responsibilities" validate:"required,min=3,dive,required"`
	EssentialTools       []string `json:"essential_tools"`
	CustomTools          string   `json:"custom_tools"`
	CriticalSkills       []string `json:"critical_skills" validate:"required,min=1"`
	LearningResources    string   `json:"learning_resources" validate:"required"`
	CommonProblems       string   `json:"common_problems" validate:"required"`
	Solutions            string   `json:"solutions" validate:"required"`
	CommunicationMethods []string `json:"communication_methods" validate:"required,min=1"`
	CollaborationTips    string   `json:"collaboration_tips" validate:"required"`
	HandoffAdvice        string   `json:"handoff_advice" validate:"required"`
	FinalAdvice          string   `json:"final_advice" validate:"required"`
	AllowFollowup        bool     `json:"allow_followup"`
}

// SubmitResponse acknowledges a durably stored submission.
type SubmitResponse struct {
	ID string `json:"id"`
}

// ModerationDecision gates irreversible moderation actions. Reject refuses
// to run without the explicit confirmation flag.
type ModerationDecision struct {
	Confirm bool `json:"confirm"`
}

// ModerationResult reports the outcome of an approve/reject call. Repeats
// against an already-moderated submission come back with Changed=false and
// the terminal status echoed in Status.
type ModerationResult struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Changed bool   `json:"changed"`
}

// SubmissionFileLink pairs a stored file with a signed download URL.
type SubmissionFileLink struct {
	Category    string `json:"category"`
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
}
