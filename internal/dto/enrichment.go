package dto

// EnrichmentCallback is the payload delivered by the external enrichment
// collaborator, seconds to never after the submission was committed.
type EnrichmentCallback struct {
	SubmissionID string   `json:"submission_id" validate:"required"`
	Summary      string   `json:"summary"`
	Keywords     []string `json:"keywords"`
	Categories   []string `json:"categories"`
}

// EnrichmentRequest is the outbound fire-and-forget trigger body.
type EnrichmentRequest struct {
	SubmissionID string `json:"submission_id"`
}
