package dto

// DashboardStats summarizes the moderation workload for the admin overview.
type DashboardStats struct {
	TotalSubmissions    int `json:"total_submissions"`
	PendingSubmissions  int `json:"pending_submissions"`
	ApprovedSubmissions int `json:"approved_submissions"`
	RejectedSubmissions int `json:"rejected_submissions"`
	ActiveCodes         int `json:"active_codes"`
	ActiveSeekers       int `json:"active_seekers"`
}
