package models

import "time"

// UploadCode is a single-use, time-limited credential gating the anonymous
// submission flow. Rows are never deleted; spent codes are the audit trail.
type UploadCode struct {
	Code       string     `db:"code" json:"code"`
	IssuedBy   string     `db:"issued_by" json:"issued_by"`
	IssuedAt   time.Time  `db:"issued_at" json:"issued_at"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	Consumed   bool       `db:"consumed" json:"consumed"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
}

// Usable reports whether the code can still authorize a submission at the
// given instant. Expiry is derived from the clock, never stored.
func (c *UploadCode) Usable(now time.Time) bool {
	return !c.Consumed && now.Before(c.ExpiresAt)
}

// State returns the display state used by the admin code listing.
func (c *UploadCode) State(now time.Time) string {
	switch {
	case c.Consumed:
		return "used"
	case !now.Before(c.ExpiresAt):
		return "expired"
	default:
		return "active"
	}
}
