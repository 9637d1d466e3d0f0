package dto

import "time"

// RedeemCodeRequest carries the code presented by an uploader.
type RedeemCodeRequest struct {
	Code string `json:"code" binding:"required" validate:"required"`
}

// RedeemCodeResponse reports the advisory validation outcome. The reason
// codes mirror the error taxonomy so the client can distinguish "try a
// different code" from "this code is spent".
type RedeemCodeResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// IssueCodeResponse returns a freshly issued upload code for out-of-band
// distribution to a departing employee.
type IssueCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CodeListItem augments a stored code with its derived display state.
type CodeListItem struct {
	Code       string     `json:"code"`
	State      string     `json:"state"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}
