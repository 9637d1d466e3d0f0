package dto

// CreateSeekerRequest provisions a read-only knowledge seeker account.
type CreateSeekerRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Department string `json:"department"`
}
