package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/models"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
	"github.com/noah-isme/handover-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	CreateSeeker(ctx context.Context, req dto.CreateSeekerRequest, actor *models.JWTClaims) (*models.User, error)
	ListSeekers(ctx context.Context, actor *models.JWTClaims) ([]models.User, error)
}

// AuthHandler manages authentication and seeker provisioning endpoints.
type AuthHandler struct {
	service authService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service authService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login godoc
// @Summary Authenticate an admin or seeker account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// CreateSeeker godoc
// @Summary Provision a read-only seeker account
// @Tags Seekers
// @Accept json
// @Produce json
// @Param request body dto.CreateSeekerRequest true "Seeker account"
// @Success 201 {object} response.Envelope
// @Router /seekers [post]
func (h *AuthHandler) CreateSeeker(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateSeekerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid seeker payload"))
		return
	}
	user, err := h.service.CreateSeeker(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// ListSeekers godoc
// @Summary List active seeker accounts
// @Tags Seekers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /seekers [get]
func (h *AuthHandler) ListSeekers(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	users, err := h.service.ListSeekers(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}
