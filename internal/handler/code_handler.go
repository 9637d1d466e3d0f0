package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/models"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
	"github.com/noah-isme/handover-api/pkg/response"
)

type codeService interface {
	Issue(ctx context.Context, actor *models.JWTClaims) (*dto.IssueCodeResponse, error)
	Validate(ctx context.Context, code string) error
	List(ctx context.Context, actor *models.JWTClaims, limit int) ([]dto.CodeListItem, error)
}

// CodeHandler manages upload-code HTTP endpoints.
type CodeHandler struct {
	service codeService
}

// NewCodeHandler constructs the handler.
func NewCodeHandler(service codeService) *CodeHandler {
	return &CodeHandler{service: service}
}

// Redeem godoc
// @Summary Check whether an upload code can start a submission
// @Tags Codes
// @Accept json
// @Produce json
// @Param request body dto.RedeemCodeRequest true "Code"
// @Success 200 {object} response.Envelope
// @Router /codes/redeem [post]
func (h *CodeHandler) Redeem(c *gin.Context) {
	var req dto.RedeemCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "code is required"))
		return
	}

	err := h.service.Validate(c.Request.Context(), req.Code)
	if err == nil {
		response.JSON(c, http.StatusOK, dto.RedeemCodeResponse{Valid: true}, nil)
		return
	}

	// Redemption outcomes are answers, not errors: the client needs the
	// reason to tell "try a different code" from "this code is spent".
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case appErrors.ErrCodeNotFound.Code, appErrors.ErrCodeUsed.Code, appErrors.ErrCodeExpired.Code:
			response.JSON(c, http.StatusOK, dto.RedeemCodeResponse{Valid: false, Reason: appErr.Code}, nil)
			return
		}
	}
	response.Error(c, err)
}

// Issue godoc
// @Summary Issue a single-use upload code
// @Tags Codes
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /codes [post]
func (h *CodeHandler) Issue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp, err := h.service.Issue(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// List godoc
// @Summary List recently issued upload codes
// @Tags Codes
// @Produce json
// @Param limit query int false "Max results"
// @Success 200 {object} response.Envelope
// @Router /codes [get]
func (h *CodeHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	items, err := h.service.List(c.Request.Context(), claims, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
