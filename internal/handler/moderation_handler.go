package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/models"
	"github.com/noah-isme/handover-api/internal/service"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
	"github.com/noah-isme/handover-api/pkg/response"
)

type moderationService interface {
	List(ctx context.Context, filter models.SubmissionFilter, actor *models.JWTClaims) ([]models.Submission, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Submission, []dto.SubmissionFileLink, error)
	Approve(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ModerationResult, error)
	Reject(ctx context.Context, id string, decision dto.ModerationDecision, actor *models.JWTClaims) (*dto.ModerationResult, error)
}

type exportService interface {
	SubmissionPDF(ctx context.Context, id string, actor *models.JWTClaims) (*service.ExportFile, error)
	SubmissionsCSV(ctx context.Context, filter models.SubmissionFilter, actor *models.JWTClaims) (*service.ExportFile, error)
}

// ModerationHandler manages the admin submission queue.
type ModerationHandler struct {
	service moderationService
	export  exportService
}

// NewModerationHandler constructs the handler.
func NewModerationHandler(service moderationService, export exportService) *ModerationHandler {
	return &ModerationHandler{service: service, export: export}
}

// List godoc
// @Summary List submissions for moderation
// @Tags Moderation
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *ModerationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.SubmissionFilter{
		Status: models.SubmissionStatus(c.Query("status")),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "50"))

	items, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: len(items),
	})
}

// Get godoc
// @Summary Get one submission with signed file links
// @Tags Moderation
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *ModerationHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	submission, links, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"submission": submission,
		"files":      links,
	}, nil)
}

// Approve godoc
// @Summary Approve a pending submission
// @Tags Moderation
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/approve [post]
func (h *ModerationHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject a pending submission
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param request body dto.ModerationDecision true "Confirmation"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/reject [post]
func (h *ModerationHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var decision dto.ModerationDecision
	if err := c.ShouldBindJSON(&decision); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	result, err := h.service.Reject(c.Request.Context(), c.Param("id"), decision, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export a submission as a handoff-brief PDF
// @Tags Moderation
// @Produce application/pdf
// @Param id path string true "Submission ID"
// @Success 200 {file} binary
// @Router /submissions/{id}/export [get]
func (h *ModerationHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.export == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	file, err := h.export.SubmissionPDF(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// ExportCSV godoc
// @Summary Export the submission queue as CSV
// @Tags Moderation
// @Produce text/csv
// @Param status query string false "Status filter"
// @Success 200 {file} binary
// @Router /submissions/export [get]
func (h *ModerationHandler) ExportCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.export == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	filter := models.SubmissionFilter{Status: models.SubmissionStatus(c.Query("status"))}
	file, err := h.export.SubmissionsCSV(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
