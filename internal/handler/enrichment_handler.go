package handler

import (
	"context"
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/handover-api/internal/dto"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
	"github.com/noah-isme/handover-api/pkg/response"
)

// CallbackSecretHeader carries the shared secret authenticating the
// enrichment collaborator.
const CallbackSecretHeader = "X-Enrichment-Secret"

type enrichmentService interface {
	ApplyCallback(ctx context.Context, callback dto.EnrichmentCallback) error
}

// EnrichmentHandler receives callbacks from the external enrichment
// collaborator.
type EnrichmentHandler struct {
	service enrichmentService
	secret  string
}

// NewEnrichmentHandler constructs the handler.
func NewEnrichmentHandler(service enrichmentService, secret string) *EnrichmentHandler {
	return &EnrichmentHandler{service: service, secret: secret}
}

// Callback godoc
// @Summary Apply AI enrichment results to a submission
// @Tags Enrichment
// @Accept json
// @Param request body dto.EnrichmentCallback true "Enrichment result"
// @Success 204
// @Router /enrichment/callback [post]
func (h *EnrichmentHandler) Callback(c *gin.Context) {
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(c.GetHeader(CallbackSecretHeader)), []byte(h.secret)) != 1 {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var callback dto.EnrichmentCallback
	if err := c.ShouldBindJSON(&callback); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid callback payload"))
		return
	}
	if err := h.service.ApplyCallback(c.Request.Context(), callback); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
