package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/models"
	"github.com/noah-isme/handover-api/internal/service"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
	"github.com/noah-isme/handover-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, payload dto.SubmissionPayload, files map[models.FileCategory][]service.SubmissionUpload) (*dto.SubmitResponse, error)
}

// Multipart form field names for the three file categories.
var categoryFields = []struct {
	field    string
	category models.FileCategory
}{
	{"processFiles", models.FileCategoryProcess},
	{"templateFiles", models.FileCategoryTemplate},
	{"exampleFiles", models.FileCategoryExample},
}

// SubmissionHandler accepts anonymous knowledge submissions.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

// Submit godoc
// @Summary Submit a knowledge handoff
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param payload formData string true "Questionnaire JSON"
// @Param processFiles formData file false "Process documents"
// @Param templateFiles formData file false "Templates"
// @Param exampleFiles formData file false "Examples"
// @Success 201 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "multipart form required"))
		return
	}

	values := form.Value["payload"]
	if len(values) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "payload part is required"))
		return
	}
	var payload dto.SubmissionPayload
	if err := json.Unmarshal([]byte(values[0]), &payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed payload json"))
		return
	}

	files := make(map[models.FileCategory][]service.SubmissionUpload)
	for _, cf := range categoryFields {
		uploads, err := openUploads(form.File[cf.field])
		if err != nil {
			response.Error(c, err)
			return
		}
		if len(uploads) > 0 {
			files[cf.category] = uploads
		}
	}

	resp, err := h.service.Submit(c.Request.Context(), payload, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

func openUploads(headers []*multipart.FileHeader) ([]service.SubmissionUpload, error) {
	uploads := make([]service.SubmissionUpload, 0, len(headers))
	for _, header := range headers {
		src, err := header.Open()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open uploaded file")
		}
		reader, ok := src.(io.ReadSeeker)
		if !ok {
			buf, readErr := io.ReadAll(src)
			src.Close() //nolint:errcheck
			if readErr != nil {
				return nil, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer uploaded file")
			}
			reader = bytes.NewReader(buf)
		}
		uploads = append(uploads, service.SubmissionUpload{
			Filename: header.Filename,
			Size:     header.Size,
			MimeType: header.Header.Get("Content-Type"),
			Content:  reader,
		})
	}
	return uploads, nil
}
