package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/middleware"
	"github.com/noah-isme/handover-api/internal/models"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
	"github.com/noah-isme/handover-api/pkg/response"
)

type stubCodeService struct {
	validateErr error
	issueResp   *dto.IssueCodeResponse
	issueErr    error
	listItems   []dto.CodeListItem
}

func (s stubCodeService) Issue(context.Context, *models.JWTClaims) (*dto.IssueCodeResponse, error) {
	return s.issueResp, s.issueErr
}

func (s stubCodeService) Validate(context.Context, string) error {
	return s.validateErr
}

func (s stubCodeService) List(context.Context, *models.JWTClaims, int) ([]dto.CodeListItem, error) {
	return s.listItems, nil
}

func jsonContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, recorder
}

func withAdminClaims(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope
}

func TestCodeHandlerRedeemValid(t *testing.T) {
	handler := NewCodeHandler(stubCodeService{})
	c, recorder := jsonContext(t, http.MethodPost, "/api/v1/codes/redeem", dto.RedeemCodeRequest{Code: "ABC123XYZ789"})

	handler.Redeem(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	var resp dto.RedeemCodeResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &resp))
	require.True(t, resp.Valid)
	require.Empty(t, resp.Reason)
}

func TestCodeHandlerRedeemReasons(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason string
	}{
		{"not found", appErrors.ErrCodeNotFound, "CODE_NOT_FOUND"},
		{"already used", appErrors.ErrCodeUsed, "CODE_USED"},
		{"expired", appErrors.ErrCodeExpired, "CODE_EXPIRED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewCodeHandler(stubCodeService{validateErr: tc.err})
			c, recorder := jsonContext(t, http.MethodPost, "/api/v1/codes/redeem", dto.RedeemCodeRequest{Code: "ANY"})

			handler.Redeem(c)

			require.Equal(t, http.StatusOK, recorder.Code)
			envelope := decodeEnvelope(t, recorder)
			var resp dto.RedeemCodeResponse
			require.NoError(t, json.Unmarshal(envelope["data"], &resp))
			require.False(t, resp.Valid)
			require.Equal(t, tc.reason, resp.Reason)
		})
	}
}

func TestCodeHandlerRedeemInternalError(t *testing.T) {
	handler := NewCodeHandler(stubCodeService{validateErr: appErrors.ErrInternal})
	c, recorder := jsonContext(t, http.MethodPost, "/api/v1/codes/redeem", dto.RedeemCodeRequest{Code: "ANY"})

	handler.Redeem(c)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestCodeHandlerRedeemRequiresCode(t *testing.T) {
	handler := NewCodeHandler(stubCodeService{})
	c, recorder := jsonContext(t, http.MethodPost, "/api/v1/codes/redeem", nil)

	handler.Redeem(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCodeHandlerIssue(t *testing.T) {
	handler := NewCodeHandler(stubCodeService{issueResp: &dto.IssueCodeResponse{
		Code:      "ABC123XYZ789",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}})
	c, recorder := jsonContext(t, http.MethodPost, "/api/v1/codes", nil)
	withAdminClaims(c)

	handler.Issue(c)

	require.Equal(t, http.StatusCreated, recorder.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.Nil(t, envelope.Error)
}

func TestCodeHandlerIssueRequiresClaims(t *testing.T) {
	handler := NewCodeHandler(stubCodeService{})
	c, recorder := jsonContext(t, http.MethodPost, "/api/v1/codes", nil)

	handler.Issue(c)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}
