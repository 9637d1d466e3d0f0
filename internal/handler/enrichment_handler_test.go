package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/handover-api/internal/dto"
)

type stubEnrichmentService struct {
	applied []dto.EnrichmentCallback
	err     error
}

func (s *stubEnrichmentService) ApplyCallback(_ context.Context, callback dto.EnrichmentCallback) error {
	s.applied = append(s.applied, callback)
	return s.err
}

func TestEnrichmentHandlerCallback(t *testing.T) {
	svc := &stubEnrichmentService{}
	handler := NewEnrichmentHandler(svc, "topsecret")
	c, recorder := jsonContext(t, http.MethodPost, "/api/v1/enrichment/callback", dto.EnrichmentCallback{
		SubmissionID: "sub-1",
		Summary:      "concise overview",
		Keywords:     []string{"onboarding"},
	})
	c.Request.Header.Set(CallbackSecretHeader, "topsecret")

	handler.Callback(c)

	// Status-only responses are buffered until the writer flushes.
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, recorder.Code)
	require.Len(t, svc.applied, 1)
	require.Equal(t, "sub-1", svc.applied[0].SubmissionID)
}

func TestEnrichmentHandlerCallbackRejectsWrongSecret(t *testing.T) {
	svc := &stubEnrichmentService{}
	handler := NewEnrichmentHandler(svc, "topsecret")
	c, recorder := jsonContext(t, http.MethodPost, "/api/v1/enrichment/callback", dto.EnrichmentCallback{SubmissionID: "sub-1"})
	c.Request.Header.Set(CallbackSecretHeader, "wrong")

	handler.Callback(c)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Empty(t, svc.applied)
}

func TestEnrichmentHandlerCallbackRejectsMissingSecret(t *testing.T) {
	svc := &stubEnrichmentService{}
	handler := NewEnrichmentHandler(svc, "topsecret")
	c, recorder := jsonContext(t, http.MethodPost, "/api/v1/enrichment/callback", dto.EnrichmentCallback{SubmissionID: "sub-1"})

	handler.Callback(c)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Empty(t, svc.applied)
}

func TestEnrichmentHandlerUnconfiguredSecretRefusesAll(t *testing.T) {
	svc := &stubEnrichmentService{}
	handler := NewEnrichmentHandler(svc, "")
	c, recorder := jsonContext(t, http.MethodPost, "/api/v1/enrichment/callback", dto.EnrichmentCallback{SubmissionID: "sub-1"})
	c.Request.Header.Set(CallbackSecretHeader, "")

	handler.Callback(c)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Empty(t, svc.applied)
}
