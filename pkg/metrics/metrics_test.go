package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierIssued(t *testing.T) {
	before := testutil.ToFloat64(identifiersIssuedTotal.WithLabelValues("PATIENT", "fallback"))

	IdentifierIssued("PATIENT", "fallback")

	after := testutil.ToFloat64(identifiersIssuedTotal.WithLabelValues("PATIENT", "fallback"))
	assert.Equal(t, before+1, after)
}

func TestHandler_ExposesCounters(t *testing.T) {
	ObserveHTTPRequest(http.MethodGet, "/api/v1/orders", "200", 0.02)
	PaymentRecorded("invoice")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, `payments_recorded_total{target="invoice"}`)
}
