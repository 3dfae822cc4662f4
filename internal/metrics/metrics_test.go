package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.IncDispatch("full", "ok")
	m.IncDispatch("full", "ok")
	m.AddRecipients("queued", 7)
	m.AddRecipients("invalid", 0)
	m.IncQuotaRejection("batch")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DispatchTotal.WithLabelValues("full", "ok")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.RecipientsTotal.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuotaRejectionsTotal.WithLabelValues("batch")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RecipientsTotal))
}

func TestHandler(t *testing.T) {
	m := New()
	m.IncDelivery("sent")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `mailer_worker_deliveries_total{result="sent"} 1`)
}
