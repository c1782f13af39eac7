package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/registryhub/internal/app/system/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := metrics.New()
	b := metrics.New()
	a.IncReview("approved")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Reviews.WithLabelValues("approved")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Reviews.WithLabelValues("approved")))
}

func TestCounters(t *testing.T) {
	m := metrics.New()
	m.IncRegistration("created")
	m.IncRegistration("created")
	m.IncRegistration("duplicate")
	m.IncLogin("failure")
	m.IncRegistryChange("deleted")
	m.ObserveExport(120 * time.Millisecond)
	m.AddBlobsSwept(3)
	m.AddBlobsSwept(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Registrations.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistryChanges.WithLabelValues("deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exports))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.BlobsSwept))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.IncRegistration("created")
	m.IncReview("approved")
	m.IncRegistryChange("updated")
	m.IncLogin("success")
	m.ObserveExport(time.Second)
	m.AddBlobsSwept(1)
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.IncReview("rejected")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `registryhub_reviews_total{decision="rejected"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
