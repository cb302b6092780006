package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CollectorsAreIndependentlyUsable(t *testing.T) {
	r := New()
	r.MatchDuration.WithLabelValues().Observe(0.01)
	r.RuleMatchTotal.WithLabelValues("root", "r1", "Matched").Inc()
	r.ExtractorFailures.WithLabelValues("root", "r1", "ip").Inc()
	r.DispatchTotal.WithLabelValues("archive").Inc()
	r.RetryAttempts.WithLabelValues("archive", "success").Inc()
	r.RetryBackoff.WithLabelValues("archive").Observe(0.2)
	r.MailboxDepth.WithLabelValues("matcher-0").Set(3)
}

func TestRegistry_HandlerServesMetrics(t *testing.T) {
	r := New()
	r.DispatchTotal.WithLabelValues("archive").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "tornado_dispatcher_dispatch_total")
}
