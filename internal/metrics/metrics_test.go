package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AccessDecision(true)
	m.AccessDecision(true)
	m.AccessDecision(false)
	m.WebhookEvent("user.created", "processed")
	m.ReviewQueue(3)
	m.Notification("review_due", nil)
	m.Notification("review_due", errors.New("closed"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.accessDecisions.WithLabelValues("granted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.accessDecisions.WithLabelValues("denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("user.created", "processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("review_due", "error")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "astral_access_decisions_total")
	assert.Contains(t, names, "astral_review_queue_size")
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
