package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()

	r.ObserveRetrieval("ok", 10*time.Millisecond)
	r.ObserveRetrieval("error", time.Second)
	r.ObserveRetrieval("error", time.Second)
	r.ToolCalled("compare_strategies", "degraded")
	r.ChatHandled("ok")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.retrievalAttempts.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.retrievalAttempts.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.toolCalls.WithLabelValues("compare_strategies", "degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.chatRequests.WithLabelValues("ok")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRetrieval("ok", time.Millisecond)
		r.ToolCalled("x", "live")
		r.ChatHandled("ok")
	})
	assert.Nil(t, r.Registry())
	assert.NotNil(t, r.Handler())
}
