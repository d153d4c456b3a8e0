package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordWrite(t *testing.T) {
	ok := testutil.ToFloat64(writesCounter.WithLabelValues("success"))
	failed := testutil.ToFloat64(writesCounter.WithLabelValues("failure"))

	RecordWrite(nil)
	RecordWrite(errors.New("boom"))
	RecordWrite(errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(writesCounter.WithLabelValues("success")))
	assert.Equal(t, failed+2, testutil.ToFloat64(writesCounter.WithLabelValues("failure")))
}

func TestRecordNotificationLabelsSink(t *testing.T) {
	before := testutil.ToFloat64(notificationsCounter.WithLabelValues("webhook", "failure"))
	RecordNotification("webhook", errors.New("timeout"))
	assert.Equal(t, before+1, testutil.ToFloat64(notificationsCounter.WithLabelValues("webhook", "failure")))
}

func TestRemainingGaugeClampsNegative(t *testing.T) {
	RecordTick(90)
	assert.Equal(t, float64(90), testutil.ToFloat64(remainingGauge))

	SetRemaining(-5)
	assert.Equal(t, float64(0), testutil.ToFloat64(remainingGauge))
}
