// Package observability exposes Prometheus metrics for sessions, stores
// and notification sinks.
package observability

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/tminus/internal/logger"
)

const namespace = "tminus"

var (
	writesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "target_writes_total",
		Help:      "Target writes submitted to the shared store, labeled by result.",
	}, []string{"result"})

	deliveriesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "target_deliveries_total",
		Help:      "Target values delivered to sessions by store subscriptions.",
	})

	cancellationsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "subscription_cancellations_total",
		Help:      "Times live delivery was interrupted.",
	})

	ticksCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "ticks_total",
		Help:      "Countdown ticks rendered.",
	})

	remainingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "remaining_seconds",
		Help:      "Seconds left until the current target, zero when idle or complete.",
	})

	notificationsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fanout",
		Name:      "notifications_total",
		Help:      "Notifications sent per sink, labeled by result.",
	}, []string{"sink", "result"})
)

func init() {
	prometheus.MustRegister(writesCounter, deliveriesCounter, cancellationsCounter, ticksCounter, remainingGauge, notificationsCounter)
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordWrite counts a target write.
func RecordWrite(err error) {
	writesCounter.WithLabelValues(result(err)).Inc()
}

// RecordDelivery counts a value delivered by a subscription.
func RecordDelivery() {
	deliveriesCounter.Inc()
}

// RecordCancellation counts an interrupted subscription.
func RecordCancellation() {
	cancellationsCounter.Inc()
}

// RecordTick counts a rendered tick and updates the remaining gauge.
func RecordTick(remainingSeconds int64) {
	ticksCounter.Inc()
	SetRemaining(remainingSeconds)
}

// SetRemaining updates the remaining gauge.
func SetRemaining(seconds int64) {
	if seconds < 0 {
		seconds = 0
	}
	remainingGauge.Set(float64(seconds))
}

// RecordNotification counts a notification attempt for sink.
func RecordNotification(sink string, err error) {
	notificationsCounter.WithLabelValues(sink, result(err)).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Metrics endpoint listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
