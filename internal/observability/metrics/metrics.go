package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	validationTotal *prometheus.CounterVec
	bookingLatency  prometheus.Histogram
	inFlight        prometheus.Gauge
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caresync",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking requests by terminal outcome",
		}, []string{"outcome"}),
		validationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caresync",
			Subsystem: "booking",
			Name:      "patient_validation_total",
			Help:      "Patient validation attempts by result",
		}, []string{"result"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "caresync",
			Subsystem: "booking",
			Name:      "request_duration_seconds",
			Help:      "End-to-end booking request latency",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "caresync",
			Subsystem: "booking",
			Name:      "in_flight",
			Help:      "Booking requests currently being processed",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.validationTotal, m.bookingLatency, m.inFlight)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.Observe(elapsed.Seconds())
}

func (m *BookingMetrics) ObserveValidation(result string) {
	if m == nil {
		return
	}
	m.validationTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) IncInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *BookingMetrics) DecInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
