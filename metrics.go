package signedxml

import "github.com/prometheus/client_golang/prometheus"

// MetricsRecorder receives the outcome of every signing and validation
// call made through an Engine.
type MetricsRecorder interface {
	// RecordSign records a signing attempt.
	RecordSign(success bool)

	// RecordValidation records the result of a document validation that
	// completed without an argument error.
	RecordValidation(valid bool)
}

// NoopMetricsRecorder discards all measurements.
type NoopMetricsRecorder struct{}

// RecordSign is a no-op.
func (NoopMetricsRecorder) RecordSign(success bool) {}

// RecordValidation is a no-op.
func (NoopMetricsRecorder) RecordValidation(valid bool) {}

// PrometheusMetricsRecorder counts signing and validation results.
type PrometheusMetricsRecorder struct {
	signTotal        *prometheus.CounterVec
	validationsTotal *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the signedxml counters on reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	signTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signedxml_sign_total",
		Help: "Total XML signing attempts",
	}, []string{"result"})

	validationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signedxml_validations_total",
		Help: "Total XML signature validations",
	}, []string{"result"})

	reg.MustRegister(signTotal, validationsTotal)

	return &PrometheusMetricsRecorder{
		signTotal:        signTotal,
		validationsTotal: validationsTotal,
	}
}

// RecordSign records a signing attempt.
func (p *PrometheusMetricsRecorder) RecordSign(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	p.signTotal.WithLabelValues(result).Inc()
}

// RecordValidation records a validation result.
func (p *PrometheusMetricsRecorder) RecordValidation(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	p.validationsTotal.WithLabelValues(result).Inc()
}
