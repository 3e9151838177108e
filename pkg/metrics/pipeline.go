package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records counters for the commission pipeline stages.
type PipelineMetrics struct {
	clicks      *prometheus.CounterVec
	conversions *prometheus.CounterVec
	commissions *prometheus.CounterVec
	batches     *prometheus.CounterVec
	settlements *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	clicks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_clicks_total",
		Help: "Recorded partner clicks by outcome.",
	}, []string{"outcome"})
	conversions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_conversions_total",
		Help: "Conversion transitions by status.",
	}, []string{"status"})
	commissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_commissions_total",
		Help: "Commission transitions by status.",
	}, []string{"status"})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_batches_total",
		Help: "Settlement batch transitions by status.",
	}, []string{"status"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_settlements_total",
		Help: "Multi-party settlement transitions by status.",
	}, []string{"status"})
	reg.MustRegister(clicks, conversions, commissions, batches, settlements)
	return &PipelineMetrics{
		clicks:      clicks,
		conversions: conversions,
		commissions: commissions,
		batches:     batches,
		settlements: settlements,
	}
}

// IncClick counts one recorded click with the given outcome.
func (p *PipelineMetrics) IncClick(outcome string) {
	if p == nil || p.clicks == nil {
		return
	}
	p.clicks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncConversion counts one conversion transition.
func (p *PipelineMetrics) IncConversion(status string) {
	if p == nil || p.conversions == nil {
		return
	}
	p.conversions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncCommission counts one commission transition.
func (p *PipelineMetrics) IncCommission(status string) {
	if p == nil || p.commissions == nil {
		return
	}
	p.commissions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncBatch counts one settlement batch transition.
func (p *PipelineMetrics) IncBatch(status string) {
	if p == nil || p.batches == nil {
		return
	}
	p.batches.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncSettlement counts one settlement transition.
func (p *PipelineMetrics) IncSettlement(status string) {
	if p == nil || p.settlements == nil {
		return
	}
	p.settlements.WithLabelValues(normalizeLabel(status)).Inc()
}
