// Package metrics implements Prometheus metrics for an analysis run.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pcapentropy/internal/core"
)

// Record outcome label values.
const (
	OutcomeScored   = "scored"
	OutcomeEmpty    = "empty"
	OutcomeRejected = "rejected"
	OutcomeFiltered = "filtered"
)

const (
	recordsName      = "pcapentropy_records_total"
	rejectionsName   = "pcapentropy_rejections_total"
	payloadBytesName = "pcapentropy_payload_bytes_total"
	entropyName      = "pcapentropy_payload_entropy_bits"
)

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Records counts records read by outcome
	Records *prometheus.CounterVec
	// Rejections counts rejected records by reason
	Rejections *prometheus.CounterVec
	// PayloadBytes counts bytes of scored payloads
	PayloadBytes prometheus.Counter
	// Entropy is the distribution of payload entropy in bits
	Entropy prometheus.Histogram
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: recordsName,
				Help: "Total number of capture records read, by outcome",
			},
			[]string{"outcome"},
		),
		Rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: rejectionsName,
				Help: "Total number of records rejected by the dissector, by reason",
			},
			[]string{"reason"},
		),
		PayloadBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: payloadBytesName,
				Help: "Total number of transport payload bytes scored",
			},
		),
		Entropy: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    entropyName,
				Help:    "Shannon entropy of scored payloads in bits per byte",
				Buckets: prometheus.LinearBuckets(0.5, 0.5, 16), // 0.5 .. 8
			},
		),
	}
}

// ObserveScored records a scored payload.
func (m *Metrics) ObserveScored(length int, bits float64) {
	m.Records.WithLabelValues(OutcomeScored).Inc()
	m.PayloadBytes.Add(float64(length))
	m.Entropy.Observe(bits)
}

// ObserveEmpty records an accepted frame with no payload.
func (m *Metrics) ObserveEmpty() {
	m.Records.WithLabelValues(OutcomeEmpty).Inc()
}

// ObserveRejected records a dissector rejection.
func (m *Metrics) ObserveRejected(reason core.Reason) {
	m.Records.WithLabelValues(OutcomeRejected).Inc()
	m.Rejections.WithLabelValues(reason.String()).Inc()
}

// ObserveFiltered records a frame dropped by the frame filter.
func (m *Metrics) ObserveFiltered() {
	m.Records.WithLabelValues(OutcomeFiltered).Inc()
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Summary is the end-of-run digest printed with --summary.
type Summary struct {
	Records      uint64            `yaml:"records"`
	Scored       uint64            `yaml:"scored"`
	Empty        uint64            `yaml:"empty"`
	Filtered     uint64            `yaml:"filtered"`
	Rejected     uint64            `yaml:"rejected"`
	Reasons      map[string]uint64 `yaml:"reasons,omitempty"`
	PayloadBytes uint64            `yaml:"payload_bytes"`
	MeanEntropy  float64           `yaml:"mean_entropy"`
}

// Summary gathers the registry into a Summary.
func (m *Metrics) Summary() (Summary, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var s Summary
	for _, mf := range families {
		switch mf.GetName() {
		case recordsName:
			for _, metric := range mf.GetMetric() {
				n := uint64(metric.GetCounter().GetValue())
				s.Records += n
				switch labelValue(metric, "outcome") {
				case OutcomeScored:
					s.Scored = n
				case OutcomeEmpty:
					s.Empty = n
				case OutcomeFiltered:
					s.Filtered = n
				case OutcomeRejected:
					s.Rejected = n
				}
			}
		case rejectionsName:
			for _, metric := range mf.GetMetric() {
				if s.Reasons == nil {
					s.Reasons = make(map[string]uint64)
				}
				s.Reasons[labelValue(metric, "reason")] = uint64(metric.GetCounter().GetValue())
			}
		case payloadBytesName:
			for _, metric := range mf.GetMetric() {
				s.PayloadBytes = uint64(metric.GetCounter().GetValue())
			}
		case entropyName:
			for _, metric := range mf.GetMetric() {
				h := metric.GetHistogram()
				if h.GetSampleCount() > 0 {
					s.MeanEntropy = h.GetSampleSum() / float64(h.GetSampleCount())
				}
			}
		}
	}
	return s, nil
}

// WriteYAML encodes s as YAML.
func (s Summary) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return enc.Close()
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
