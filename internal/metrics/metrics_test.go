package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pcapentropy/internal/core"
)

func populated() *Metrics {
	m := New()
	m.ObserveScored(32, 5)
	m.ObserveScored(100, 7)
	m.ObserveEmpty()
	m.ObserveFiltered()
	m.ObserveRejected(core.ReasonShortIPHeader)
	m.ObserveRejected(core.ReasonUnsupportedTransport)
	m.ObserveRejected(core.ReasonUnsupportedTransport)
	return m
}

func TestCounters(t *testing.T) {
	m := populated()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Records.WithLabelValues(OutcomeScored)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Records.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Rejections.WithLabelValues("non-UDP-TCP packet")))
	assert.Equal(t, 132.0, testutil.ToFloat64(m.PayloadBytes))
}

func TestSummary(t *testing.T) {
	s, err := populated().Summary()
	require.NoError(t, err)

	assert.Equal(t, uint64(7), s.Records)
	assert.Equal(t, uint64(2), s.Scored)
	assert.Equal(t, uint64(1), s.Empty)
	assert.Equal(t, uint64(1), s.Filtered)
	assert.Equal(t, uint64(3), s.Rejected)
	assert.Equal(t, uint64(132), s.PayloadBytes)
	assert.InDelta(t, 6.0, s.MeanEntropy, 1e-9)
	assert.Equal(t, map[string]uint64{
		"Short IP Header":    1,
		"non-UDP-TCP packet": 2,
	}, s.Reasons)
}

func TestSummaryEmptyRun(t *testing.T) {
	s, err := New().Summary()
	require.NoError(t, err)
	assert.Equal(t, Summary{}, s)
}

func TestSummaryWriteYAML(t *testing.T) {
	s, err := populated().Summary()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.WriteYAML(&buf))
	assert.Contains(t, buf.String(), "records: 7\n")
	assert.Contains(t, buf.String(), "mean_entropy: 6\n")

	var decoded Summary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, s, decoded)
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pcapentropy.prom")
	require.NoError(t, populated().WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `pcapentropy_records_total{outcome="scored"} 2`)
	assert.Contains(t, text, `pcapentropy_payload_bytes_total 132`)
	assert.Contains(t, text, "pcapentropy_payload_entropy_bits_count 2")
	assert.True(t, strings.HasPrefix(text, "# HELP"))
}

func TestWriteTextfileBadPath(t *testing.T) {
	err := New().WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
