// Package report writes per-record entropy results and rejections.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"firestige.xyz/pcapentropy/internal/core"
	"firestige.xyz/pcapentropy/internal/entropy"
)

// Supported formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Record is one scored payload.
type Record struct {
	Index   int
	Outcome core.Outcome
	Entropy entropy.Result
}

// Reporter receives scored records and rejections in capture order.
type Reporter interface {
	Report(rec Record) error
	Reject(index int, out core.Outcome) error
	Flush() error
}

// New creates a reporter writing records to out and rejections to errOut.
func New(format string, out, errOut io.Writer) (Reporter, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return NewTextReporter(out, errOut), nil
	case FormatJSON:
		return NewJSONReporter(out, errOut), nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s (must be text or json)", format)
	}
}

// TextReporter prints "index, length, entropy, max entropy, symbols" lines.
type TextReporter struct {
	out    *bufio.Writer
	errOut io.Writer
}

// NewTextReporter creates a TextReporter.
func NewTextReporter(out, errOut io.Writer) *TextReporter {
	return &TextReporter{out: bufio.NewWriter(out), errOut: errOut}
}

// Report implements Reporter.
func (r *TextReporter) Report(rec Record) error {
	_, err := fmt.Fprintf(r.out, "%d, %d, %f, %f, %d\n",
		rec.Index, rec.Outcome.Payload.Length, rec.Entropy.Bits, rec.Entropy.MaxBits, rec.Entropy.Symbols)
	return err
}

// Reject implements Reporter. Pending records are flushed first so the
// two streams stay in order when they share a terminal.
func (r *TextReporter) Reject(index int, out core.Outcome) error {
	if err := r.out.Flush(); err != nil {
		return err
	}
	return writeRejection(r.errOut, out)
}

// Flush implements Reporter.
func (r *TextReporter) Flush() error {
	return r.out.Flush()
}

func writeRejection(w io.Writer, out core.Outcome) error {
	_, err := fmt.Fprintf(w, "%s: %s\n", core.FormatTimestamp(out.Timestamp), out.Reason)
	return err
}

// jsonRecord is the JSON line written per scored payload.
type jsonRecord struct {
	Index      int     `json:"index"`
	Timestamp  string  `json:"timestamp"`
	SrcIP      string  `json:"src_ip,omitempty"`
	DstIP      string  `json:"dst_ip,omitempty"`
	Protocol   uint8   `json:"protocol"`
	SrcPort    uint16  `json:"src_port"`
	DstPort    uint16  `json:"dst_port"`
	Length     int     `json:"length"`
	Entropy    float64 `json:"entropy"`
	MaxEntropy float64 `json:"max_entropy"`
	Symbols    int     `json:"symbols"`
	Ratio      float64 `json:"ratio"`
}

// JSONReporter writes one JSON object per scored payload. Rejections use
// the same "timestamp: reason" lines as TextReporter.
type JSONReporter struct {
	out    *bufio.Writer
	enc    *json.Encoder
	errOut io.Writer
}

// NewJSONReporter creates a JSONReporter.
func NewJSONReporter(out, errOut io.Writer) *JSONReporter {
	bw := bufio.NewWriter(out)
	return &JSONReporter{out: bw, enc: json.NewEncoder(bw), errOut: errOut}
}

// Report implements Reporter.
func (r *JSONReporter) Report(rec Record) error {
	o := rec.Outcome
	jr := jsonRecord{
		Index:      rec.Index,
		Timestamp:  core.FormatTimestamp(o.Timestamp),
		Protocol:   o.Protocol,
		SrcPort:    o.SrcPort,
		DstPort:    o.DstPort,
		Length:     o.Payload.Length,
		Entropy:    rec.Entropy.Bits,
		MaxEntropy: rec.Entropy.MaxBits,
		Symbols:    rec.Entropy.Symbols,
		Ratio:      rec.Entropy.Ratio,
	}
	if o.SrcIP.IsValid() {
		jr.SrcIP = o.SrcIP.String()
	}
	if o.DstIP.IsValid() {
		jr.DstIP = o.DstIP.String()
	}
	return r.enc.Encode(jr)
}

// Reject implements Reporter.
func (r *JSONReporter) Reject(index int, out core.Outcome) error {
	if err := r.out.Flush(); err != nil {
		return err
	}
	return writeRejection(r.errOut, out)
}

// Flush implements Reporter.
func (r *JSONReporter) Flush() error {
	return r.out.Flush()
}
