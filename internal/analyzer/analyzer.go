// Package analyzer drives capture records through the filter, dissector,
// entropy engine and reporter.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"firestige.xyz/pcapentropy/internal/core"
	"firestige.xyz/pcapentropy/internal/core/decoder"
	"firestige.xyz/pcapentropy/internal/entropy"
	"firestige.xyz/pcapentropy/internal/filter"
	"firestige.xyz/pcapentropy/internal/log"
	"firestige.xyz/pcapentropy/internal/metrics"
	"firestige.xyz/pcapentropy/internal/report"
)

// Source yields capture records until io.EOF.
type Source interface {
	Next() (core.CapturedFrame, error)
}

// Config contains analyzer configuration.
type Config struct {
	Source    Source
	Dissector decoder.Dissector
	Reporter  report.Reporter
	Filter    *filter.Filter   // nil passes every frame
	Metrics   *metrics.Metrics // optional
	Limit     int              // records to read, 0 = unlimited
}

// Stats summarises a run.
type Stats struct {
	Records      uint64 // records read, the last record index
	Filtered     uint64
	Scored       uint64
	Empty        uint64
	Rejected     uint64
	Truncated    uint64 // rejections for a header cut short by the capture
	Reported     uint64 // rejections written to the reporter
	PayloadBytes uint64
}

// Analyzer is a single-threaded record loop.
type Analyzer struct {
	source    Source
	dissector decoder.Dissector
	reporter  report.Reporter
	filter    *filter.Filter
	metrics   *metrics.Metrics
	logger    log.Logger
	limit     int
}

// New creates an analyzer.
func New(cfg Config) (*Analyzer, error) {
	if cfg.Source == nil {
		return nil, errors.New("analyzer: source is required")
	}
	if cfg.Reporter == nil {
		return nil, errors.New("analyzer: reporter is required")
	}
	if cfg.Limit < 0 {
		return nil, fmt.Errorf("analyzer: negative record limit %d", cfg.Limit)
	}
	if cfg.Dissector == nil {
		cfg.Dissector = decoder.NewStandardDissector(decoder.Config{ReportProtocolMismatch: true})
	}
	return &Analyzer{
		source:    cfg.Source,
		dissector: cfg.Dissector,
		reporter:  cfg.Reporter,
		filter:    cfg.Filter,
		metrics:   cfg.Metrics,
		logger:    log.GetLogger(),
		limit:     cfg.Limit,
	}, nil
}

// Run processes records until the source is exhausted, the limit is hit or
// ctx is cancelled. The reporter is flushed before Run returns. A cancelled
// context is returned as ctx.Err() along with the stats gathered so far.
func (a *Analyzer) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	err := a.loop(ctx, &stats)
	if ferr := a.reporter.Flush(); ferr != nil && err == nil {
		err = fmt.Errorf("failed to flush report: %w", ferr)
	}
	return stats, err
}

func (a *Analyzer) loop(ctx context.Context, stats *Stats) error {
	for {
		if a.limit > 0 && stats.Records >= uint64(a.limit) {
			a.logger.Debugf("record limit %d reached", a.limit)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := a.source.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		stats.Records++

		if err := a.process(int(stats.Records), frame, stats); err != nil {
			return err
		}
	}
}

// process handles a single record. Only reporter failures are returned.
func (a *Analyzer) process(index int, frame core.CapturedFrame, stats *Stats) error {
	if a.filter != nil && !a.filter.Match(frame.Data[:frame.Len()]) {
		stats.Filtered++
		if a.metrics != nil {
			a.metrics.ObserveFiltered()
		}
		return nil
	}

	out := a.dissector.Dissect(frame)

	if out.Rejected() {
		stats.Rejected++
		if out.Reason.Truncation() {
			stats.Truncated++
		}
		if a.metrics != nil {
			a.metrics.ObserveRejected(out.Reason)
		}
		if a.logger.IsDebugEnabled() {
			a.logger.WithRecord(index).WithError(out.Err()).Debug("record rejected")
		}
		if !out.Report {
			return nil
		}
		stats.Reported++
		if err := a.reporter.Reject(index, out); err != nil {
			return fmt.Errorf("failed to report rejection: %w", err)
		}
		return nil
	}

	if out.Empty() {
		stats.Empty++
		if a.metrics != nil {
			a.metrics.ObserveEmpty()
		}
		return nil
	}

	result := entropy.Compute(out.Payload.Bytes(frame))
	stats.Scored++
	stats.PayloadBytes += uint64(out.Payload.Length)
	if a.metrics != nil {
		a.metrics.ObserveScored(out.Payload.Length, result.Bits)
	}

	if err := a.reporter.Report(report.Record{Index: index, Outcome: out, Entropy: result}); err != nil {
		return fmt.Errorf("failed to report record: %w", err)
	}
	return nil
}
