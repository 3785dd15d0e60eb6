package cmd

import (
	"context"
	"fmt"
	"io"

	"firestige.xyz/pcapentropy/internal/analyzer"
	"firestige.xyz/pcapentropy/internal/config"
	"firestige.xyz/pcapentropy/internal/core/decoder"
	"firestige.xyz/pcapentropy/internal/filter"
	"firestige.xyz/pcapentropy/internal/log"
	"firestige.xyz/pcapentropy/internal/metrics"
	"firestige.xyz/pcapentropy/internal/report"
	"firestige.xyz/pcapentropy/internal/source/file"
)

// runAnalyze scores every record of cfg.Capture.File. Reports go to stdout;
// rejections, logs and the optional summary go to stderr.
func runAnalyze(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	if err := log.Init(cfg.Log, stderr); err != nil {
		return err
	}
	logger := log.GetLogger()

	logger.WithField("file", cfg.Capture.File).Info("reading capture file")
	if cfg.Capture.Limit > 0 {
		logger.Infof("record limit set: %d records", cfg.Capture.Limit)
	}

	var (
		flt *filter.Filter
		err error
	)
	if cfg.Filter.Expression != "" {
		if flt, err = filter.Compile(cfg.Filter.Expression); err != nil {
			return err
		}
		logger.WithField("filter", flt.String()).Debugf("compiled filter to %d instructions", len(flt.Instructions()))
	}

	rep, err := report.New(cfg.Report.Format, stdout, stderr)
	if err != nil {
		return err
	}

	src, err := file.NewSource(cfg.Capture.File)
	if err != nil {
		return err
	}
	if err := src.Start(ctx); err != nil {
		return fmt.Errorf("can't read capture file: %w", err)
	}
	defer src.Stop()
	logger.WithField("format", src.Format()).Debug("capture file opened")

	m := metrics.New()
	a, err := analyzer.New(analyzer.Config{
		Source: src,
		Dissector: decoder.NewStandardDissector(decoder.Config{
			ReportProtocolMismatch: !cfg.Report.IgnoreErrors,
		}),
		Reporter: rep,
		Filter:   flt,
		Metrics:  m,
		Limit:    cfg.Capture.Limit,
	})
	if err != nil {
		return err
	}

	stats, err := a.Run(ctx)
	if err != nil {
		return fmt.Errorf("analysis stopped after %d records: %w", stats.Records, err)
	}
	logger.WithFields(map[string]interface{}{
		"records":   stats.Records,
		"scored":    stats.Scored,
		"rejected":  stats.Rejected,
		"truncated": stats.Truncated,
		"filtered":  stats.Filtered,
	}).Info("capture analysed")
	if n := src.Skipped(); n > 0 {
		logger.WithField("file", cfg.Capture.File).Warnf("skipped %d packets captured on non-Ethernet interfaces", n)
	}

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return err
		}
	}
	if cfg.Metrics.Summary {
		summary, err := m.Summary()
		if err != nil {
			return err
		}
		if err := summary.WriteYAML(stderr); err != nil {
			return err
		}
	}
	return nil
}
