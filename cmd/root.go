// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/pcapentropy/internal/config"
)

var errNoFile = errors.New("no file for parsing")

// options holds the flag values. A flag only overrides the configuration
// when it was set on the command line.
type options struct {
	configFile      string
	logLevel        string
	file            string
	count           int
	ignoreErrors    bool
	format          string
	filter          string
	summary         bool
	metricsTextfile string
}

// newRootCmd builds the command tree writing to stdout and stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "pcapentropy -f <capture file> [flags]",
		Short: "Measure the Shannon entropy of packet payloads in a capture file",
		Long: `pcapentropy reads a pcap or pcapng capture, peels the Ethernet, IPv4 and
UDP/TCP headers off every record and prints the Shannon entropy of the
remaining payload, one line per record:

  index, payload length, entropy bits, max entropy bits, distinct bytes

Records that cannot be dissected are reported on stderr as
"timestamp: reason". High entropy relative to the maximum suggests
encrypted, compressed or random payloads.

Examples:
  pcapentropy -f trace.pcap                   # Score every record
  pcapentropy -f trace.pcap -n 100 -e         # First 100 records, hide non-UDP/TCP reports
  pcapentropy -f trace.pcap --filter "udp and port 53" --format json
  pcapentropy -f trace.pcap --summary --metrics-textfile /var/lib/node_exporter/pcapentropy.prom`,
		Version:       "0.1.0",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.Capture.File == "" {
				// The error itself is printed by the caller of Execute.
				fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
				return errNoFile
			}
			return runAnalyze(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "config file path (optional)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	f := rootCmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "capture file to read (pcap or pcapng)")
	f.IntVarP(&opts.count, "count", "n", 0, "number of records to read, 0 for all")
	f.BoolVarP(&opts.ignoreErrors, "ignore-errors", "e", false, "do not report non-UDP/TCP packets")
	f.StringVar(&opts.format, "format", "", "report format: text or json")
	f.StringVar(&opts.filter, "filter", "", `frame filter, e.g. "tcp and host 10.0.0.1"`)
	f.BoolVar(&opts.summary, "summary", false, "print a YAML run summary to stderr")
	f.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this textfile")

	rootCmd.AddCommand(newValidateCmd(opts))
	rootCmd.AddCommand(newBPFCmd())

	return rootCmd
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// resolveConfig loads the config file and environment, then applies the
// flags that were set explicitly.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("file") {
		cfg.Capture.File = opts.file
	}
	if flags.Changed("count") {
		cfg.Capture.Limit = opts.count
	}
	if flags.Changed("ignore-errors") {
		cfg.Report.IgnoreErrors = opts.ignoreErrors
	}
	if flags.Changed("format") {
		cfg.Report.Format = opts.format
	}
	if flags.Changed("filter") {
		cfg.Filter.Expression = opts.filter
	}
	if flags.Changed("summary") {
		cfg.Metrics.Summary = opts.summary
	}
	if flags.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = opts.metricsTextfile
	}

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}
