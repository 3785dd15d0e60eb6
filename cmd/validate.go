package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/pcapentropy/internal/config"
	"firestige.xyz/pcapentropy/internal/filter"
)

func newValidateCmd(opts *options) *cobra.Command {
	var expr string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and filter expression",
		Long: `Validate the configuration file, environment overrides and frame filter
without reading a capture.

Examples:
  pcapentropy validate -c pcapentropy.yml
  pcapentropy validate --filter "udp and port 53"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("filter") {
				cfg.Filter.Expression = expr
			}
			return runValidate(cfg, cmd.OutOrStdout())
		},
	}
	validateCmd.Flags().StringVar(&expr, "filter", "", "frame filter expression to check")
	return validateCmd
}

func runValidate(cfg *config.Config, w io.Writer) error {
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return err
	}
	instructions := 0
	if cfg.Filter.Expression != "" {
		flt, err := filter.Compile(cfg.Filter.Expression)
		if err != nil {
			return err
		}
		instructions = len(flt.Instructions())
	}
	fmt.Fprintf(w, "VALID: report %s, limit %d, filter %q (%d instructions)\n",
		cfg.Report.Format, cfg.Capture.Limit, cfg.Filter.Expression, instructions)
	return nil
}
