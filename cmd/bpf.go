package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/pcapentropy/internal/filter"
)

func newBPFCmd() *cobra.Command {
	var raw bool
	bpfCmd := &cobra.Command{
		Use:   "bpf <expression>",
		Short: "Print the BPF program compiled from a filter expression",
		Long: `Compile a filter expression and print the resulting classic BPF program.

Examples:
  pcapentropy bpf "udp and port 53"
  pcapentropy bpf --raw tcp`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBPF(strings.Join(args, " "), raw, cmd.OutOrStdout())
		},
	}
	bpfCmd.Flags().BoolVar(&raw, "raw", false, "print raw opcodes instead of assembly")
	return bpfCmd
}

func runBPF(expr string, raw bool, w io.Writer) error {
	flt, err := filter.Compile(expr)
	if err != nil {
		return err
	}
	if !raw {
		for i, ins := range flt.Instructions() {
			fmt.Fprintf(w, "(%03d) %v\n", i, ins)
		}
		return nil
	}
	insns, err := flt.Raw()
	if err != nil {
		return err
	}
	for _, ins := range insns {
		fmt.Fprintf(w, "{ 0x%02x, %d, %d, 0x%08x },\n", ins.Op, ins.Jt, ins.Jf, ins.K)
	}
	return nil
}
