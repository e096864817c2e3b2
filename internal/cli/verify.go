package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/typeweld/weld/internal/store"
)

// VerifyReport is the success payload of the verify command.
type VerifyReport struct {
	Module      string `json:"module"`
	Types       int    `json:"types"`
	Fingerprint string `json:"fingerprint"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <image>",
		Short: "Verify an image against its stored fingerprint",
		Long: `Verify reloads the module, recomputes its fingerprint against the
stored one, and checks that every reference stays within the module's
own import table.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runVerify(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := store.Open(path)
	if err != nil {
		return commandError(formatter, ErrCodeImageRead, fmt.Sprintf("opening %s", path), err)
	}
	defer s.Close()

	module, err := s.Verify(cmd.Context())
	if err != nil {
		return checkFailure(formatter, ErrCodeVerifyFailed, fmt.Sprintf("image %s", path), err)
	}

	report := &VerifyReport{
		Module:      module.Name,
		Types:       len(module.Types),
		Fingerprint: module.Fingerprint(),
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ Verified %s (%d type(s))\n", report.Module, report.Types)
	fmt.Fprintf(formatter.Writer, "Fingerprint: %s\n", report.Fingerprint)
	return nil
}
