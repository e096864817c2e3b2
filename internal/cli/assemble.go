package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/typeweld/weld/internal/assembler"
	"github.com/typeweld/weld/internal/store"
)

// AssembleOptions holds flags for the assemble command.
type AssembleOptions struct {
	*RootOptions
	Output string // output image path
}

// AssembleReport is the success payload of the assemble command.
type AssembleReport struct {
	Module      string `json:"module"`
	Version     string `json:"version,omitempty"`
	Types       int    `json:"types"`
	Imports     int    `json:"imports"`
	Output      string `json:"output"`
	Fingerprint string `json:"fingerprint"`
}

// NewAssembleCommand creates the assemble command.
func NewAssembleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssembleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "assemble <file-or-dir>",
		Short: "Assemble a CUE module definition into an image",
		Long: `Assemble parses a CUE module definition, links its references, and
writes the result as a module image.

A directory argument loads as one CUE instance - its files unify into
a single module definition.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output image path (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runAssemble(opts *AssembleOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	formatter.VerboseLog("Assembling %s", path)

	m, err := assembler.AssemblePath(path)
	if err != nil {
		return commandError(formatter, ErrCodeAssemble, "assembly failed", err)
	}

	formatter.VerboseLog("Assembled module %s with %d type(s)", m.Name, len(m.Types))

	s, err := store.OpenWritable(opts.Output)
	if err != nil {
		return commandError(formatter, ErrCodeImageWrite, fmt.Sprintf("opening %s", opts.Output), err)
	}
	defer s.Close()

	if err := s.WriteModule(cmd.Context(), m); err != nil {
		return commandError(formatter, ErrCodeImageWrite, fmt.Sprintf("writing %s", opts.Output), err)
	}

	report := &AssembleReport{
		Module:      m.Name,
		Version:     m.Version,
		Types:       len(m.Types),
		Imports:     len(m.Refs.Imports()),
		Output:      opts.Output,
		Fingerprint: m.Fingerprint(),
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ Assembled %s (%d type(s), %d import(s))\n", report.Module, report.Types, report.Imports)
	fmt.Fprintf(formatter.Writer, "Wrote image to %s\n", report.Output)
	return nil
}
