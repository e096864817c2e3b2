package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/typeweld/weld/internal/ir"
	"github.com/typeweld/weld/internal/store"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Type string // restrict to one type, "Namespace.Name"
}

// DumpReport is the success payload of the dump command.
type DumpReport struct {
	Module string `json:"module"`
	Dump   string `json:"dump"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <image>",
		Short: "Print the canonical disassembly of an image",
		Long: `Dump prints the module's canonical text form: every type, member,
and instruction in declaration order. The same text feeds the module
fingerprint, so two images with equal dumps are the same module.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "only dump one type (Namespace.Name)")

	return cmd
}

func runDump(opts *DumpOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := store.Open(path)
	if err != nil {
		return commandError(formatter, ErrCodeImageRead, fmt.Sprintf("opening %s", path), err)
	}
	defer s.Close()

	module, err := s.ReadModule(cmd.Context())
	if err != nil {
		return commandError(formatter, ErrCodeImageRead, fmt.Sprintf("reading %s", path), err)
	}

	var text string
	if opts.Type != "" {
		ns, name := splitTypeName(opts.Type)
		t := module.FindType(ns, name)
		if t == nil {
			return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("type %q not found in module %q", opts.Type, module.Name), nil)
		}
		text = ir.DumpType(t)
	} else {
		text = ir.Dump(module)
	}

	if formatter.Format == "json" {
		return formatter.Success(&DumpReport{Module: module.Name, Dump: text})
	}

	fmt.Fprint(formatter.Writer, text)
	return nil
}
