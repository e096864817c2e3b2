package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/typeweld/weld/internal/ir"
	"github.com/typeweld/weld/internal/store"
	"github.com/typeweld/weld/internal/weaver"
)

// OptimizeOptions holds flags for the optimize command.
type OptimizeOptions struct {
	*RootOptions
	Type   string // restrict to one type, "Namespace.Name"
	Method string // restrict to one method name within --type
}

// OptimizeReport is the success payload of the optimize command.
type OptimizeReport struct {
	Module       string `json:"module"`
	Methods      int    `json:"methods"`
	CastsRemoved int    `json:"casts_removed"`
	Fingerprint  string `json:"fingerprint"`
}

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OptimizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "optimize <image>",
		Short: "Remove provably redundant casts from an image",
		Long: `Optimize runs local cast elimination over method bodies and rewrites
the image in place. A cast is removed only when the value on the stack
is statically known to already satisfy the target type.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "only optimize one type (Namespace.Name)")
	cmd.Flags().StringVar(&opts.Method, "method", "", "only optimize one method (requires --type)")

	return cmd
}

func runOptimize(opts *OptimizeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Method != "" && opts.Type == "" {
		return commandError(formatter, ErrCodeGeneric, "--method requires --type", nil)
	}

	s, err := store.OpenWritable(path)
	if err != nil {
		return commandError(formatter, ErrCodeImageRead, fmt.Sprintf("opening %s", path), err)
	}
	defer s.Close()

	module, err := s.ReadModule(cmd.Context())
	if err != nil {
		return commandError(formatter, ErrCodeImageRead, fmt.Sprintf("reading %s", path), err)
	}

	methods, err := selectMethods(module, opts.Type, opts.Method)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	removed := 0
	for _, md := range methods {
		n, err := weaver.Optimize(md)
		if err != nil {
			return checkFailure(formatter, ErrCodeWeaveFailed, fmt.Sprintf("optimizing %s", md.Name), err)
		}
		if n > 0 {
			formatter.VerboseLog("Removed %d cast(s) from %s::%s", n, md.Declaring.FullName(), md.Name)
		}
		removed += n
	}

	if err := s.WriteModule(cmd.Context(), module); err != nil {
		return commandError(formatter, ErrCodeImageWrite, fmt.Sprintf("writing %s", path), err)
	}

	report := &OptimizeReport{
		Module:       module.Name,
		Methods:      len(methods),
		CastsRemoved: removed,
		Fingerprint:  module.Fingerprint(),
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ Optimized %d method(s), removed %d cast(s)\n", report.Methods, report.CastsRemoved)
	return nil
}

// selectMethods collects the methods the type/method filters name.
// With no filters it returns every method in the module, nested types
// included.
func selectMethods(m *ir.Module, typeName, methodName string) ([]*ir.MethodDef, error) {
	if typeName == "" {
		var out []*ir.MethodDef
		for _, t := range m.Types {
			out = append(out, collectMethods(t)...)
		}
		return out, nil
	}

	ns, name := splitTypeName(typeName)
	t := m.FindType(ns, name)
	if t == nil {
		return nil, fmt.Errorf("type %q not found in module %q", typeName, m.Name)
	}
	if methodName == "" {
		return collectMethods(t), nil
	}

	methods := t.FindMethods(methodName)
	if len(methods) == 0 {
		return nil, fmt.Errorf("method %q not found on type %q", methodName, typeName)
	}
	return methods, nil
}

func collectMethods(t *ir.TypeDef) []*ir.MethodDef {
	out := append([]*ir.MethodDef(nil), t.Methods...)
	for _, n := range t.Nested {
		out = append(out, collectMethods(n)...)
	}
	return out
}

// optimizeModule runs cast elimination over every method body.
// Used by merge plans with "optimize: true".
func optimizeModule(m *ir.Module) (int, error) {
	removed := 0
	for _, t := range m.Types {
		for _, md := range collectMethods(t) {
			n, err := weaver.Optimize(md)
			if err != nil {
				return removed, fmt.Errorf("optimize %s::%s: %w", md.Declaring.FullName(), md.Name, err)
			}
			removed += n
		}
	}
	return removed, nil
}
