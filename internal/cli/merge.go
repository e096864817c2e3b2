package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/typeweld/weld/internal/ir"
	"github.com/typeweld/weld/internal/store"
	"github.com/typeweld/weld/internal/weaver"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	Plan string // plan file path
}

// MergeReport is the success payload of the merge command.
type MergeReport struct {
	Module       string `json:"module"`
	Weaves       int    `json:"weaves"`
	CastsRemoved int    `json:"casts_removed"`
	Output       string `json:"output"`
	Fingerprint  string `json:"fingerprint"`
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge --plan <plan.yaml>",
		Short: "Execute a weave plan against a module image",
		Long: `Merge executes a weave plan: it loads the destination image, stages
every directive in one session, flushes, and writes the woven module.

All directives commit together. A failing directive leaves the
destination image untouched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Plan, "plan", "", "weave plan YAML file (required)")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func runMerge(opts *MergeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	plan, err := LoadPlan(opts.Plan)
	if err != nil {
		return commandError(formatter, ErrCodePlanInvalid, fmt.Sprintf("loading %s", opts.Plan), err)
	}

	formatter.VerboseLog("Plan: %d weave(s) into %s", len(plan.Weaves), plan.Destination)

	dest, err := store.Open(plan.Destination)
	if err != nil {
		return commandError(formatter, ErrCodeImageRead, fmt.Sprintf("opening %s", plan.Destination), err)
	}
	module, err := dest.ReadModule(cmd.Context())
	dest.Close()
	if err != nil {
		return commandError(formatter, ErrCodeImageRead, fmt.Sprintf("reading %s", plan.Destination), err)
	}

	resolver := store.NewDirResolver(plan.Search...)
	module.Refs.SetResolver(resolver)

	session, err := weaver.Begin(module)
	if err != nil {
		return checkFailure(formatter, ErrCodeWeaveFailed, "opening weave session", err)
	}

	for i, step := range plan.Weaves {
		if err := applyWeave(formatter, session, resolver, step); err != nil {
			return checkFailure(formatter, ErrCodeWeaveFailed, fmt.Sprintf("weave %d", i), err)
		}
	}

	if err := session.Flush(); err != nil {
		return checkFailure(formatter, ErrCodeWeaveFailed, "flush", err)
	}

	removed := 0
	if plan.Optimize {
		removed, err = optimizeModule(module)
		if err != nil {
			return checkFailure(formatter, ErrCodeWeaveFailed, "optimize", err)
		}
		formatter.VerboseLog("Removed %d redundant cast(s)", removed)
	}

	output := plan.Output
	if output == "" {
		output = plan.Destination
	}

	out, err := store.OpenWritable(output)
	if err != nil {
		return commandError(formatter, ErrCodeImageWrite, fmt.Sprintf("opening %s", output), err)
	}
	defer out.Close()

	if err := out.WriteModule(cmd.Context(), module); err != nil {
		return commandError(formatter, ErrCodeImageWrite, fmt.Sprintf("writing %s", output), err)
	}

	report := &MergeReport{
		Module:       module.Name,
		Weaves:       len(plan.Weaves),
		CastsRemoved: removed,
		Output:       output,
		Fingerprint:  module.Fingerprint(),
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ Wove %d directive(s) into %s\n", report.Weaves, report.Module)
	if plan.Optimize {
		fmt.Fprintf(formatter.Writer, "Removed %d redundant cast(s)\n", report.CastsRemoved)
	}
	fmt.Fprintf(formatter.Writer, "Wrote image to %s\n", report.Output)
	return nil
}

// applyWeave stages one plan directive against the session.
func applyWeave(formatter *OutputFormatter, session *weaver.Session, resolver *store.DirResolver, step WeaveStep) error {
	switch {
	case step.Merge != nil:
		src, err := lookupSource(resolver, step.Merge.Source)
		if err != nil {
			return err
		}
		ns, name := splitTypeName(step.Merge.Into)
		dst := session.FindType(ns, name)
		if dst == nil {
			return fmt.Errorf("destination type %q not found", step.Merge.Into)
		}
		formatter.VerboseLog("Merging %s into %s", step.Merge.Source, step.Merge.Into)
		return session.Merge(dst, src)

	case step.AddType != nil:
		src, err := lookupSource(resolver, step.AddType.Source)
		if err != nil {
			return err
		}
		formatter.VerboseLog("Adding type %s", step.AddType.Source)
		_, err = session.AddType(src)
		return err

	default:
		return fmt.Errorf("empty weave directive")
	}
}

// lookupSource resolves "module/Namespace.Name" to a type definition
// through the configured search paths.
func lookupSource(resolver *store.DirResolver, ref string) (*ir.TypeDef, error) {
	r, err := ir.ParseTypeRef(ref)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", ref, err)
	}
	m, err := resolver.Resolve(r.Module)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", ref, err)
	}
	t := m.FindType(r.Namespace, r.Name)
	if t == nil {
		return nil, fmt.Errorf("source %q: no such type in module %q", ref, m.Name)
	}
	return t, nil
}

// splitTypeName splits "Namespace.Name" on the last dot. A bare name
// has an empty namespace.
func splitTypeName(s string) (namespace, name string) {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}
