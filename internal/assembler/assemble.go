package assembler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/typeweld/weld/internal/ir"
)

// AssembleError is an assembly failure with source position.
type AssembleError struct {
	Path    string // field path within the module definition
	Message string
	Pos     token.Pos
}

func (e *AssembleError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &AssembleError{Path: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}

// AssembleSource compiles a module definition held in a string.
// filename only attributes error positions.
func AssembleSource(filename, src string) (*ir.Module, error) {
	ctx := cuecontext.New()
	return Assemble(ctx.CompileString(src, cue.Filename(filename)))
}

// AssembleFile compiles a single module definition file.
func AssembleFile(path string) (*ir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module definition: %w", err)
	}
	ctx := cuecontext.New()
	return Assemble(ctx.CompileBytes(data, cue.Filename(path)))
}

// AssembleDir unifies every CUE file under dir into one module
// definition and compiles it.
func AssembleDir(dir string) (*ir.Module, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &AssembleError{Path: "module", Message: fmt.Sprintf("no CUE files in %s", dir)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	return Assemble(ctx.BuildInstance(inst))
}

// AssemblePath compiles path, either a single definition file or a
// directory of CUE files.
func AssemblePath(path string) (*ir.Module, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("module definition %s: %w", path, err)
	}
	if info.IsDir() {
		return AssembleDir(path)
	}
	return AssembleFile(path)
}

// Assemble builds an ir.Module from the "module" struct of a CUE value.
func Assemble(v cue.Value) (*ir.Module, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	modVal := v.LookupPath(cue.ParsePath("module"))
	if !modVal.Exists() {
		return nil, &AssembleError{Path: "module", Message: "module definition is required", Pos: v.Pos()}
	}

	name, err := requiredString(modVal, "module", "name")
	if err != nil {
		return nil, err
	}
	version, err := optionalString(modVal, "version")
	if err != nil {
		return nil, err
	}

	m := ir.NewModule(name, version)

	imports, err := stringList(modVal.LookupPath(cue.ParsePath("imports")))
	if err != nil {
		return nil, err
	}
	for _, imp := range imports {
		// The definition's own import list is trusted; resolution
		// happens when a resolver is attached.
		m.Refs.Declare(imp)
	}

	a := &assembler{module: m}
	if typesVal := modVal.LookupPath(cue.ParsePath("types")); typesVal.Exists() {
		iter, err := typesVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			td, err := a.parseType(iter.Value(), "types")
			if err != nil {
				return nil, err
			}
			if m.FindType(td.Namespace, td.Name) != nil {
				return nil, &AssembleError{
					Path:    "types",
					Message: fmt.Sprintf("duplicate type %q", td.FullName()),
					Pos:     iter.Value().Pos(),
				}
			}
			m.AddTypeDef(td)
		}
	}

	if err := m.Link(); err != nil {
		return nil, fmt.Errorf("link module %q: %w", name, err)
	}
	return m, nil
}

func requiredString(v cue.Value, path, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &AssembleError{Path: path + "." + field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optionalInt(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// stringList reads an optional list of strings. A missing value is an
// empty list.
func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
