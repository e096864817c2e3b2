package store

import (
	"encoding/json"
	"fmt"

	"github.com/typeweld/weld/internal/ir"
)

// typeDoc is the stored form of one top-level type. The definition
// tree marshals as plain JSON minus backrefs and instruction streams;
// the streams ride alongside as canonical text lines so the image
// stays diffable with ordinary SQLite tooling.
type typeDoc struct {
	Def    *ir.TypeDef `json:"def"`
	Bodies []bodyDoc   `json:"bodies,omitempty"`
}

// bodyDoc carries one method's instruction stream. Type is the nested
// index path from the top-level type (empty for the type itself) and
// Method indexes into that type's method list.
type bodyDoc struct {
	Type   []int    `json:"type,omitempty"`
	Method int      `json:"method"`
	Lines  []string `json:"lines"`
}

// marshalType converts a top-level type to canonical JSON TEXT for
// storage. Uses RFC 8785 canonical JSON for deterministic output.
func marshalType(td *ir.TypeDef) (string, error) {
	doc := typeDoc{Def: td}
	collectBodies(td, nil, &doc.Bodies)
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("marshal type %s: %w", td.FullName(), err)
	}
	return string(data), nil
}

// collectBodies appends a bodyDoc for every method in the type tree
// that carries instructions. Bodies without instructions need no doc:
// their scalar settings travel inside the definition JSON.
func collectBodies(td *ir.TypeDef, path []int, out *[]bodyDoc) {
	for i, md := range td.Methods {
		if md.Body == nil || len(md.Body.Instructions) == 0 {
			continue
		}
		lines := make([]string, len(md.Body.Instructions))
		for j, ins := range md.Body.Instructions {
			lines[j] = ir.FormatInstruction(ins)
		}
		doc := bodyDoc{Method: i, Lines: lines}
		if len(path) > 0 {
			doc.Type = append([]int(nil), path...)
		}
		*out = append(*out, doc)
	}
	for i, n := range td.Nested {
		collectBodies(n, append(path, i), out)
	}
}

// unmarshalType parses stored JSON TEXT back into a type definition
// owned by m. Backrefs are reattached and instruction streams
// re-parsed; reference binding is left to the module's link pass.
func unmarshalType(m *ir.Module, data string) (*ir.TypeDef, error) {
	var doc typeDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal type: %w", err)
	}
	if doc.Def == nil {
		return nil, fmt.Errorf("unmarshal type: document has no definition")
	}
	attachType(m, doc.Def, nil)
	for _, body := range doc.Bodies {
		if err := restoreBody(doc.Def, body); err != nil {
			return nil, fmt.Errorf("restore body in type %s: %w", doc.Def.FullName(), err)
		}
	}
	return doc.Def, nil
}

// attachType rewires the ownership backrefs JSON does not carry.
func attachType(m *ir.Module, td *ir.TypeDef, parent *ir.TypeDef) {
	td.Module = m
	td.Parent = parent
	for _, f := range td.Fields {
		f.Declaring = td
	}
	for _, p := range td.Properties {
		p.Declaring = td
	}
	for _, md := range td.Methods {
		md.Declaring = td
	}
	for _, n := range td.Nested {
		attachType(m, n, td)
	}
}

// restoreBody re-parses one stored instruction stream into the method
// it belongs to. The method's locals arrive through the definition
// JSON, so name-addressed operands resolve during the parse.
func restoreBody(root *ir.TypeDef, doc bodyDoc) error {
	td := root
	for _, i := range doc.Type {
		if i < 0 || i >= len(td.Nested) {
			return fmt.Errorf("nested index %d out of range", i)
		}
		td = td.Nested[i]
	}
	if doc.Method < 0 || doc.Method >= len(td.Methods) {
		return fmt.Errorf("method index %d out of range for %s", doc.Method, td.FullName())
	}
	md := td.Methods[doc.Method]
	if md.Body == nil {
		return fmt.Errorf("method %s::%s has instruction lines but no body", td.FullName(), md.Name)
	}
	for _, line := range doc.Lines {
		ins, err := ir.ParseInstruction(line, md)
		if err != nil {
			return fmt.Errorf("method %s::%s: %w", td.FullName(), md.Name, err)
		}
		md.Body.Instructions = append(md.Body.Instructions, ins)
	}
	return nil
}
