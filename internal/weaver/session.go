package weaver

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/typeweld/weld/internal/ir"
)

// TokenSource generates unique weave tokens for log correlation.
// Implemented by UUIDTokenSource (production) and a fixed source in
// tests.
type TokenSource interface {
	Token() string
}

// UUIDTokenSource generates UUIDv7 weave tokens. UUIDv7 is
// time-ordered, so tokens sort chronologically in logs.
type UUIDTokenSource struct{}

// Token returns a new UUIDv7 string.
func (UUIDTokenSource) Token() string {
	return uuid.Must(uuid.NewV7()).String()
}

// MergeRecord is one pending, uncommitted substitution unit: the
// detached clones of one source type's members, staged against one
// destination type. Records flush in registration order.
type MergeRecord struct {
	Src  *ir.TypeDef
	Dest *ir.TypeDef

	Attrs   []*ir.AttributeDef
	Ifaces  []*ir.InterfaceImpl
	Fields  []*ir.FieldDef
	Props   []*ir.PropertyDef
	Methods []*ir.MethodDef
	Splices []*SplicePlan
}

// Session is the arena for one weave against one destination module.
//
// AddType and Merge stage detached clones without touching the module;
// Flush rewrites, validates, and commits them atomically, then consumes
// the session. A consumed session rejects every further call.
//
// CRITICAL: sessions are single-goroutine, and a module must not be the
// target of two concurrently live sessions.
type Session struct {
	module  *ir.Module
	token   string
	records []*MergeRecord
	staged  []*ir.TypeDef
	flushed bool
}

// Option configures a Session at Begin.
type Option func(*sessionOptions)

type sessionOptions struct {
	tokens TokenSource
}

// WithTokenSource overrides the weave token source.
//
// Default: UUIDTokenSource. Use a fixed source for deterministic test
// logs.
func WithTokenSource(ts TokenSource) Option {
	return func(o *sessionOptions) {
		o.tokens = ts
	}
}

// Begin opens a weave session against module. The module must be a
// mutable destination; the built-in core module is rejected.
func Begin(module *ir.Module, opts ...Option) (*Session, error) {
	if module == nil {
		return nil, NewInvalidArgument("begin: nil module")
	}
	if module == ir.Core() {
		return nil, NewInvalidArgument("begin: the core module is read-only")
	}
	o := sessionOptions{tokens: UUIDTokenSource{}}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Session{module: module, token: o.tokens.Token()}
	slog.Debug("weave session opened", "token", s.token, "module", module.Name)
	return s, nil
}

// Token returns the session's weave token.
func (s *Session) Token() string { return s.token }

// FindType locates a destination type by namespace and name, covering
// both the module's committed types and types staged by AddType in this
// session.
func (s *Session) FindType(namespace, name string) *ir.TypeDef {
	if t := s.module.FindType(namespace, name); t != nil {
		return t
	}
	for _, st := range s.staged {
		if st.Namespace == namespace && st.Name == name {
			return st
		}
	}
	return nil
}

// AddType stages a new destination type copied from src (namespace,
// name, flags, base reference) and merges src's members into it. If src
// is nested, its declaring parent must already have a counterpart
// (same namespace and name) on the destination module or staged in this
// session; the new type nests under that counterpart at commit.
//
// Returns the staged type so follow-up merges can target it.
func (s *Session) AddType(src *ir.TypeDef) (*ir.TypeDef, error) {
	if s.flushed {
		return nil, NewInvalidArgument("session already flushed")
	}
	if src == nil {
		return nil, NewInvalidArgument("add type: nil source type")
	}
	if src.Module == nil {
		return nil, NewInvalidArgument("add type: source type is not attached to a module")
	}
	if src.Module == ir.Core() {
		return nil, NewInvalidArgument("add type: core types cannot be copied")
	}
	if s.FindType(src.Namespace, src.Name) != nil {
		return nil, NewInvalidArgument(fmt.Sprintf("add type: %q already exists on module %q", src.FullName(), s.module.Name))
	}

	var parent *ir.TypeDef
	if src.Parent != nil {
		parent = s.FindType(src.Parent.Namespace, src.Parent.Name)
		if parent == nil {
			return nil, NewInvalidArgument(fmt.Sprintf(
				"add type: declaring parent %q has no counterpart on module %q", src.Parent.FullName(), s.module.Name))
		}
	}

	dest := &ir.TypeDef{
		Namespace: src.Namespace,
		Name:      src.Name,
		Flags:     src.Flags,
		Base:      src.Base.Clone(),
		Module:    s.module,
		Parent:    parent,
	}
	s.staged = append(s.staged, dest)

	if err := s.Merge(dest, src); err != nil {
		s.staged = s.staged[:len(s.staged)-1]
		return nil, err
	}
	slog.Debug("type staged", "token", s.token, "type", dest.FullName(), "module", s.module.Name)
	return dest, nil
}

// Merge clones every attribute, interface implementation, field,
// property, and method of src and stages them against dest as one
// MergeRecord. The three special method names are trimmed into splice
// plans instead of ordinary method clones (fail-fast on malformed
// special methods). No destination mutation and no reference rewriting
// happens here.
func (s *Session) Merge(dest, src *ir.TypeDef) error {
	if s.flushed {
		return NewInvalidArgument("session already flushed")
	}
	if dest == nil {
		return NewInvalidArgument("merge: nil destination type")
	}
	if src == nil {
		return NewInvalidArgument("merge: nil source type")
	}
	if dest == src {
		return NewInvalidArgument("merge: source and destination are the same type")
	}
	if dest.Module != s.module {
		return NewInvalidArgument(fmt.Sprintf("merge: destination type %q is not owned by module %q", dest.FullName(), s.module.Name))
	}
	if src.Module == nil {
		return NewInvalidArgument("merge: source type is not attached to a module")
	}
	if src.Module == ir.Core() {
		return NewInvalidArgument("merge: core types cannot be merged")
	}

	rec := &MergeRecord{Src: src, Dest: dest}

	for _, a := range src.Attributes {
		c, err := CloneAttribute(a)
		if err != nil {
			return err
		}
		rec.Attrs = append(rec.Attrs, c)
	}
	for _, impl := range src.Interfaces {
		c, err := CloneInterfaceImpl(impl)
		if err != nil {
			return err
		}
		rec.Ifaces = append(rec.Ifaces, c)
	}
	for _, f := range src.Fields {
		c, err := CloneField(f)
		if err != nil {
			return err
		}
		rec.Fields = append(rec.Fields, c)
	}
	for _, p := range src.Properties {
		c, err := CloneProperty(p)
		if err != nil {
			return err
		}
		rec.Props = append(rec.Props, c)
	}
	for _, m := range src.Methods {
		c, err := CloneMethod(m)
		if err != nil {
			return err
		}
		if ir.IsSpecialName(c.Name) {
			plan, err := TrimSpecial(dest.FullName(), c)
			if err != nil {
				return err
			}
			rec.Splices = append(rec.Splices, plan)
			continue
		}
		rec.Methods = append(rec.Methods, c)
	}

	s.records = append(s.records, rec)
	slog.Debug("merge staged",
		"token", s.token,
		"src", src.FullName(),
		"dest", dest.FullName(),
		"fields", len(rec.Fields),
		"methods", len(rec.Methods),
		"splices", len(rec.Splices))
	return nil
}
