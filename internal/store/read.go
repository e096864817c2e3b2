package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/typeweld/weld/internal/ir"
)

// ReadModule loads the stored module. Ownership backrefs are
// reattached, instruction streams re-parsed, and the link pass run, so
// the returned graph carries the same identity bindings the module had
// when it was written. References into modules outside the image stay
// naming-only until a resolver supplies their worlds.
func (s *Store) ReadModule(ctx context.Context) (*ir.Module, error) {
	var (
		name          string
		version       string
		formatVersion int
		fingerprint   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, version, format_version, fingerprint FROM module WHERE id = 1
	`).Scan(&name, &version, &formatVersion, &fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read module: image holds no module")
	}
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	if formatVersion != ir.FormatVersion {
		return nil, fmt.Errorf("read module: image format version %d does not match supported version %d", formatVersion, ir.FormatVersion)
	}

	m := ir.NewModule(name, version)

	if err := s.readImports(ctx, m); err != nil {
		return nil, err
	}
	if err := s.readTypes(ctx, m); err != nil {
		return nil, err
	}

	if err := m.Link(); err != nil {
		return nil, fmt.Errorf("read module: link %q: %w", name, err)
	}

	return m, nil
}

// readImports declares the stored imports in first-import order. The
// stored list is trusted; it was validated when the module was built.
func (s *Store) readImports(ctx context.Context, m *ir.Module) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM imports ORDER BY pos ASC
	`)
	if err != nil {
		return fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan import: %w", err)
		}
		m.Refs.Declare(name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate imports: %w", err)
	}
	return nil
}

// readTypes loads the type documents in declaration order.
func (s *Store) readTypes(ctx context.Context, m *ir.Module) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM types ORDER BY pos ASC
	`)
	if err != nil {
		return fmt.Errorf("query types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return fmt.Errorf("scan type: %w", err)
		}
		td, err := unmarshalType(m, doc)
		if err != nil {
			return err
		}
		m.AddTypeDef(td)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate types: %w", err)
	}
	return nil
}

// Fingerprint returns the fingerprint recorded when the image was
// written, without loading the module.
func (s *Store) Fingerprint(ctx context.Context) (string, error) {
	var fp string
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint FROM module WHERE id = 1
	`).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("fingerprint: image holds no module")
	}
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return fp, nil
}

// Verify loads the module and checks the image against itself: the
// stored fingerprint must match one recomputed from the loaded graph,
// and every reference must stay inside the module's world (the module
// itself, core, or a recorded import). It returns the verified module
// so callers can continue with the loaded graph.
func (s *Store) Verify(ctx context.Context) (*ir.Module, error) {
	stored, err := s.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.ReadModule(ctx)
	if err != nil {
		return nil, err
	}

	if actual := m.Fingerprint(); actual != stored {
		return nil, fmt.Errorf("verify: fingerprint mismatch: stored %s, computed %s", stored, actual)
	}

	var escaped []string
	err = ir.WalkModuleRefs(m, func(r *ir.TypeRef) {
		if m.Refs.Knows(r.Module) || r.Module == ir.CoreModuleName {
			return
		}
		escaped = append(escaped, ir.FormatTypeRef(r))
	})
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if len(escaped) > 0 {
		return nil, fmt.Errorf("verify: %d reference(s) escape the module's imports, first %s", len(escaped), escaped[0])
	}

	return m, nil
}
