package store

import (
	"context"
	"fmt"

	"github.com/typeweld/weld/internal/ir"
)

// WriteModule replaces the image contents with the given module.
// The write is transactional: the previous contents stay intact if any
// part fails. The stored fingerprint is recomputed from the module's
// canonical dump, so a reopened image verifies against what was
// actually written.
func (s *Store) WriteModule(ctx context.Context, m *ir.Module) error {
	if !s.writable {
		return ErrReadOnly
	}
	if m == nil {
		return fmt.Errorf("write module: module is nil")
	}
	if m.Name == "" {
		return fmt.Errorf("write module: module has no name")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write module: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// An image holds exactly one module, so a write is a full replace.
	for _, table := range []string{"types", "imports", "module"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("write module: clear %s: %w", table, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO module (id, name, version, format_version, fingerprint)
		VALUES (1, ?, ?, ?, ?)
	`,
		m.Name,
		m.Version,
		ir.FormatVersion,
		m.Fingerprint(),
	)
	if err != nil {
		return fmt.Errorf("write module: insert module row: %w", err)
	}

	for pos, name := range m.Refs.Imports() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO imports (pos, name) VALUES (?, ?)
		`, pos, name)
		if err != nil {
			return fmt.Errorf("write module: insert import %q: %w", name, err)
		}
	}

	for pos, td := range m.Types {
		doc, err := marshalType(td)
		if err != nil {
			return fmt.Errorf("write module: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO types (pos, namespace, name, doc) VALUES (?, ?, ?, ?)
		`, pos, td.Namespace, td.Name, doc)
		if err != nil {
			return fmt.Errorf("write module: insert type %s: %w", td.FullName(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write module: commit: %w", err)
	}

	return nil
}
