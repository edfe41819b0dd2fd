package sqlite

import "context"

// migration is a single incremental schema change applied after the
// baseline: additive, forward-only, recorded in schema_migrations so
// repeated opens are no-ops.
type migration struct {
	version int
	stmt    string
}

// migrations lists every schema change shipped after the baseline. Empty
// for now; additive changes get appended here rather than edited into
// schema.go once the baseline has shipped.
var migrations = []migration{}

func (s *Store) applyMigrations(ctx context.Context) error {
	for _, m := range migrations {
		var applied int
		row := s.q.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version)
		if err := row.Scan(&applied); err != nil {
			return err
		}
		if applied > 0 {
			continue
		}
		if _, err := s.q.ExecContext(ctx, m.stmt); err != nil {
			return err
		}
		if _, err := s.q.ExecContext(ctx, "INSERT INTO schema_migrations(version) VALUES (?)", m.version); err != nil {
			return err
		}
	}
	return nil
}
