package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies the embedded schema files in lexical order. Every statement
// is idempotent, so running it on each start is safe.
func (db *DB) Migrate(ctx context.Context) error {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, name := range files {
		raw, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		stmts := splitStatements(string(raw))
		for i, stmt := range stmts {
			if err := db.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
				db.logger.Error("migration statement failed", "file", name, "statement", i+1, "error", err)
				return fmt.Errorf("%s statement %d: %w", name, i+1, err)
			}
		}
		db.logger.Info("migration applied", "file", name, "statements", len(stmts))
	}
	return nil
}

func splitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
