package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// InsertConfig describes a single-row insert that tolerates duplicates.
type InsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // columns in argument order
	ConflictKeys []string // columns forming the unique constraint
}

// InsertIgnoreSQL builds INSERT ... VALUES ($1..$n) ON CONFLICT (keys) DO
// NOTHING. The caller reads RowsAffected to learn whether a row was created.
func InsertIgnoreSQL(cfg InsertConfig) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: insert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: insert: no conflict keys specified")
	}

	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		sanitizeTable(cfg.Table),
		quoteAndJoin(cfg.Columns),
		strings.Join(placeholders, ", "),
		quoteAndJoin(cfg.ConflictKeys),
	), nil
}

// sanitizeTable handles schema-qualified table names like "taxon.handoffs".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
