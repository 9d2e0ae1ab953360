package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertIgnoreSQL(t *testing.T) {
	sql, err := InsertIgnoreSQL(InsertConfig{
		Table:        "handoffs",
		Columns:      []string{"id", "taxon_id", "common_name"},
		ConflictKeys: []string{"taxon_id", "common_name"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "handoffs" ("id", "taxon_id", "common_name") VALUES ($1, $2, $3) ON CONFLICT ("taxon_id", "common_name") DO NOTHING`,
		sql)
}

func TestInsertIgnoreSQL_NoColumns(t *testing.T) {
	_, err := InsertIgnoreSQL(InsertConfig{Table: "handoffs", ConflictKeys: []string{"id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestInsertIgnoreSQL_NoConflictKeys(t *testing.T) {
	_, err := InsertIgnoreSQL(InsertConfig{Table: "handoffs", Columns: []string{"id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"taxon.handoffs", `"taxon"."handoffs"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}
