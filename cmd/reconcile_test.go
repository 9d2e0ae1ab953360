package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/taxon-cli/internal/dataset"
	"github.com/sells-group/taxon-cli/internal/handoff"
	"github.com/sells-group/taxon-cli/internal/model"
	"github.com/sells-group/taxon-cli/internal/rank"
	"github.com/sells-group/taxon-cli/internal/reconcile"
)

func sampleReport() batchReport {
	var sum reconcile.Summary
	sum.Add(reconcile.Report{
		Record: model.TaxonRecord{Rank: rank.Genus, ScientificName: "Lupinus", CommonName: "vlčí bôb"},
		Status: model.RecordFound,
		Reason: reconcile.ReasonUniqueMatch,
	})
	sum.Add(reconcile.Report{
		Record: model.TaxonRecord{Rank: rank.Species, ScientificName: "Rosa canina", CommonName: "ruža šípová"},
		Status: model.RecordNotFound,
		Reason: reconcile.ReasonAmbiguous,
	})
	sum.Add(reconcile.Report{
		Record:       model.TaxonRecord{Rank: rank.Order, ScientificName: "Carnivora", CommonName: "šelmy"},
		Status:       model.RecordFound,
		Reason:       reconcile.ReasonUniqueMatch,
		HandoffError: "queue unavailable",
	})
	return batchReport{
		RunID:      "abc12345-6789-0000-0000-000000000000",
		Dataset:    "dataset",
		Summary:    sum,
		DataErrors: []dataset.DataError{{File: "taxa.csv", Row: 4, Message: "missing genus_common"}},
	}
}

func TestFormatSummary(t *testing.T) {
	var buf bytes.Buffer
	formatSummary(&buf, sampleReport())

	out := buf.String()
	assert.Contains(t, out, "abc12345-6789")
	assert.Contains(t, out, "Matched:")
	assert.Contains(t, out, "Ambiguous:")
	assert.Contains(t, out, "Dropped rows:")
	assert.Contains(t, out, "Rosa canina")
	assert.Contains(t, out, "handoff_failed")
	assert.NotContains(t, out, "Lupinus")
	assert.NotContains(t, out, "Cancelled")
}

func TestFormatSummary_DryRun(t *testing.T) {
	rep := batchReport{
		Dataset:  "dataset",
		DryRun:   true,
		Handoffs: []handoff.Match{{TaxonID: 1, ScientificName: "Lupinus", CommonName: "vlčí bôb"}},
	}
	rep.Summary.Cancelled = true

	var buf bytes.Buffer
	formatSummary(&buf, rep)

	out := buf.String()
	assert.Contains(t, out, "Dry run matches:")
	assert.Contains(t, out, "Cancelled:")
	assert.NotContains(t, out, "Run:")
}

func TestReportFormat(t *testing.T) {
	tests := []struct {
		path, fallback, want string
	}{
		{"out.json", "yaml", "json"},
		{"out.YAML", "json", "yaml"},
		{"out.yml", "json", "yaml"},
		{"out.txt", "json", "json"},
		{"report", "yaml", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, reportFormat(tt.path, tt.fallback))
		})
	}
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "json", sampleReport()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "dataset", got["dataset"])
	counts := got["summary"].(map[string]any)["counts"].(map[string]any)
	assert.Equal(t, float64(3), counts["total"])
	assert.Equal(t, float64(2), counts["matched"])
	assert.Equal(t, float64(1), counts["ambiguous"])
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "yaml", sampleReport()))

	var got struct {
		Dataset string `yaml:"dataset"`
		Summary struct {
			Counts model.RunCounts `yaml:"counts"`
		} `yaml:"summary"`
		DataErrors []dataset.DataError `yaml:"data_errors"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "dataset", got.Dataset)
	assert.Equal(t, 3, got.Summary.Counts.Total)
	require.Len(t, got.DataErrors, 1)
	assert.Equal(t, 4, got.DataErrors[0].Row)
}

func TestWriteReport_UnsupportedFormat(t *testing.T) {
	err := writeReport(&bytes.Buffer{}, "xml", sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestWriteReportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, writeReportFile(path, "yaml", sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}
