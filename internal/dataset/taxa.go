package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/taxon-cli/internal/model"
	"github.com/sells-group/taxon-cli/internal/rank"
)

// SynonymSeparator splits the synonyms cell of tabular taxa files.
const SynonymSeparator = "|"

// row reads one field of an input row by column name.
type row func(field string) string

// loadTaxa reads whichever taxa file exists, preferring JSON over CSV over XLSX.
func loadTaxa(ctx context.Context, dir string) ([]model.TaxonRecord, []DataError, error) {
	for _, name := range []string{TaxaJSON, TaxaCSV, TaxaXLSX} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		switch name {
		case TaxaJSON:
			return loadTaxaJSON(ctx, path)
		case TaxaCSV:
			return loadTaxaCSV(ctx, path)
		default:
			return loadTaxaXLSX(path)
		}
	}
	return nil, nil, eris.Wrapf(ErrNoTaxa, "%s", dir)
}

func loadTaxaJSON(ctx context.Context, path string) ([]model.TaxonRecord, []DataError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	items, err := drain(DecodeJSONArray[map[string]any](ctx, f))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: read %s", TaxaJSON)
	}

	var recs []model.TaxonRecord
	var bad []DataError
	for i, item := range items {
		get := func(field string) string {
			s, _ := item[field].(string)
			return s
		}
		rec, err := recordFrom(get, jsonSynonyms(item["synonyms"]))
		if err != nil {
			bad = append(bad, DataError{File: TaxaJSON, Row: i + 1, Message: err.Error()})
			continue
		}
		recs = append(recs, rec)
	}
	return recs, bad, nil
}

func jsonSynonyms(v any) []string {
	switch s := v.(type) {
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		return splitSynonyms(s)
	default:
		return nil
	}
}

func loadTaxaCSV(ctx context.Context, path string) ([]model.TaxonRecord, []DataError, error) {
	header, rows, err := readTable(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	recs, bad := fromTable(TaxaCSV, header, rows)
	return recs, bad, nil
}

func loadTaxaXLSX(path string) ([]model.TaxonRecord, []DataError, error) {
	rows, err := ReadXLSX(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: read %s", TaxaXLSX)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	recs, bad := fromTable(TaxaXLSX, rows[0], rows[1:])
	return recs, bad, nil
}

func fromTable(file string, header []string, rows [][]string) ([]model.TaxonRecord, []DataError) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}

	var recs []model.TaxonRecord
	var bad []DataError
	for i, r := range rows {
		get := func(field string) string {
			j, ok := index[field]
			if !ok {
				return ""
			}
			return cell(r, j)
		}
		rec, err := recordFrom(get, splitSynonyms(get("synonyms")))
		if err != nil {
			// Row numbers count the header as row 1.
			bad = append(bad, DataError{File: file, Row: i + 2, Message: err.Error()})
			continue
		}
		recs = append(recs, rec)
	}
	return recs, bad
}

func splitSynonyms(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, SynonymSeparator) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// recordFrom builds a record from a rank-keyed row: the rank column names
// which <rank>_scientific and <rank>_common columns hold the names.
func recordFrom(get row, synonyms []string) (model.TaxonRecord, error) {
	r, err := rank.Parse(get("rank"))
	if err != nil {
		return model.TaxonRecord{}, err
	}
	rec := model.TaxonRecord{
		Rank:           r,
		ScientificName: strings.TrimSpace(get(rank.ScientificField(r))),
		CommonName:     strings.TrimSpace(get(rank.CommonField(r))),
		Synonyms:       synonyms,
	}
	switch {
	case rec.ScientificName == "":
		return rec, eris.Errorf("missing %s", rank.ScientificField(r))
	case rec.CommonName == "":
		return rec, eris.Errorf("missing %s", rank.CommonField(r))
	}
	return rec, nil
}
