// Package dataset loads the taxa to reconcile and the exclusion lists that
// narrow a pass.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/taxon-cli/internal/model"
)

// File names inside a dataset directory.
const (
	TaxaJSON            = "taxa.json"
	TaxaCSV             = "taxa.csv"
	TaxaXLSX            = "taxa.xlsx"
	AllowedIDsFile      = "allowed_inat_taxon_ids.csv"
	NotFoundFile        = "taxa_not_in_inat.csv"
	AlreadyAssignedFile = "taxa_already_assigned_common_name_in_inat.csv"
	BannedSynonymsFile  = "incorrect_synonym_matches.csv"
)

// ErrNoTaxa is returned when a directory holds no taxa file.
var ErrNoTaxa = eris.New("dataset: no taxa file")

// DataError describes one input row that cannot be reconciled.
type DataError struct {
	File    string `json:"file" yaml:"file"`
	Row     int    `json:"row" yaml:"row"`
	Message string `json:"message" yaml:"message"`
}

func (e DataError) Error() string {
	return fmt.Sprintf("%s row %d: %s", e.File, e.Row, e.Message)
}

// Dataset is everything one reconciliation pass reads.
type Dataset struct {
	Dir     string
	Records []model.TaxonRecord
	Policy  model.ExclusionPolicy
	// Errors lists rows that were dropped while loading.
	Errors []DataError
}

// Load reads the taxa file and the optional policy files in dir
// concurrently. Missing policy files leave their list empty.
func Load(ctx context.Context, dir string) (*Dataset, error) {
	ds := &Dataset{Dir: dir}
	var taxaErrs []DataError

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, errs, err := loadTaxa(gctx, dir)
		ds.Records, taxaErrs = recs, errs
		return err
	})
	g.Go(func() error {
		ids, err := loadAllowedIDs(gctx, filepath.Join(dir, AllowedIDsFile))
		ds.Policy.AllowedIDs = ids
		return err
	})
	g.Go(func() error {
		set, err := loadNameSet(gctx, filepath.Join(dir, NotFoundFile))
		ds.Policy.NotFound = set
		return err
	})
	g.Go(func() error {
		set, err := loadNameSet(gctx, filepath.Join(dir, AlreadyAssignedFile))
		ds.Policy.AlreadyAssigned = set
		return err
	})
	g.Go(func() error {
		banned, err := loadBannedSynonyms(gctx, filepath.Join(dir, BannedSynonymsFile))
		ds.Policy.BannedSynonyms = banned
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ds.Errors = taxaErrs

	for _, e := range ds.Errors {
		zap.L().Warn("dataset: dropped row", zap.String("file", e.File), zap.Int("row", e.Row), zap.String("reason", e.Message))
	}
	zap.L().Info("dataset: loaded",
		zap.String("dir", dir),
		zap.Int("records", len(ds.Records)),
		zap.Int("dropped", len(ds.Errors)),
		zap.Int("allowed_ids", len(ds.Policy.AllowedIDs)),
		zap.Int("not_found", len(ds.Policy.NotFound)),
		zap.Int("already_assigned", len(ds.Policy.AlreadyAssigned)),
		zap.Int("banned_synonyms", len(ds.Policy.BannedSynonyms)),
	)
	return ds, nil
}

func openOptional(path string) (*os.File, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "dataset: open %s", path)
	}
	return f, true, nil
}

// readTable returns the header and data rows of a CSV file. A missing file
// yields no rows.
func readTable(ctx context.Context, path string) ([]string, [][]string, error) {
	f, ok, err := openOptional(path)
	if err != nil || !ok {
		return nil, nil, err
	}
	defer f.Close() //nolint:errcheck

	rows, err := drain(StreamCSV(ctx, f))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: read %s", filepath.Base(path))
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0], rows[1:], nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func loadAllowedIDs(ctx context.Context, path string) (map[int64]struct{}, error) {
	header, rows, err := readTable(ctx, path)
	if err != nil || header == nil {
		return nil, err
	}
	col := max(columnIndex(header, "id"), 0)

	ids := make(map[int64]struct{}, len(rows))
	for i, row := range rows {
		v := cell(row, col)
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: %s row %d", AllowedIDsFile, i+2)
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

func loadNameSet(ctx context.Context, path string) (map[string]struct{}, error) {
	header, rows, err := readTable(ctx, path)
	if err != nil || header == nil {
		return nil, err
	}
	col := max(columnIndex(header, "scientificName"), 0)

	set := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if v := cell(row, col); v != "" {
			set[v] = struct{}{}
		}
	}
	return set, nil
}

func loadBannedSynonyms(ctx context.Context, path string) (map[string]map[string]struct{}, error) {
	header, rows, err := readTable(ctx, path)
	if err != nil || header == nil {
		return nil, err
	}
	nameCol := columnIndex(header, "scientificName")
	synCol := columnIndex(header, "incorrectSynonym")
	if nameCol < 0 || synCol < 0 {
		return nil, eris.Errorf("dataset: %s needs scientificName and incorrectSynonym columns", BannedSynonymsFile)
	}

	out := make(map[string]map[string]struct{})
	for _, row := range rows {
		name, syn := cell(row, nameCol), cell(row, synCol)
		if name == "" || syn == "" {
			continue
		}
		if out[name] == nil {
			out[name] = make(map[string]struct{})
		}
		out[name][syn] = struct{}{}
	}
	return out, nil
}
