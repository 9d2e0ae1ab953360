package search

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/taxon-cli/internal/model"
)

// Fixture replays recorded search results. Queries missing from the file
// return no candidates.
type Fixture struct {
	results map[string][]model.Candidate
}

// NewFixture returns a Fixture over results keyed by query text.
func NewFixture(results map[string][]model.Candidate) *Fixture {
	m := make(map[string][]model.Candidate, len(results))
	for k, v := range results {
		m[strings.TrimSpace(k)] = v
	}
	return &Fixture{results: m}
}

// LoadFixture reads a JSON object mapping query text to candidate arrays.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "search: read fixture %s", path)
	}
	var results map[string][]model.Candidate
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, eris.Wrapf(err, "search: parse fixture %s", path)
	}
	return NewFixture(results), nil
}

// Search implements Searcher.
func (f *Fixture) Search(_ context.Context, text string) ([]model.Candidate, error) {
	hits := f.results[strings.TrimSpace(text)]
	out := make([]model.Candidate, len(hits))
	copy(out, hits)
	return out, nil
}
