// Package model holds the data types shared by the reconciliation packages.
package model

import (
	"strings"

	"github.com/sells-group/taxon-cli/internal/rank"
)

// TaxonRecord is one canonical taxon to reconcile against the external search.
type TaxonRecord struct {
	Rank           rank.Rank `json:"rank" yaml:"rank"`
	ScientificName string    `json:"scientific_name" yaml:"scientific_name"`
	CommonName     string    `json:"common_name,omitempty" yaml:"common_name,omitempty"`
	Synonyms       []string  `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
}

// Eligible reports whether the record carries both names needed to reconcile it.
func (t TaxonRecord) Eligible() bool {
	return strings.TrimSpace(t.ScientificName) != "" && strings.TrimSpace(t.CommonName) != ""
}

// NameCandidates returns the scientific name followed by its synonyms,
// trimmed and deduplicated, skipping any synonym in banned.
func (t TaxonRecord) NameCandidates(banned map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(t.Synonyms)+1)
	out := make([]string, 0, len(t.Synonyms)+1)

	add := func(name string, checkBanned bool) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		if checkBanned {
			if _, skip := banned[name]; skip {
				return
			}
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	add(t.ScientificName, false)
	for _, s := range t.Synonyms {
		add(s, true)
	}
	return out
}
