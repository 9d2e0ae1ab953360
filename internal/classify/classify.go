// Package classify derives display name, common name, rank and taxon ID
// from a raw search result.
package classify

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sells-group/taxon-cli/internal/model"
	"github.com/sells-group/taxon-cli/internal/names"
	"github.com/sells-group/taxon-cli/internal/rank"
)

// DefaultBoilerplate is the link label appended to every subtitle.
const DefaultBoilerplate = "Zobraziť"

var taxonIDPattern = regexp.MustCompile(`/taxa/(\d+)`)

// Classifier reads candidate fields against a rank taxonomy.
type Classifier struct {
	tax         *rank.Taxonomy
	boilerplate string
}

// New returns a Classifier. An empty boilerplate selects DefaultBoilerplate.
func New(tax *rank.Taxonomy, boilerplate string) *Classifier {
	if boilerplate == "" {
		boilerplate = DefaultBoilerplate
	}
	return &Classifier{tax: tax, boilerplate: boilerplate}
}

// Taxonomy returns the rank table the classifier reads with.
func (c *Classifier) Taxonomy() *rank.Taxonomy { return c.tax }

// DisplayName returns the trimmed title.
func (c *Classifier) DisplayName(cand model.Candidate) string {
	return strings.TrimSpace(cand.Title)
}

// Subtitle returns the subtitle without the boilerplate label.
func (c *Classifier) Subtitle(cand model.Candidate) string {
	return strings.TrimSpace(strings.ReplaceAll(cand.Subtitle, c.boilerplate, ""))
}

// CommonName returns the candidate's existing common name. A subtitle that is
// nothing but rank labels means the taxon has no common name yet.
func (c *Classifier) CommonName(cand model.Candidate) (string, bool) {
	if c.tax.StripRankTokens(c.Subtitle(cand)) == "" {
		return "", false
	}
	return names.StripParentheticalSuffix(c.DisplayName(cand)), true
}

// Rank returns the rank labelled in the subtitle. No label is expected for
// species that already have a common name.
func (c *Classifier) Rank(cand model.Candidate) (rank.Rank, bool) {
	return c.tax.LongestMatchingRankPrefix(c.Subtitle(cand))
}

// Ranks returns every rank sharing the subtitle's label.
func (c *Classifier) Ranks(cand model.Candidate) []rank.Rank {
	return c.tax.PrefixRanks(c.Subtitle(cand))
}

// MatchesRank reports whether the candidate is labelled with r. A species
// query also accepts an unlabelled subtitle, which is the scientific name of
// a species that already has a common name. An empty subtitle matches nothing.
func (c *Classifier) MatchesRank(cand model.Candidate, r rank.Rank) bool {
	ranks := c.Ranks(cand)
	if len(ranks) == 0 {
		return r == rank.Species && c.Subtitle(cand) != ""
	}
	return slices.Contains(ranks, r)
}

// ID parses the numeric taxon ID out of the reference link.
func (c *Classifier) ID(cand model.Candidate) (int64, bool) {
	m := taxonIDPattern.FindStringSubmatch(cand.Link)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
