package search

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/taxon-cli/internal/model"
	"github.com/sells-group/taxon-cli/internal/rank"
	"github.com/sells-group/taxon-cli/pkg/inat"
)

// DefaultSiteURL is the public site the candidate links point at.
const DefaultSiteURL = "https://www.inaturalist.org"

// INat renders iNaturalist autocomplete hits as dropdown candidates.
type INat struct {
	client  inat.Client
	tax     *rank.Taxonomy
	siteURL string
}

// NewINat returns a Searcher backed by client. Rank labels are rendered with tax.
func NewINat(client inat.Client, tax *rank.Taxonomy, siteURL string) *INat {
	if siteURL == "" {
		siteURL = DefaultSiteURL
	}
	return &INat{client: client, tax: tax, siteURL: strings.TrimRight(siteURL, "/")}
}

// Search implements Searcher.
func (s *INat) Search(ctx context.Context, text string) ([]model.Candidate, error) {
	resp, err := s.client.Autocomplete(ctx, text)
	if err != nil {
		return nil, eris.Wrapf(err, "search: autocomplete %q", text)
	}
	out := make([]model.Candidate, 0, len(resp.Results))
	for _, t := range resp.Results {
		// Ranks outside the table (complex, kingdom, ...) render without a
		// label the classifier can read, so they are never offered.
		if _, err := rank.Parse(t.Rank); err != nil {
			zap.L().Debug("search: dropping hit with unknown rank",
				zap.String("query", text),
				zap.Int64("taxon_id", t.ID),
				zap.String("rank", t.Rank),
			)
			continue
		}
		out = append(out, s.Render(t))
	}
	return out, nil
}

// Render builds the candidate the web dropdown shows for t. Taxa without a
// common name show the scientific name as title and only the rank label as
// subtitle. Species with a common name carry no rank label.
func (s *INat) Render(t inat.Taxon) model.Candidate {
	common := strings.TrimSpace(t.PreferredCommonName)
	title := t.Name
	if common != "" {
		title = common
	}
	if m := strings.TrimSpace(t.MatchedTerm); m != "" &&
		!strings.EqualFold(m, t.Name) && !strings.EqualFold(m, common) {
		title += " (" + m + ")"
	}

	token := ""
	if r, err := rank.Parse(t.Rank); err == nil {
		token = s.tax.DisplayToken(r)
	}
	var subtitle string
	switch {
	case common == "":
		subtitle = token
	case t.Rank == string(rank.Species) || token == "":
		subtitle = t.Name
	default:
		subtitle = token + " " + t.Name
	}

	return model.Candidate{
		Title:    title,
		Subtitle: subtitle,
		Link:     s.siteURL + "/taxa/" + strconv.FormatInt(t.ID, 10),
	}
}
