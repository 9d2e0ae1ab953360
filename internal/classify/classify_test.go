package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/taxon-cli/internal/model"
	"github.com/sells-group/taxon-cli/internal/rank"
)

func newTestClassifier() *Classifier {
	return New(rank.Default(), "")
}

func TestDisplayNameAndSubtitle(t *testing.T) {
	c := newTestClassifier()
	cand := model.Candidate{Title: "  Vlk dravý ", Subtitle: "Rad Carnivora Zobraziť "}

	assert.Equal(t, "Vlk dravý", c.DisplayName(cand))
	assert.Equal(t, "Rad Carnivora", c.Subtitle(cand))
}

func TestCommonName(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name     string
		cand     model.Candidate
		want     string
		wantSome bool
	}{
		{"bare rank label", model.Candidate{Title: "Lupinus", Subtitle: "Rod"}, "", false},
		{"bare label with boilerplate", model.Candidate{Title: "Lupinus", Subtitle: "Rod Zobraziť"}, "", false},
		{"multi-word label", model.Candidate{Title: "Sorbaronia", Subtitle: "Hybridný rod"}, "", false},
		{"rank and name", model.Candidate{Title: "Vlk dravý", Subtitle: "Rad Carnivora"}, "Vlk dravý", true},
		{"implicit species", model.Candidate{Title: "Šípka obyčajná", Subtitle: "Rosa canina"}, "Šípka obyčajná", true},
		{"synonym suffix dropped", model.Candidate{Title: "Šípka obyčajná (Rosa corymbifera)", Subtitle: "Rosa canina"}, "Šípka obyčajná", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.CommonName(tt.cand)
			assert.Equal(t, tt.wantSome, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRank(t *testing.T) {
	c := newTestClassifier()

	r, ok := c.Rank(model.Candidate{Subtitle: "Čeľaď Canidae"})
	assert.True(t, ok)
	assert.Equal(t, rank.Family, r)

	_, ok = c.Rank(model.Candidate{Subtitle: "Rosa canina"})
	assert.False(t, ok)

	assert.Equal(t, []rank.Rank{rank.Suborder, rank.Infraorder}, c.Ranks(model.Candidate{Subtitle: "Podrad"}))
}

func TestMatchesRank(t *testing.T) {
	c := newTestClassifier()

	assert.True(t, c.MatchesRank(model.Candidate{Subtitle: "Rod"}, rank.Genus))
	assert.False(t, c.MatchesRank(model.Candidate{Subtitle: "Podrod"}, rank.Genus))
	assert.True(t, c.MatchesRank(model.Candidate{Subtitle: "Podrad"}, rank.Infraorder))

	// Species: implicit (no label) or explicit label.
	assert.True(t, c.MatchesRank(model.Candidate{Subtitle: "Rosa canina"}, rank.Species))
	assert.True(t, c.MatchesRank(model.Candidate{Subtitle: "Druh"}, rank.Species))
	assert.False(t, c.MatchesRank(model.Candidate{Subtitle: "Poddruh Rosa canina"}, rank.Species))
	assert.False(t, c.MatchesRank(model.Candidate{Subtitle: "Rosa canina"}, rank.Genus))

	// Shared label: either rank sharing it matches.
	assert.True(t, c.MatchesRank(model.Candidate{Subtitle: "Podrad"}, rank.Suborder))

	// No subtitle at all carries no rank, not even an implicit species.
	assert.False(t, c.MatchesRank(model.Candidate{Title: "Culex pipiens"}, rank.Species))
	assert.False(t, c.MatchesRank(model.Candidate{Title: "Culex pipiens", Subtitle: "Zobraziť"}, rank.Species))
}

func TestID(t *testing.T) {
	c := newTestClassifier()

	id, ok := c.ID(model.Candidate{Link: "https://www.inaturalist.org/taxa/48461-Lupinus"})
	assert.True(t, ok)
	assert.Equal(t, int64(48461), id)

	id, ok = c.ID(model.Candidate{Link: "/taxa/7"})
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	for _, link := range []string{"", "https://www.inaturalist.org/observations/5", "/taxa/abc", "/taxa/99999999999999999999999"} {
		_, ok := c.ID(model.Candidate{Link: link})
		assert.False(t, ok, link)
	}
}

func TestCustomBoilerplate(t *testing.T) {
	c := New(rank.Default(), "View")
	assert.Equal(t, "Rod", c.Subtitle(model.Candidate{Subtitle: "Rod View"}))
}
