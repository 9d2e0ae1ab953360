package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_EveryRankHasToken(t *testing.T) {
	tax := Default()
	for _, r := range All {
		assert.NotEmpty(t, tax.DisplayToken(r), "rank %s", r)
	}
}

func TestLongestMatchingRankPrefix_RoundTrip(t *testing.T) {
	tax := Default()
	for _, r := range All {
		text := tax.DisplayToken(r) + " x"
		got, ok := tax.LongestMatchingRankPrefix(text)
		require.True(t, ok, "rank %s", r)
		assert.Equal(t, tax.DisplayToken(r), tax.DisplayToken(got))
		assert.Contains(t, tax.PrefixRanks(text), r)
	}
}

func TestLongestMatchingRankPrefix_SharedToken(t *testing.T) {
	tax := Default()

	got, ok := tax.LongestMatchingRankPrefix("Podrad Heteroptera")
	require.True(t, ok)
	assert.Equal(t, Suborder, got)
	assert.Equal(t, []Rank{Suborder, Infraorder}, tax.PrefixRanks("Podrad Heteroptera"))
	assert.Equal(t, []Rank{Suborder, Infraorder}, tax.Ranks("Podrad"))
}

func TestLongestMatchingRankPrefix_NoLabel(t *testing.T) {
	tax := Default()
	for _, text := range []string{"Rosa canina", "Radix auricularia", "Rodeo", "", "rod Lupinus"} {
		_, ok := tax.LongestMatchingRankPrefix(text)
		assert.False(t, ok, text)
	}
}

func TestLongestMatchingRankPrefix_PrefersLongerToken(t *testing.T) {
	tax, err := New(map[Rank]string{
		Class: "Trieda", Order: "Rad", Suborder: "Rad podradový", Infraorder: "Podrad",
		Superfamily: "Nadčeľaď", Family: "Čeľaď", Subfamily: "Podčeľaď", Tribe: "Tribus",
		Genus: "Rod", GenusHybrid: "Hybridný rod", Subgenus: "Podrod", Section: "Sekcia",
		Species: "Druh", Hybrid: "Kríženec", Subspecies: "Poddruh", Variety: "Varieta", Form: "Forma",
	})
	require.NoError(t, err)

	got, ok := tax.LongestMatchingRankPrefix("Rad podradový Heteroptera")
	require.True(t, ok)
	assert.Equal(t, Suborder, got)

	got, ok = tax.LongestMatchingRankPrefix("Rad Carnivora")
	require.True(t, ok)
	assert.Equal(t, Order, got)
}

func TestNew_MissingToken(t *testing.T) {
	_, err := New(map[Rank]string{Genus: "Rod"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing display token")
}

func TestStartsWithRank(t *testing.T) {
	tax := Default()
	assert.True(t, tax.StartsWithRank("Rod", Genus))
	assert.True(t, tax.StartsWithRank("Rod Lupinus", Genus))
	assert.False(t, tax.StartsWithRank("Rodový", Genus))
	assert.False(t, tax.StartsWithRank("Podrod Lupinus", Genus))
	assert.True(t, tax.StartsWithRank("Podrad", Infraorder))
	assert.False(t, tax.StartsWithRank("Rod", Rank("kingdom")))
}

func TestStripRankPrefix(t *testing.T) {
	tax := Default()
	assert.Equal(t, "Carnivora", tax.StripRankPrefix("Rad Carnivora"))
	assert.Equal(t, "", tax.StripRankPrefix("Rod"))
	assert.Equal(t, "Rosa canina", tax.StripRankPrefix("Rosa canina"))
	assert.Equal(t, "Mentha × piperita", tax.StripRankPrefix("Kríženec Mentha × piperita"))
}

func TestStripRankTokens(t *testing.T) {
	tax := Default()
	assert.Equal(t, "", tax.StripRankTokens("Rod"))
	assert.Equal(t, "", tax.StripRankTokens("Hybridný rod"))
	assert.Equal(t, "Carnivora", tax.StripRankTokens("Rad Carnivora"))
	assert.Equal(t, "Rosa canina", tax.StripRankTokens("Rosa canina"))
	assert.Equal(t, "Rodový", tax.StripRankTokens("Rodový"))
}

func TestParse(t *testing.T) {
	r, err := Parse(" Genus ")
	require.NoError(t, err)
	assert.Equal(t, Genus, r)

	_, err = Parse("subspecies_hybrid")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownRank)
}

func TestFieldAccessors(t *testing.T) {
	assert.Equal(t, "genus_scientific", ScientificField(Genus))
	assert.Equal(t, "species_common", CommonField(Species))
}
