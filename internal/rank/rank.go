// Package rank translates between canonical taxon rank identifiers and the
// display tokens the external taxonomy renders in search results.
package rank

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Rank is a canonical taxon rank identifier.
type Rank string

const (
	Class       Rank = "class"
	Order       Rank = "order"
	Suborder    Rank = "suborder"
	Infraorder  Rank = "infraorder"
	Superfamily Rank = "superfamily"
	Family      Rank = "family"
	Subfamily   Rank = "subfamily"
	Tribe       Rank = "tribe"
	Genus       Rank = "genus"
	GenusHybrid Rank = "genushybrid"
	Subgenus    Rank = "subgenus"
	Section     Rank = "section"
	Species     Rank = "species"
	Hybrid      Rank = "hybrid"
	Subspecies  Rank = "subspecies"
	Variety     Rank = "variety"
	Form        Rank = "form"
)

// All lists every known rank from the highest to the lowest.
var All = []Rank{
	Class, Order, Suborder, Infraorder, Superfamily, Family, Subfamily, Tribe,
	Genus, GenusHybrid, Subgenus, Section, Species, Hybrid, Subspecies, Variety, Form,
}

// ErrUnknownRank is returned by Parse for identifiers outside the enumeration.
var ErrUnknownRank = eris.New("rank: unknown rank")

// Parse maps a canonical identifier such as "genus" to its Rank.
func Parse(id string) (Rank, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, r := range All {
		if string(r) == id {
			return r, nil
		}
	}
	return "", eris.Wrapf(ErrUnknownRank, "%q", id)
}

func (r Rank) String() string { return string(r) }

// ScientificField is the dataset column holding the scientific name for r.
func ScientificField(r Rank) string { return string(r) + "_scientific" }

// CommonField is the dataset column holding the common name for r.
func CommonField(r Rank) string { return string(r) + "_common" }

// slovak holds the display tokens of the Slovak locale. Suborder and
// infraorder intentionally share a token.
var slovak = map[Rank]string{
	Class:       "Trieda",
	Order:       "Rad",
	Suborder:    "Podrad",
	Infraorder:  "Podrad",
	Superfamily: "Nadčeľaď",
	Family:      "Čeľaď",
	Subfamily:   "Podčeľaď",
	Tribe:       "Tribus",
	Genus:       "Rod",
	GenusHybrid: "Hybridný rod",
	Subgenus:    "Podrod",
	Section:     "Sekcia",
	Species:     "Druh",
	Hybrid:      "Kríženec",
	Subspecies:  "Poddruh",
	Variety:     "Varieta",
	Form:        "Forma",
}

// Taxonomy is an immutable rank ↔ token table. Build it once and share the
// pointer; none of its methods mutate it.
type Taxonomy struct {
	tokens   map[Rank]string
	byToken  map[string][]Rank
	prefixes []string // longest first
}

// Default returns the Slovak taxonomy used by the external search.
func Default() *Taxonomy {
	t, _ := New(slovak)
	return t
}

// New builds a Taxonomy from a token table. Every rank in All must have a
// non-empty token.
func New(tokens map[Rank]string) (*Taxonomy, error) {
	t := &Taxonomy{
		tokens:  make(map[Rank]string, len(All)),
		byToken: make(map[string][]Rank),
	}
	for _, r := range All {
		tok := strings.TrimSpace(tokens[r])
		if tok == "" {
			return nil, eris.Errorf("rank: missing display token for %s", r)
		}
		t.tokens[r] = tok
		if _, seen := t.byToken[tok]; !seen {
			t.prefixes = append(t.prefixes, tok)
		}
		t.byToken[tok] = append(t.byToken[tok], r)
	}
	// Longest first so a short token never shadows a longer one it prefixes;
	// the stable sort keeps enumeration order for equal lengths.
	sort.SliceStable(t.prefixes, func(i, j int) bool {
		return len([]rune(t.prefixes[i])) > len([]rune(t.prefixes[j]))
	})
	return t, nil
}

// DisplayToken returns the token rendered for r, or "" for an unknown rank.
func (t *Taxonomy) DisplayToken(r Rank) string {
	return t.tokens[r]
}

// Ranks returns every rank rendered as token. Shared tokens yield more than one.
func (t *Taxonomy) Ranks(token string) []Rank {
	rs := t.byToken[strings.TrimSpace(token)]
	out := make([]Rank, len(rs))
	copy(out, rs)
	return out
}

// Tokens returns the distinct display tokens, longest first.
func (t *Taxonomy) Tokens() []string {
	out := make([]string, len(t.prefixes))
	copy(out, t.prefixes)
	return out
}

// StartsWithRank reports whether text is r's token or begins with the token
// followed by a space.
func (t *Taxonomy) StartsWithRank(text string, r Rank) bool {
	tok, ok := t.tokens[r]
	if !ok {
		return false
	}
	return hasTokenPrefix(text, tok)
}

// StartsWithAnyRank reports whether text begins with any known token.
func (t *Taxonomy) StartsWithAnyRank(text string) bool {
	_, ok := t.prefixToken(text)
	return ok
}

// LongestMatchingRankPrefix returns the rank whose token prefixes text. For a
// shared token the first rank in enumeration order is returned; use
// PrefixRanks for the whole set. The boolean is false when text starts with
// the name itself rather than a rank label.
func (t *Taxonomy) LongestMatchingRankPrefix(text string) (Rank, bool) {
	tok, ok := t.prefixToken(text)
	if !ok {
		return "", false
	}
	return t.byToken[tok][0], true
}

// PrefixRanks returns every rank sharing the token that prefixes text.
func (t *Taxonomy) PrefixRanks(text string) []Rank {
	tok, ok := t.prefixToken(text)
	if !ok {
		return nil
	}
	return t.Ranks(tok)
}

// StripRankPrefix removes a leading rank label from text.
func (t *Taxonomy) StripRankPrefix(text string) string {
	text = strings.TrimSpace(text)
	tok, ok := t.prefixToken(text)
	if !ok {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(text, tok))
}

// StripRankTokens removes every whole-word occurrence of a rank token.
func (t *Taxonomy) StripRankTokens(text string) string {
	words := strings.Fields(text)
	var kept []string
	for i := 0; i < len(words); {
		n := t.tokenAt(words[i:])
		if n > 0 {
			i += n
			continue
		}
		kept = append(kept, words[i])
		i++
	}
	return strings.Join(kept, " ")
}

// tokenAt returns the word count of the longest token starting at words[0].
func (t *Taxonomy) tokenAt(words []string) int {
	for _, tok := range t.prefixes {
		tw := strings.Fields(tok)
		if len(tw) > len(words) {
			continue
		}
		match := true
		for k := range tw {
			if words[k] != tw[k] {
				match = false
				break
			}
		}
		if match {
			return len(tw)
		}
	}
	return 0
}

func (t *Taxonomy) prefixToken(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, tok := range t.prefixes {
		if hasTokenPrefix(text, tok) {
			return tok, true
		}
	}
	return "", false
}

func hasTokenPrefix(text, tok string) bool {
	text = strings.TrimSpace(text)
	return text == tok || strings.HasPrefix(text, tok+" ")
}
