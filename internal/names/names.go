// Package names normalizes taxon names for equality comparison.
package names

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options selects the optional normalization passes. Lower-casing and
// whitespace collapsing always apply.
type Options struct {
	// StripDiacritics removes combining marks so "Čeľaď" and "celad" compare equal.
	StripDiacritics bool

	// StripWhitespaceAndPunctuation removes spaces and periods and folds the
	// hybrid cross to a latin x, so "Rosa × damascena" equals "Rosa xdamascena".
	StripWhitespaceAndPunctuation bool
}

// HybridCross is the multiplication sign used in hybrid names.
const HybridCross = '×'

var parentheticalSuffix = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

// Normalize lower-cases text, collapses whitespace runs and applies the
// passes selected in opts. It never fails and is idempotent.
func Normalize(text string, opts Options) string {
	// Compose before lower-casing: a decomposed capital only becomes a
	// precomposed capital under NFC.
	s := norm.NFC.String(strings.ToLower(norm.NFC.String(text)))
	if opts.StripDiacritics {
		s = stripMarks(s)
	}
	s = strings.Join(strings.Fields(s), " ")
	if opts.StripWhitespaceAndPunctuation {
		s = strings.Map(func(r rune) rune {
			switch {
			case r == HybridCross:
				return 'x'
			case r == '.' || unicode.IsSpace(r):
				return -1
			default:
				return r
			}
		}, s)
	}
	return s
}

// Fold is the diacritic-insensitive comparison key used for common names.
func Fold(text string) string {
	return Normalize(text, Options{StripDiacritics: true})
}

// Compact is the comparison key used for scientific names.
func Compact(text string) string {
	return Normalize(text, Options{StripWhitespaceAndPunctuation: true})
}

// Equal reports whether a and b normalize to the same string.
func Equal(a, b string, opts Options) bool {
	return Normalize(a, opts) == Normalize(b, opts)
}

// StripParentheticalSuffix removes one trailing "( … )" segment, e.g. a
// cross-referenced synonym appended to a display title.
func StripParentheticalSuffix(text string) string {
	return strings.TrimSpace(parentheticalSuffix.ReplaceAllString(text, ""))
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
