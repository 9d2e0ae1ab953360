package model

// Candidate is one search result as rendered by the external taxonomy. It is
// built fresh per search call and never modified.
type Candidate struct {
	Title    string `json:"title" yaml:"title"`
	Subtitle string `json:"subtitle" yaml:"subtitle"`
	// Link is the reference link embedded in the result; the numeric taxon ID
	// is parsed out of it.
	Link string `json:"link,omitempty" yaml:"link,omitempty"`
}
