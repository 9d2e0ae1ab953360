package model

// Outcome is the category of a matching decision.
type Outcome int

const (
	NoMatch Outcome = iota
	AmbiguousMatch
	AlreadyAssigned
	UniqueMatch
)

func (o Outcome) String() string {
	switch o {
	case NoMatch:
		return "no_match"
	case AmbiguousMatch:
		return "ambiguous_match"
	case AlreadyAssigned:
		return "already_assigned"
	case UniqueMatch:
		return "unique_match"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome by name in JSON and YAML reports.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Decision is the result of matching one batch of candidates. Match is set
// only for UniqueMatch.
type Decision struct {
	Outcome Outcome    `json:"outcome" yaml:"outcome"`
	Match   *Candidate `json:"match,omitempty" yaml:"match,omitempty"`
}

// DiagnosticKind classifies an operator-facing diagnostic.
type DiagnosticKind string

const (
	DiagExtractionFailure  DiagnosticKind = "extraction_failure"
	DiagCommonNameConflict DiagnosticKind = "common_name_conflict"
	DiagDiacriticMismatch  DiagnosticKind = "diacritic_mismatch"
	DiagAmbiguous          DiagnosticKind = "ambiguous"
	DiagCloseCandidate     DiagnosticKind = "close_candidate"
	DiagDataError          DiagnosticKind = "data_error"
	DiagHandoffFailed      DiagnosticKind = "handoff_failed"
)

// Diagnostic records something an operator should review. It never changes
// a decision.
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind" yaml:"kind"`
	Query     string         `json:"query,omitempty" yaml:"query,omitempty"`
	Candidate *Candidate     `json:"candidate,omitempty" yaml:"candidate,omitempty"`
	Message   string         `json:"message" yaml:"message"`
}
