package model

import "strings"

// ExclusionPolicy is the read-only input that narrows one reconciliation pass.
type ExclusionPolicy struct {
	// AllowedIDs restricts candidates to these taxon IDs. Nil or empty means
	// unrestricted.
	AllowedIDs map[int64]struct{}

	// NotFound lists scientific names known to be absent from the external system.
	NotFound map[string]struct{}

	// AlreadyAssigned lists scientific names confirmed to carry a common name already.
	AlreadyAssigned map[string]struct{}

	// BannedSynonyms maps a canonical scientific name to synonyms that must not be searched.
	BannedSynonyms map[string]map[string]struct{}
}

// Allows reports whether id passes the allow-list.
func (p ExclusionPolicy) Allows(id int64) bool {
	if len(p.AllowedIDs) == 0 {
		return true
	}
	_, ok := p.AllowedIDs[id]
	return ok
}

// IsNotFound reports whether name is on the not-found list.
func (p ExclusionPolicy) IsNotFound(name string) bool {
	_, ok := p.NotFound[strings.TrimSpace(name)]
	return ok
}

// IsAlreadyAssigned reports whether name is on the already-assigned list.
func (p ExclusionPolicy) IsAlreadyAssigned(name string) bool {
	_, ok := p.AlreadyAssigned[strings.TrimSpace(name)]
	return ok
}

// Banned returns the banned synonym set for a canonical name. The result may be nil.
func (p ExclusionPolicy) Banned(name string) map[string]struct{} {
	return p.BannedSynonyms[strings.TrimSpace(name)]
}
