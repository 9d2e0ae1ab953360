package model

import "time"

// HandoffStatus tracks whether a queued common name has been submitted.
type HandoffStatus string

const (
	HandoffPending   HandoffStatus = "pending"
	HandoffSubmitted HandoffStatus = "submitted"
)

// Handoff is a unique match queued for the submission collaborator.
type Handoff struct {
	ID             string        `json:"id" yaml:"id"`
	TaxonID        int64         `json:"taxon_id" yaml:"taxon_id"`
	ScientificName string        `json:"scientific_name" yaml:"scientific_name"`
	CommonName     string        `json:"common_name" yaml:"common_name"`
	EditURL        string        `json:"edit_url" yaml:"edit_url"`
	Note           string        `json:"note" yaml:"note"`
	AutoSubmit     bool          `json:"auto_submit" yaml:"auto_submit"`
	Status         HandoffStatus `json:"status" yaml:"status"`
	CreatedAt      time.Time     `json:"created_at" yaml:"created_at"`
	SubmittedAt    *time.Time    `json:"submitted_at,omitempty" yaml:"submitted_at,omitempty"`
}
