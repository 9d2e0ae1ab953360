// Package handoff delivers unique matches to the collaborator that submits
// common names to the external system.
package handoff

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"
	"text/template"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/taxon-cli/internal/model"
)

// DefaultNoteTemplate renders the note attached to a submitted name.
const DefaultNoteTemplate = "{{.ScientificName}}"

// Match is one record resolved by a unique match.
type Match struct {
	TaxonID        int64  `json:"taxon_id" yaml:"taxon_id"`
	ScientificName string `json:"scientific_name" yaml:"scientific_name"`
	CommonName     string `json:"common_name" yaml:"common_name"`
	// CandidateTitle is the display name of the matched candidate.
	CandidateTitle string `json:"candidate_title,omitempty" yaml:"candidate_title,omitempty"`
}

// AutoSubmittable reports whether the matched taxon carries exactly the
// searched scientific name. Matches found through a synonym need review.
func (m Match) AutoSubmittable() bool {
	return strings.TrimSpace(m.CandidateTitle) == strings.TrimSpace(m.ScientificName)
}

// Sink receives each unique match exactly once per record.
type Sink interface {
	OnUniqueMatchFound(ctx context.Context, m Match) error
}

// Queue persists hand-offs. store.Store satisfies it.
type Queue interface {
	SaveHandoff(ctx context.Context, h *model.Handoff) (bool, error)
}

// StoreSink queues hand-offs for later submission.
type StoreSink struct {
	queue   Queue
	siteURL string
	note    *template.Template
}

// NewStoreSink returns a sink writing to q. An empty noteTemplate selects
// DefaultNoteTemplate.
func NewStoreSink(q Queue, siteURL, noteTemplate string) (*StoreSink, error) {
	if noteTemplate == "" {
		noteTemplate = DefaultNoteTemplate
	}
	tmpl, err := template.New("note").Option("missingkey=error").Parse(noteTemplate)
	if err != nil {
		return nil, eris.Wrap(err, "handoff: parse note template")
	}
	return &StoreSink{queue: q, siteURL: strings.TrimRight(siteURL, "/"), note: tmpl}, nil
}

// OnUniqueMatchFound implements Sink.
func (s *StoreSink) OnUniqueMatchFound(ctx context.Context, m Match) error {
	h, err := s.Build(m)
	if err != nil {
		return err
	}
	created, err := s.queue.SaveHandoff(ctx, h)
	if err != nil {
		return eris.Wrapf(err, "handoff: queue %s", m.ScientificName)
	}
	if !created {
		zap.L().Info("handoff: already queued",
			zap.String("scientific_name", m.ScientificName),
			zap.Int64("taxon_id", m.TaxonID),
			zap.String("status", string(h.Status)),
		)
		return nil
	}
	zap.L().Info("handoff: queued",
		zap.String("id", h.ID),
		zap.String("scientific_name", m.ScientificName),
		zap.String("common_name", m.CommonName),
		zap.Bool("auto_submit", h.AutoSubmit),
	)
	return nil
}

// Build renders the hand-off for m without persisting it.
func (s *StoreSink) Build(m Match) (*model.Handoff, error) {
	var note bytes.Buffer
	if err := s.note.Execute(&note, m); err != nil {
		return nil, eris.Wrap(err, "handoff: render note")
	}
	return &model.Handoff{
		TaxonID:        m.TaxonID,
		ScientificName: m.ScientificName,
		CommonName:     m.CommonName,
		EditURL:        EditURL(s.siteURL, m.TaxonID),
		Note:           note.String(),
		AutoSubmit:     m.AutoSubmittable(),
		Status:         model.HandoffPending,
	}, nil
}

// EditURL is the page where a common name is added to a taxon.
func EditURL(siteURL string, taxonID int64) string {
	return strings.TrimRight(siteURL, "/") + "/taxa/" + strconv.FormatInt(taxonID, 10) + "/taxon_names/new"
}

// Collector keeps matches in memory. Dry runs use it in place of a queue.
type Collector struct {
	mu      sync.Mutex
	matches []Match
}

// OnUniqueMatchFound implements Sink.
func (c *Collector) OnUniqueMatchFound(_ context.Context, m Match) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches = append(c.matches, m)
	zap.L().Info("handoff: dry run",
		zap.String("scientific_name", m.ScientificName),
		zap.Int64("taxon_id", m.TaxonID),
	)
	return nil
}

// Matches returns the collected matches in arrival order.
func (c *Collector) Matches() []Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Match, len(c.matches))
	copy(out, c.matches)
	return out
}
