// Package reconcile drives one taxon record at a time through the search
// provider and the matching engine.
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/taxon-cli/internal/handoff"
	"github.com/sells-group/taxon-cli/internal/match"
	"github.com/sells-group/taxon-cli/internal/model"
	"github.com/sells-group/taxon-cli/internal/names"
	"github.com/sells-group/taxon-cli/internal/rank"
	"github.com/sells-group/taxon-cli/internal/search"
)

// Reason explains how a record reached its terminal status.
type Reason string

const (
	ReasonIneligible        Reason = "ineligible"
	ReasonListedNotFound    Reason = "listed_not_found"
	ReasonListedAssigned    Reason = "listed_already_assigned"
	ReasonExistingName      Reason = "existing_common_name"
	ReasonUniqueMatch       Reason = "unique_match"
	ReasonAlreadyAssigned   Reason = "already_assigned"
	ReasonAmbiguous         Reason = "ambiguous"
	ReasonCandidatesExhaust Reason = "candidates_exhausted"
)

// Report is the outcome of reconciling one record.
type Report struct {
	Record model.TaxonRecord  `json:"record" yaml:"record"`
	Status model.RecordStatus `json:"status" yaml:"status"`
	Reason Reason             `json:"reason" yaml:"reason"`
	// MatchedName is the name candidate that produced the decision.
	MatchedName  string             `json:"matched_name,omitempty" yaml:"matched_name,omitempty"`
	TaxonID      int64              `json:"taxon_id,omitempty" yaml:"taxon_id,omitempty"`
	Match        *model.Candidate   `json:"match,omitempty" yaml:"match,omitempty"`
	Diagnostics  []model.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Rejected     []model.Candidate  `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	HandoffError string             `json:"handoff_error,omitempty" yaml:"handoff_error,omitempty"`
}

// Reconciler holds the read-only inputs of one pass. It is safe for
// concurrent use when its provider and sink are.
type Reconciler struct {
	provider search.Provider
	engine   *match.Engine
	sink     handoff.Sink
	policy   model.ExclusionPolicy
}

// New returns a Reconciler.
func New(provider search.Provider, engine *match.Engine, sink handoff.Sink, policy model.ExclusionPolicy) *Reconciler {
	return &Reconciler{provider: provider, engine: engine, sink: sink, policy: policy}
}

// Reconcile resolves one record. It never fails: every problem ends up as a
// status and diagnostics on the report.
func (r *Reconciler) Reconcile(ctx context.Context, rec model.TaxonRecord) Report {
	rep := Report{Record: rec}
	log := zap.L().With(
		zap.String("scientific_name", rec.ScientificName),
		zap.String("rank", rec.Rank.String()),
	)

	if msg := dataError(rec); msg != "" {
		log.Warn("reconcile: skipping record", zap.String("reason", msg))
		rep.Diagnostics = append(rep.Diagnostics, model.Diagnostic{
			Kind:    model.DiagDataError,
			Query:   rec.ScientificName,
			Message: msg,
		})
		return rep.finish(model.RecordSkipped, ReasonIneligible)
	}
	if r.policy.IsNotFound(rec.ScientificName) {
		log.Debug("reconcile: listed as absent")
		return rep.finish(model.RecordSkipped, ReasonListedNotFound)
	}
	if r.policy.IsAlreadyAssigned(rec.ScientificName) {
		log.Debug("reconcile: listed as already named")
		return rep.finish(model.RecordSkipped, ReasonListedAssigned)
	}

	if c, ok := r.existingAssignment(ctx, rec, &rep); ok {
		rep.Match = &c
		rep.MatchedName = rec.CommonName
		if id, has := r.engine.Classifier().ID(c); has {
			rep.TaxonID = id
		}
		log.Info("reconcile: common name already present")
		return rep.finish(model.RecordFound, ReasonExistingName)
	}

	ambiguous := false
	for _, name := range rec.NameCandidates(r.policy.Banned(rec.ScientificName)) {
		candidates := r.provider.Query(ctx, name)
		if len(candidates) == 0 {
			log.Debug("reconcile: no candidates", zap.String("query", name))
			continue
		}

		res := r.engine.Classify(candidates, match.Query{
			ScientificName: name,
			CommonName:     rec.CommonName,
			Rank:           rec.Rank,
			Policy:         r.policy,
		})
		rep.Diagnostics = append(rep.Diagnostics, res.Diagnostics...)

		switch res.Outcome {
		case model.UniqueMatch:
			if r.resolveUnique(ctx, rec, name, *res.Match, &rep) {
				log.Info("reconcile: unique match",
					zap.String("query", name),
					zap.Int64("taxon_id", rep.TaxonID),
				)
				return rep.finish(model.RecordFound, ReasonUniqueMatch)
			}
		case model.AlreadyAssigned:
			rep.MatchedName = name
			log.Info("reconcile: common name already assigned", zap.String("query", name))
			return rep.finish(model.RecordFound, ReasonAlreadyAssigned)
		case model.AmbiguousMatch:
			ambiguous = true
			rep.Rejected = append(rep.Rejected, res.Rejected...)
		default:
			rep.Rejected = append(rep.Rejected, res.Rejected...)
		}
	}

	for i := range rep.Rejected {
		c := rep.Rejected[i]
		rep.Diagnostics = append(rep.Diagnostics, model.Diagnostic{
			Kind:      model.DiagCloseCandidate,
			Query:     rec.ScientificName,
			Candidate: &c,
			Message:   "candidate matched the name but was not selected",
		})
	}

	reason := ReasonCandidatesExhaust
	if ambiguous {
		reason = ReasonAmbiguous
	}
	log.Info("reconcile: could not reconcile", zap.String("reason", string(reason)))
	return rep.finish(model.RecordNotFound, reason)
}

func (rep Report) finish(status model.RecordStatus, reason Reason) Report {
	rep.Status = status
	rep.Reason = reason
	return rep
}

// resolveUnique emits the hand-off for a unique match. It reports false when
// the match carries no usable taxon ID.
func (r *Reconciler) resolveUnique(ctx context.Context, rec model.TaxonRecord, name string, c model.Candidate, rep *Report) bool {
	cls := r.engine.Classifier()
	id, ok := cls.ID(c)
	if !ok {
		zap.L().Debug("reconcile: unique match without taxon ID",
			zap.String("query", name),
			zap.String("link", c.Link),
		)
		rep.Diagnostics = append(rep.Diagnostics, model.Diagnostic{
			Kind:      model.DiagExtractionFailure,
			Query:     name,
			Candidate: &c,
			Message:   "unique match carries no taxon ID",
		})
		return false
	}

	rep.Match = &c
	rep.MatchedName = name
	rep.TaxonID = id

	// The hand-off always carries the canonical name, even when a synonym matched.
	err := r.sink.OnUniqueMatchFound(ctx, handoff.Match{
		TaxonID:        id,
		ScientificName: rec.ScientificName,
		CommonName:     rec.CommonName,
		CandidateTitle: cls.DisplayName(c),
	})
	if err != nil {
		zap.L().Error("reconcile: hand-off failed",
			zap.String("scientific_name", rec.ScientificName),
			zap.Int64("taxon_id", id),
			zap.Error(err),
		)
		rep.HandoffError = err.Error()
		rep.Diagnostics = append(rep.Diagnostics, model.Diagnostic{
			Kind:      model.DiagHandoffFailed,
			Query:     rec.ScientificName,
			Candidate: &c,
			Message:   err.Error(),
		})
	}
	return true
}

// existingAssignment searches by the record's common name and reports a
// candidate that already carries it.
func (r *Reconciler) existingAssignment(ctx context.Context, rec model.TaxonRecord, rep *Report) (model.Candidate, bool) {
	cls := r.engine.Classifier()
	want := names.Fold(rec.CommonName)

	for _, c := range r.provider.Query(ctx, rec.CommonName) {
		if id, ok := cls.ID(c); ok && !r.policy.Allows(id) {
			continue
		}
		if !cls.MatchesRank(c, rec.Rank) {
			continue
		}
		existing, has := cls.CommonName(c)
		if !has || names.Fold(existing) != want {
			continue
		}
		// A genus name search also returns every species of the genus.
		if rec.Rank == rank.Genus && !r.engine.MatchesScientificName(c, rec.ScientificName) {
			continue
		}
		if existing != rec.CommonName {
			cand := c
			rep.Diagnostics = append(rep.Diagnostics, model.Diagnostic{
				Kind:      model.DiagDiacriticMismatch,
				Query:     rec.CommonName,
				Candidate: &cand,
				Message:   fmt.Sprintf("existing common name %q differs from %q only in case or diacritics", existing, rec.CommonName),
			})
		}
		return c, true
	}
	return model.Candidate{}, false
}

func dataError(rec model.TaxonRecord) string {
	if !rec.Eligible() {
		return "missing scientific or common name"
	}
	if rec.Rank == "" {
		return "missing rank"
	}
	if _, err := rank.Parse(string(rec.Rank)); err != nil {
		return err.Error()
	}
	return ""
}
