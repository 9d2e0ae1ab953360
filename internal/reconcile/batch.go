package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/taxon-cli/internal/model"
)

// Summary aggregates one batch.
type Summary struct {
	Counts model.RunCounts `json:"counts" yaml:"counts"`
	// Cancelled is set when the context ended before every record ran.
	Cancelled bool     `json:"cancelled" yaml:"cancelled"`
	Reports   []Report `json:"reports" yaml:"reports"`
}

// Add folds one report into the summary.
func (s *Summary) Add(rep Report) {
	s.Reports = append(s.Reports, rep)
	s.Counts.Total++
	switch rep.Status {
	case model.RecordSkipped:
		s.Counts.Skipped++
	case model.RecordFound:
		if rep.Reason == ReasonUniqueMatch {
			s.Counts.Matched++
		} else {
			s.Counts.AlreadyAssigned++
		}
	case model.RecordNotFound:
		if rep.Reason == ReasonAmbiguous {
			s.Counts.Ambiguous++
		} else {
			s.Counts.NotFound++
		}
	}
}

// RunBatch reconciles records one after another. Cancellation is checked
// only between records, so a record in flight always completes.
func (r *Reconciler) RunBatch(ctx context.Context, records []model.TaxonRecord) Summary {
	var sum Summary
	for i, rec := range records {
		if ctx.Err() != nil {
			zap.L().Warn("reconcile: batch cancelled",
				zap.Int("done", i),
				zap.Int("total", len(records)),
			)
			sum.Cancelled = true
			break
		}
		sum.Add(r.Reconcile(ctx, rec))
	}

	zap.L().Info("reconcile: batch complete",
		zap.Int("total", sum.Counts.Total),
		zap.Int("matched", sum.Counts.Matched),
		zap.Int("already_assigned", sum.Counts.AlreadyAssigned),
		zap.Int("not_found", sum.Counts.NotFound),
		zap.Int("ambiguous", sum.Counts.Ambiguous),
		zap.Int("skipped", sum.Counts.Skipped),
	)
	return sum
}
