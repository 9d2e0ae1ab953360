// Package match reduces one batch of search results to a single decision.
package match

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/taxon-cli/internal/classify"
	"github.com/sells-group/taxon-cli/internal/model"
	"github.com/sells-group/taxon-cli/internal/names"
	"github.com/sells-group/taxon-cli/internal/rank"
)

// Stage names the filter a batch stopped at.
type Stage string

const (
	StageAllowList  Stage = "allow_list"
	StageName       Stage = "scientific_name"
	StageRank       Stage = "rank"
	StageCommonName Stage = "common_name"
)

// Query describes the taxon the candidates are matched against.
type Query struct {
	ScientificName string
	CommonName     string
	Rank           rank.Rank
	Policy         model.ExclusionPolicy
}

// Result is the decision for one batch plus everything an operator needs to
// review it.
type Result struct {
	model.Decision
	Stage       Stage
	Diagnostics []model.Diagnostic
	// Rejected holds candidates that matched the name but were not selected.
	Rejected []model.Candidate
}

// Engine applies the filters in a fixed order.
type Engine struct {
	cls *classify.Classifier
}

// NewEngine returns an Engine reading candidates with cls.
func NewEngine(cls *classify.Classifier) *Engine {
	return &Engine{cls: cls}
}

// Classifier returns the engine's candidate reader.
func (e *Engine) Classifier() *classify.Classifier { return e.cls }

// Classify runs the allow-list, scientific-name, rank and common-name
// filters. It never guesses between several qualifying candidates.
func (e *Engine) Classify(candidates []model.Candidate, q Query) Result {
	var res Result
	log := zap.L().With(
		zap.String("scientific_name", q.ScientificName),
		zap.String("rank", q.Rank.String()),
	)

	allowed := e.filterAllowList(candidates, q, &res)
	if len(allowed) == 0 {
		return res.stop(StageAllowList, model.NoMatch)
	}

	named := e.filterName(allowed, q.ScientificName)
	if len(named) == 0 {
		log.Debug("match: nothing matches scientific name", zap.Int("candidates", len(allowed)))
		return res.stop(StageName, model.NoMatch)
	}

	ranked := e.filterRank(named, q, &res)
	if len(ranked) == 0 {
		log.Debug("match: nothing matches rank", zap.Int("candidates", len(named)))
		res.Rejected = named
		return res.stop(StageRank, model.NoMatch)
	}

	var lacking []model.Candidate
	for _, c := range ranked {
		existing, has := e.cls.CommonName(c)
		if !has {
			lacking = append(lacking, c)
			continue
		}
		e.compareCommonName(c, existing, q, &res)
	}

	switch len(lacking) {
	case 0:
		log.Debug("match: common name already assigned")
		return res.stop(StageCommonName, model.AlreadyAssigned)
	case 1:
		m := lacking[0]
		res.Match = &m
		return res.stop(StageCommonName, model.UniqueMatch)
	default:
		titles := make([]string, len(lacking))
		for i, c := range lacking {
			titles[i] = e.cls.DisplayName(c)
		}
		log.Warn("match: more than one candidate qualifies", zap.Strings("titles", titles))
		res.Rejected = lacking
		res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
			Kind:    model.DiagAmbiguous,
			Query:   q.ScientificName,
			Message: fmt.Sprintf("%d candidates qualify: %s", len(lacking), strings.Join(titles, "; ")),
		})
		return res.stop(StageCommonName, model.AmbiguousMatch)
	}
}

func (r Result) stop(stage Stage, outcome model.Outcome) Result {
	r.Stage = stage
	r.Outcome = outcome
	if outcome != model.UniqueMatch {
		r.Match = nil
	}
	return r
}

func (e *Engine) filterAllowList(candidates []model.Candidate, q Query, res *Result) []model.Candidate {
	var out []model.Candidate
	for _, c := range candidates {
		id, ok := e.cls.ID(c)
		if !ok {
			// Without an ID the candidate cannot be excluded here.
			res.Diagnostics = append(res.Diagnostics, extractionFailure(q, c, "no taxon ID in result link"))
			out = append(out, c)
			continue
		}
		if q.Policy.Allows(id) {
			out = append(out, c)
		}
	}
	return out
}

func (e *Engine) filterName(candidates []model.Candidate, scientificName string) []model.Candidate {
	var out []model.Candidate
	for _, c := range candidates {
		if e.MatchesScientificName(c, scientificName) {
			out = append(out, c)
		}
	}
	return out
}

// MatchesScientificName reports whether the candidate carries name as its
// title, as a parenthesised synonym in the title, or as its subtitle with or
// without a rank label.
func (e *Engine) MatchesScientificName(c model.Candidate, name string) bool {
	want := names.Compact(name)
	if want == "" {
		return false
	}
	title := e.cls.DisplayName(c)
	if names.Compact(title) == want {
		return true
	}
	if strings.Contains(names.Normalize(title, names.Options{}), "("+names.Normalize(name, names.Options{})+")") {
		return true
	}
	sub := e.cls.Subtitle(c)
	if names.Compact(sub) == want {
		return true
	}
	return names.Compact(e.cls.Taxonomy().StripRankPrefix(sub)) == want
}

func (e *Engine) filterRank(candidates []model.Candidate, q Query, res *Result) []model.Candidate {
	var out []model.Candidate
	for _, c := range candidates {
		if e.cls.MatchesRank(c, q.Rank) {
			out = append(out, c)
			continue
		}
		if _, labelled := e.cls.Rank(c); !labelled {
			res.Diagnostics = append(res.Diagnostics, extractionFailure(q, c, "subtitle carries no rank label"))
		}
	}
	return out
}

func (e *Engine) compareCommonName(c model.Candidate, existing string, q Query, res *Result) {
	if q.CommonName == "" || existing == q.CommonName {
		return
	}
	cand := c
	if names.Fold(existing) != names.Fold(q.CommonName) {
		res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
			Kind:      model.DiagCommonNameConflict,
			Query:     q.ScientificName,
			Candidate: &cand,
			Message:   fmt.Sprintf("existing common name %q differs from %q", existing, q.CommonName),
		})
		return
	}
	res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
		Kind:      model.DiagDiacriticMismatch,
		Query:     q.ScientificName,
		Candidate: &cand,
		Message:   fmt.Sprintf("existing common name %q differs from %q only in case or diacritics", existing, q.CommonName),
	})
}

func extractionFailure(q Query, c model.Candidate, msg string) model.Diagnostic {
	zap.L().Debug("match: extraction failure",
		zap.String("scientific_name", q.ScientificName),
		zap.String("title", c.Title),
		zap.String("reason", msg),
	)
	return model.Diagnostic{
		Kind:      model.DiagExtractionFailure,
		Query:     q.ScientificName,
		Candidate: &c,
		Message:   msg,
	}
}
