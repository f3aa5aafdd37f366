package inference

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
)

// Stage names a step of the pipeline. Terminal stages are NoSymptoms, NoMatch and Done.
type Stage string

const (
	StageAwaitingInput   Stage = "awaiting_input"
	StageScoring         Stage = "scoring"
	StageRanking         Stage = "ranking"
	StageConstraintCheck Stage = "constraint_check"
	StageEnriching       Stage = "enriching"
	StageDone            Stage = "done"
	StageNoSymptoms      Stage = "no_symptoms"
	StageNoMatch         Stage = "no_match"
)

// Engine runs the scoring, constraint and ranking pipeline against a
// ReferenceStore. It holds no per-call state and is safe for concurrent use.
type Engine struct {
	store  ReferenceStore
	logger *zap.Logger
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(store ReferenceStore, opts ...Option) *Engine {
	e := &Engine{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Infer computes the ranked, constraint-filtered and enriched candidates
// for a case. Empty input and no matching links are successful results
// carrying a single question. Any fetch failure aborts the call with a
// *DataAccessError.
func (e *Engine) Infer(ctx context.Context, c Case) (Result, error) {
	observed := NewIDSet(c.ObservedSymptomIDs)
	if len(observed) == 0 {
		e.finish(c, StageNoSymptoms, 0)
		return terminal(QuestionNeedMoreInfo, NeedMoreInfoMessage), nil
	}

	links, err := e.store.FetchLinks(ctx, observed.sorted())
	if err != nil {
		return Result{}, dataAccess("syndrome_symptom", err)
	}

	candidates := Rank(Score(links))
	if len(candidates) == 0 {
		e.finish(c, StageNoMatch, 0)
		return terminal(QuestionNoMatch, NoMatchMessage), nil
	}

	constraints, err := e.store.FetchConstraints(ctx, candidateIDs(candidates))
	if err != nil {
		return Result{}, dataAccess("rule_constraint", err)
	}
	verdict := EvaluateConstraints(constraints, observed)

	survivors := Survivors(candidates, verdict.Dropped)
	if len(survivors) > 0 {
		syndromes, err := e.store.FetchSyndromes(ctx, candidateIDs(survivors))
		if err != nil {
			return Result{}, dataAccess("syndrome", err)
		}
		survivors = Enrich(survivors, syndromes)
	}

	res := Result{
		Candidates: survivors,
		Evidence:   []Link{},
		Questions:  verdict.Questions,
	}
	if len(survivors) > 0 {
		best := survivors[0]
		res.Best = &best
		res.Evidence = best.Evidence
	}

	e.finish(c, StageDone, len(survivors),
		zap.Int("dropped", len(verdict.Dropped)),
		zap.Int("questions", len(res.Questions)),
	)
	return res, nil
}

func (e *Engine) finish(c Case, stage Stage, candidates int, fields ...zap.Field) {
	e.logger.Debug("inference finished",
		append([]zap.Field{
			zap.String("encounter_id", c.EncounterID),
			zap.String("stage", string(stage)),
			zap.Int("candidates", candidates),
		}, fields...)...,
	)
}

func terminal(t QuestionType, msg string) Result {
	return Result{
		Candidates: []Candidate{},
		Evidence:   []Link{},
		Questions:  []Question{{Type: t, Message: msg}},
	}
}

func dataAccess(op string, err error) error {
	var dae *DataAccessError
	if errors.As(err, &dae) {
		return dae
	}
	return &DataAccessError{Op: op, Err: err}
}

func candidateIDs(candidates []Candidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.SyndromeID
	}
	return ids
}

func (s IDSet) sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
