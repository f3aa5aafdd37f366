package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	links       []Link
	constraints []RuleConstraint
	syndromes   []Syndrome

	linksErr       error
	constraintsErr error
	syndromesErr   error

	calls []string
}

func (f *fakeStore) FetchLinks(ctx context.Context, symptomIDs []string) ([]Link, error) {
	f.calls = append(f.calls, "links")
	if f.linksErr != nil {
		return nil, f.linksErr
	}
	set := NewIDSet(symptomIDs)
	var out []Link
	for _, l := range f.links {
		if set.Has(l.SymptomID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) FetchConstraints(ctx context.Context, syndromeIDs []string) ([]RuleConstraint, error) {
	f.calls = append(f.calls, "constraints")
	if f.constraintsErr != nil {
		return nil, f.constraintsErr
	}
	set := NewIDSet(syndromeIDs)
	var out []RuleConstraint
	for _, rc := range f.constraints {
		if set.Has(rc.SyndromeID) {
			out = append(out, rc)
		}
	}
	return out, nil
}

func (f *fakeStore) FetchSyndromes(ctx context.Context, syndromeIDs []string) ([]Syndrome, error) {
	f.calls = append(f.calls, "syndromes")
	if f.syndromesErr != nil {
		return nil, f.syndromesErr
	}
	set := NewIDSet(syndromeIDs)
	var out []Syndrome
	for _, s := range f.syndromes {
		if set.Has(s.ID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func scenarioStore() *fakeStore {
	return &fakeStore{
		links: scenarioLinks(),
		syndromes: []Syndrome{
			{ID: "A", Name: "Tỳ khí hư", Description: "spleen qi deficiency"},
			{ID: "B", Name: "Thận dương hư", Description: "kidney yang deficiency"},
		},
	}
}

func TestInfer_EmptyInputSkipsStore(t *testing.T) {
	store := scenarioStore()
	engine := New(store)

	for _, ids := range [][]string{nil, {}, {""}} {
		res, err := engine.Infer(context.Background(), Case{ObservedSymptomIDs: ids})
		require.NoError(t, err)
		assert.Nil(t, res.Best)
		assert.Empty(t, res.Candidates)
		assert.NotNil(t, res.Candidates)
		assert.Empty(t, res.Evidence)
		require.Len(t, res.Questions, 1)
		assert.Equal(t, QuestionNeedMoreInfo, res.Questions[0].Type)
	}
	assert.Empty(t, store.calls)
}

func TestInfer_NoMatch(t *testing.T) {
	store := scenarioStore()
	res, err := New(store).Infer(context.Background(), Case{ObservedSymptomIDs: []string{"42", "43"}})

	require.NoError(t, err)
	assert.Nil(t, res.Best)
	assert.Empty(t, res.Candidates)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, QuestionNoMatch, res.Questions[0].Type)
	assert.Equal(t, []string{"links"}, store.calls)
}

func TestInfer_Scenario(t *testing.T) {
	store := scenarioStore()
	res, err := New(store, WithLogger(zap.NewNop())).Infer(context.Background(), Case{
		EncounterID:        "enc-1",
		ObservedSymptomIDs: []string{"2", "1", "1"},
	})

	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "B", res.Candidates[0].SyndromeID)
	assert.Equal(t, 3.0, res.Candidates[0].Score)
	assert.Equal(t, "A", res.Candidates[1].SyndromeID)
	assert.Equal(t, 1.0, res.Candidates[1].Score)

	require.NotNil(t, res.Best)
	assert.Equal(t, "B", res.Best.SyndromeID)
	require.NotNil(t, res.Best.Syndrome)
	assert.Equal(t, "Thận dương hư", res.Best.Syndrome.Name)
	assert.Equal(t, res.Best.Evidence, res.Evidence)
	assert.Empty(t, res.Questions)
	assert.Equal(t, []string{"links", "constraints", "syndromes"}, store.calls)
}

func TestInfer_RequiredKeepsCandidate(t *testing.T) {
	store := scenarioStore()
	store.constraints = []RuleConstraint{{
		ID: "c1", SyndromeID: "B", RuleType: RuleRequired,
		Conditions: []RuleCondition{{SymptomID: "9", Operator: OpPresent}},
	}}

	res, err := New(store).Infer(context.Background(), Case{ObservedSymptomIDs: []string{"1", "2"}})
	require.NoError(t, err)

	require.Len(t, res.Questions, 1)
	q := res.Questions[0]
	assert.Equal(t, QuestionMissingRequired, q.Type)
	assert.Equal(t, "B", q.SyndromeID)
	assert.Equal(t, "9", q.SymptomID)
	assert.Equal(t, []string{"B", "A"}, candidateIDs(res.Candidates))
}

func TestInfer_ExcludePromotesNextBest(t *testing.T) {
	store := scenarioStore()
	store.constraints = []RuleConstraint{{
		ID: "c1", SyndromeID: "B", RuleType: RuleExclude,
		Conditions: []RuleCondition{{SymptomID: "1", Operator: OpPresent}},
	}}

	res, err := New(store).Infer(context.Background(), Case{ObservedSymptomIDs: []string{"1", "2"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, candidateIDs(res.Candidates))
	require.NotNil(t, res.Best)
	assert.Equal(t, "A", res.Best.SyndromeID)
	assert.Len(t, res.Evidence, 2)
}

func TestInfer_AllDroppedLeavesNoBest(t *testing.T) {
	store := scenarioStore()
	store.constraints = []RuleConstraint{
		{ID: "c1", SyndromeID: "B", RuleType: RuleExclude,
			Conditions: []RuleCondition{{SymptomID: "1", Operator: OpPresent}}},
		{ID: "c2", SyndromeID: "A", RuleType: RuleIncompatibility},
	}

	res, err := New(store).Infer(context.Background(), Case{ObservedSymptomIDs: []string{"1", "2"}})
	require.NoError(t, err)

	assert.Nil(t, res.Best)
	assert.NotNil(t, res.Candidates)
	assert.Empty(t, res.Candidates)
	assert.Empty(t, res.Evidence)
	assert.Empty(t, res.Questions)
	assert.Equal(t, []string{"links", "constraints"}, store.calls)
}

func TestInfer_MissingMetadataIsNotFatal(t *testing.T) {
	store := scenarioStore()
	store.syndromes = nil

	res, err := New(store).Infer(context.Background(), Case{ObservedSymptomIDs: []string{"1"}})
	require.NoError(t, err)
	require.NotNil(t, res.Best)
	assert.Equal(t, UnknownSyndromeName, res.Best.Syndrome.Name)
}

func TestInfer_DataAccessErrors(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name  string
		setup func(*fakeStore)
		op    string
		calls []string
	}{
		{"links", func(f *fakeStore) { f.linksErr = boom }, "syndrome_symptom", []string{"links"}},
		{"constraints", func(f *fakeStore) { f.constraintsErr = boom }, "rule_constraint", []string{"links", "constraints"}},
		{"syndromes", func(f *fakeStore) { f.syndromesErr = boom }, "syndrome", []string{"links", "constraints", "syndromes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := scenarioStore()
			tt.setup(store)

			res, err := New(store).Infer(context.Background(), Case{ObservedSymptomIDs: []string{"1"}})
			require.Error(t, err)
			assert.Nil(t, res.Best)
			assert.Nil(t, res.Candidates)

			var dae *DataAccessError
			require.ErrorAs(t, err, &dae)
			assert.Equal(t, tt.op, dae.Op)
			assert.Equal(t, "data_access", dae.Kind())
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), "connection refused")
			assert.Equal(t, tt.calls, store.calls)
		})
	}
}

func TestInfer_PreservesStoreDataAccessError(t *testing.T) {
	store := scenarioStore()
	store.linksErr = &DataAccessError{Op: "custom", Err: errors.New("x")}

	_, err := New(store).Infer(context.Background(), Case{ObservedSymptomIDs: []string{"1"}})
	var dae *DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.Equal(t, "custom", dae.Op)
}

func TestInfer_Deterministic(t *testing.T) {
	store := &fakeStore{links: []Link{
		{SyndromeID: "D", SymptomID: "1", Weight: 2, Polarity: Support},
		{SyndromeID: "C", SymptomID: "1", Weight: 2, Polarity: Support},
		{SyndromeID: "B", SymptomID: "1", Weight: 2, Polarity: Support},
		{SyndromeID: "A", SymptomID: "2", Weight: 2, Polarity: Support},
		{SyndromeID: "E", SymptomID: "2", Weight: 1, Polarity: Support},
		{SyndromeID: "F", SymptomID: "2", Weight: 5, Polarity: Support},
		{SyndromeID: "G", SymptomID: "2", Weight: 0.5, Polarity: Support},
	}}
	engine := New(store)
	c := Case{ObservedSymptomIDs: []string{"1", "2"}}

	first, err := engine.Infer(context.Background(), c)
	require.NoError(t, err)
	second, err := engine.Infer(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, []string{"F", "A", "B", "C", "D"}, candidateIDs(first.Candidates))
	assert.Equal(t, candidateIDs(first.Candidates), candidateIDs(second.Candidates))
	assert.LessOrEqual(t, len(first.Candidates), MaxCandidates)
}
