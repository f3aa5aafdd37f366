package runlog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/ddxengine/internal/inference"
)

func TestNewRecord_WithBest(t *testing.T) {
	best := inference.Candidate{
		SyndromeID: "B",
		Score:      3,
		Evidence:   []inference.Link{{SyndromeID: "B", SymptomID: "1", Weight: 3, Polarity: inference.Support}},
	}
	c := inference.Case{EncounterID: "enc-7", ObservedSymptomIDs: []string{"1"}, Meta: map[string]any{"age": 41}}
	res := inference.Result{Best: &best, Candidates: []inference.Candidate{best}, Evidence: best.Evidence}

	rec := NewRecord(c, res)

	_, err := uuid.Parse(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "enc-7", rec.EncounterID)
	assert.Equal(t, "B", rec.BestSyndromeID)
	require.NotNil(t, rec.Score)
	assert.Equal(t, 3.0, *rec.Score)
	assert.Len(t, rec.Evidence, 1)
	assert.NotNil(t, rec.Questions)
	assert.Equal(t, 41, rec.Meta["age"])
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestNewRecord_WithoutBest(t *testing.T) {
	res := inference.Result{Questions: []inference.Question{{Type: inference.QuestionNoMatch}}}
	rec := NewRecord(inference.Case{}, res)

	assert.Empty(t, rec.BestSyndromeID)
	assert.Nil(t, rec.Score)
	assert.NotNil(t, rec.Evidence)
	assert.Len(t, rec.Questions, 1)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.RecordRun(context.Background(), Record{}))
}
