// Package runlog records the outcome of inference calls into a run-history store.
// Recording happens after inference returns and never changes its result.
package runlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skufu/ddxengine/internal/inference"
)

// Record is one row of run history.
type Record struct {
	ID             string
	EncounterID    string
	BestSyndromeID string
	Score          *float64
	Evidence       []inference.Link
	Questions      []inference.Question
	Meta           map[string]any
	CreatedAt      time.Time
}

// Recorder persists run records.
type Recorder interface {
	RecordRun(ctx context.Context, rec Record) error
}

// NewRecord builds a record for a finished inference call.
func NewRecord(c inference.Case, res inference.Result) Record {
	rec := Record{
		ID:          uuid.New().String(),
		EncounterID: c.EncounterID,
		Evidence:    res.Evidence,
		Questions:   res.Questions,
		Meta:        c.Meta,
		CreatedAt:   time.Now().UTC(),
	}
	if res.Best != nil {
		score := res.Best.Score
		rec.BestSyndromeID = res.Best.SyndromeID
		rec.Score = &score
	}
	if rec.Evidence == nil {
		rec.Evidence = []inference.Link{}
	}
	if rec.Questions == nil {
		rec.Questions = []inference.Question{}
	}
	return rec
}

// Nop discards every record.
type Nop struct{}

func (Nop) RecordRun(context.Context, Record) error { return nil }
