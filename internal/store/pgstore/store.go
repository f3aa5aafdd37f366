// Package pgstore serves reference data and records runs in PostgreSQL.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/ddxengine/internal/inference"
	"github.com/Skufu/ddxengine/internal/runlog"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// Connect parses url, opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

type linkRow struct {
	SyndromeID string
	SymptomID  string
	Weight     float64
	Polarity   string
}

func (s *Store) FetchLinks(ctx context.Context, symptomIDs []string) ([]inference.Link, error) {
	rows, err := s.db.Query(ctx,
		`SELECT syndrome_id, symptom_id, COALESCE(weight, 0)::float8, COALESCE(polarity, '')
		 FROM syndrome_symptom
		 WHERE symptom_id = ANY($1)`,
		symptomIDs,
	)
	if err != nil {
		return nil, &inference.DataAccessError{Op: "syndrome_symptom", Err: err}
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[linkRow])
	if err != nil {
		return nil, &inference.DataAccessError{Op: "syndrome_symptom", Err: err}
	}

	links := make([]inference.Link, len(recs))
	for i, r := range recs {
		links[i] = inference.Link{
			SyndromeID: r.SyndromeID,
			SymptomID:  r.SymptomID,
			Weight:     r.Weight,
			Polarity:   inference.ParsePolarity(r.Polarity),
		}
	}
	return links, nil
}

// constraintRow is one constraint joined with at most one of its conditions.
type constraintRow struct {
	ID         string
	SyndromeID string
	RuleType   string
	Message    *string
	SymptomID  *string
	Operator   *string
}

func (s *Store) FetchConstraints(ctx context.Context, syndromeIDs []string) ([]inference.RuleConstraint, error) {
	rows, err := s.db.Query(ctx,
		`SELECT rc.id, rc.syndrome_id, rc.rule_type, rc.message, c.symptom_id, c.operator
		 FROM rule_constraint rc
		 LEFT JOIN rule_condition c ON c.constraint_id = rc.id
		 WHERE rc.syndrome_id = ANY($1)
		 ORDER BY rc.id, c.id`,
		syndromeIDs,
	)
	if err != nil {
		return nil, &inference.DataAccessError{Op: "rule_constraint", Err: err}
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[constraintRow])
	if err != nil {
		return nil, &inference.DataAccessError{Op: "rule_constraint", Err: err}
	}
	return groupConstraints(recs), nil
}

// groupConstraints folds joined rows into constraints, keeping the order
// in which constraints and their conditions first appear.
func groupConstraints(recs []constraintRow) []inference.RuleConstraint {
	out := []inference.RuleConstraint{}
	index := make(map[string]int)
	for _, r := range recs {
		i, ok := index[r.ID]
		if !ok {
			rc := inference.RuleConstraint{
				ID:         r.ID,
				SyndromeID: r.SyndromeID,
				RuleType:   inference.RuleType(r.RuleType),
				Conditions: []inference.RuleCondition{},
			}
			if r.Message != nil {
				rc.Message = *r.Message
			}
			out = append(out, rc)
			i = len(out) - 1
			index[r.ID] = i
		}
		if r.SymptomID == nil {
			continue
		}
		cond := inference.RuleCondition{SymptomID: *r.SymptomID}
		if r.Operator != nil {
			cond.Operator = inference.Operator(*r.Operator)
		}
		out[i].Conditions = append(out[i].Conditions, cond)
	}
	return out
}

func (s *Store) FetchSyndromes(ctx context.Context, syndromeIDs []string) ([]inference.Syndrome, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, COALESCE(name, ''), COALESCE(description, '')
		 FROM syndrome
		 WHERE id = ANY($1)`,
		syndromeIDs,
	)
	if err != nil {
		return nil, &inference.DataAccessError{Op: "syndrome", Err: err}
	}
	syndromes, err := pgx.CollectRows(rows, pgx.RowToStructByPos[inference.Syndrome])
	if err != nil {
		return nil, &inference.DataAccessError{Op: "syndrome", Err: err}
	}
	return syndromes, nil
}

// RecordRun inserts one inference_run row.
func (s *Store) RecordRun(ctx context.Context, rec runlog.Record) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO inference_run (id, encounter_id, best_syndrome_id, score, evidence, questions, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID,
		nullIfEmpty(rec.EncounterID),
		nullIfEmpty(rec.BestSyndromeID),
		rec.Score,
		rec.Evidence,
		rec.Questions,
		rec.Meta,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
