// Package sqlitestore serves reference data and records runs in a local SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Skufu/ddxengine/internal/catalog"
	"github.com/Skufu/ddxengine/internal/inference"
	"github.com/Skufu/ddxengine/internal/runlog"
)

// Schema is the SQLite DDL for reference data and run history.
const Schema = `
CREATE TABLE IF NOT EXISTS syndrome (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS syndrome_symptom (
    syndrome_id TEXT NOT NULL REFERENCES syndrome(id) ON DELETE CASCADE,
    symptom_id  TEXT NOT NULL,
    weight      REAL NOT NULL DEFAULT 0 CHECK (weight >= 0),
    polarity    TEXT NOT NULL DEFAULT 'support' CHECK (polarity IN ('support', 'contra')),
    PRIMARY KEY (syndrome_id, symptom_id)
);

CREATE INDEX IF NOT EXISTS idx_syndrome_symptom_symptom ON syndrome_symptom(symptom_id);

CREATE TABLE IF NOT EXISTS rule_constraint (
    id          TEXT PRIMARY KEY,
    syndrome_id TEXT NOT NULL REFERENCES syndrome(id) ON DELETE CASCADE,
    rule_type   TEXT NOT NULL CHECK (rule_type IN ('exclude', 'required', 'incompatibility')),
    message     TEXT
);

CREATE INDEX IF NOT EXISTS idx_rule_constraint_syndrome ON rule_constraint(syndrome_id);

CREATE TABLE IF NOT EXISTS rule_condition (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    constraint_id TEXT NOT NULL REFERENCES rule_constraint(id) ON DELETE CASCADE,
    symptom_id    TEXT NOT NULL,
    operator      TEXT NOT NULL CHECK (operator IN ('present', 'absent'))
);

CREATE TABLE IF NOT EXISTS inference_run (
    id               TEXT PRIMARY KEY,
    encounter_id     TEXT,
    best_syndrome_id TEXT,
    score            REAL,
    evidence         TEXT NOT NULL,
    questions        TEXT NOT NULL,
    meta             TEXT,
    created_at       TEXT NOT NULL
);
`

type Store struct {
	db *sql.DB
}

// Open opens a SQLite database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) FetchLinks(ctx context.Context, symptomIDs []string) ([]inference.Link, error) {
	if len(symptomIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT syndrome_id, symptom_id, weight, polarity FROM syndrome_symptom
		 WHERE symptom_id IN (`+placeholders(len(symptomIDs))+`)`,
		args(symptomIDs)...,
	)
	if err != nil {
		return nil, &inference.DataAccessError{Op: "syndrome_symptom", Err: err}
	}
	defer rows.Close()

	var links []inference.Link
	for rows.Next() {
		var (
			l        inference.Link
			polarity string
		)
		if err := rows.Scan(&l.SyndromeID, &l.SymptomID, &l.Weight, &polarity); err != nil {
			return nil, &inference.DataAccessError{Op: "syndrome_symptom", Err: err}
		}
		l.Polarity = inference.ParsePolarity(polarity)
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, &inference.DataAccessError{Op: "syndrome_symptom", Err: err}
	}
	return links, nil
}

func (s *Store) FetchConstraints(ctx context.Context, syndromeIDs []string) ([]inference.RuleConstraint, error) {
	if len(syndromeIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT rc.id, rc.syndrome_id, rc.rule_type, rc.message, c.symptom_id, c.operator
		 FROM rule_constraint rc
		 LEFT JOIN rule_condition c ON c.constraint_id = rc.id
		 WHERE rc.syndrome_id IN (`+placeholders(len(syndromeIDs))+`)
		 ORDER BY rc.id, c.id`,
		args(syndromeIDs)...,
	)
	if err != nil {
		return nil, &inference.DataAccessError{Op: "rule_constraint", Err: err}
	}
	defer rows.Close()

	var (
		out   []inference.RuleConstraint
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			id, syndromeID, ruleType string
			message, symptom, op     sql.NullString
		)
		if err := rows.Scan(&id, &syndromeID, &ruleType, &message, &symptom, &op); err != nil {
			return nil, &inference.DataAccessError{Op: "rule_constraint", Err: err}
		}
		i, ok := index[id]
		if !ok {
			out = append(out, inference.RuleConstraint{
				ID:         id,
				SyndromeID: syndromeID,
				RuleType:   inference.RuleType(ruleType),
				Message:    message.String,
				Conditions: []inference.RuleCondition{},
			})
			i = len(out) - 1
			index[id] = i
		}
		if symptom.Valid {
			out[i].Conditions = append(out[i].Conditions, inference.RuleCondition{
				SymptomID: symptom.String,
				Operator:  inference.Operator(op.String),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &inference.DataAccessError{Op: "rule_constraint", Err: err}
	}
	return out, nil
}

func (s *Store) FetchSyndromes(ctx context.Context, syndromeIDs []string) ([]inference.Syndrome, error) {
	if len(syndromeIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description FROM syndrome WHERE id IN (`+placeholders(len(syndromeIDs))+`)`,
		args(syndromeIDs)...,
	)
	if err != nil {
		return nil, &inference.DataAccessError{Op: "syndrome", Err: err}
	}
	defer rows.Close()

	var out []inference.Syndrome
	for rows.Next() {
		var syn inference.Syndrome
		if err := rows.Scan(&syn.ID, &syn.Name, &syn.Description); err != nil {
			return nil, &inference.DataAccessError{Op: "syndrome", Err: err}
		}
		out = append(out, syn)
	}
	if err := rows.Err(); err != nil {
		return nil, &inference.DataAccessError{Op: "syndrome", Err: err}
	}
	return out, nil
}

// Seed replaces all reference data with the catalog contents in one transaction.
func (s *Store) Seed(ctx context.Context, c *catalog.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"rule_condition", "rule_constraint", "syndrome_symptom", "syndrome"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, syn := range c.Syndromes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO syndrome (id, name, description) VALUES (?, ?, ?)`,
			syn.ID, syn.Name, syn.Description,
		); err != nil {
			return fmt.Errorf("insert syndrome %s: %w", syn.ID, err)
		}
	}

	for _, l := range c.InferenceLinks() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO syndrome_symptom (syndrome_id, symptom_id, weight, polarity) VALUES (?, ?, ?, ?)`,
			l.SyndromeID, l.SymptomID, l.Weight, string(l.Polarity),
		); err != nil {
			return fmt.Errorf("insert link %s/%s: %w", l.SyndromeID, l.SymptomID, err)
		}
	}

	for _, rc := range c.InferenceConstraints() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rule_constraint (id, syndrome_id, rule_type, message) VALUES (?, ?, ?, ?)`,
			rc.ID, rc.SyndromeID, string(rc.RuleType), nullIfEmpty(rc.Message),
		); err != nil {
			return fmt.Errorf("insert constraint %s: %w", rc.ID, err)
		}
		for _, cond := range rc.Conditions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO rule_condition (constraint_id, symptom_id, operator) VALUES (?, ?, ?)`,
				rc.ID, cond.SymptomID, string(cond.Operator),
			); err != nil {
				return fmt.Errorf("insert condition %s/%s: %w", rc.ID, cond.SymptomID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordRun inserts one inference_run row.
func (s *Store) RecordRun(ctx context.Context, rec runlog.Record) error {
	evidence, err := json.Marshal(rec.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	questions, err := json.Marshal(rec.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	var meta any
	if rec.Meta != nil {
		b, err := json.Marshal(rec.Meta)
		if err != nil {
			return fmt.Errorf("marshal meta: %w", err)
		}
		meta = string(b)
	}
	var score any
	if rec.Score != nil {
		score = *rec.Score
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO inference_run (id, encounter_id, best_syndrome_id, score, evidence, questions, meta, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		nullIfEmpty(rec.EncounterID),
		nullIfEmpty(rec.BestSyndromeID),
		score,
		string(evidence),
		string(questions),
		meta,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func args(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
