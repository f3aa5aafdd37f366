package pgstore

// Schema is the PostgreSQL DDL for reference data and run history.
const Schema = `
CREATE TABLE IF NOT EXISTS syndrome (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS syndrome_symptom (
    syndrome_id TEXT NOT NULL REFERENCES syndrome(id) ON DELETE CASCADE,
    symptom_id  TEXT NOT NULL,
    weight      NUMERIC NOT NULL DEFAULT 0 CHECK (weight >= 0),
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
    id            BIGSERIAL PRIMARY KEY,
    constraint_id TEXT NOT NULL REFERENCES rule_constraint(id) ON DELETE CASCADE,
    symptom_id    TEXT NOT NULL,
    operator      TEXT NOT NULL CHECK (operator IN ('present', 'absent'))
);

CREATE INDEX IF NOT EXISTS idx_rule_condition_constraint ON rule_condition(constraint_id);

CREATE TABLE IF NOT EXISTS inference_run (
    id               UUID PRIMARY KEY,
    encounter_id     TEXT,
    best_syndrome_id TEXT,
    score            DOUBLE PRECISION,
    evidence         JSONB NOT NULL,
    questions        JSONB NOT NULL,
    meta             JSONB,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
