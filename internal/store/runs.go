// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/ldcheck/pkg/types"
)

// RunSummary is one row of the run history.
type RunSummary struct {
	ID         string    `json:"id" yaml:"id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Safe       bool      `json:"safe" yaml:"safe"`
	Contexts   []string  `json:"contexts,omitempty" yaml:"contexts,omitempty"`
	Documents  int       `json:"documents" yaml:"documents"`
	Warnings   int       `json:"warnings" yaml:"warnings"`
	Failed     int       `json:"failed" yaml:"failed"`
}

// RunQuery filters the run history.
type RunQuery struct {
	// Path limits results to runs that checked this document.
	Path string

	// Limit caps the number of runs returned. Zero means 20.
	Limit int
}

// RecordRun persists a run with its documents and warning events in a
// single transaction. A run without an ID is assigned a new UUID, which is
// returned.
func (s *Store) RecordRun(ctx context.Context, run types.RunRecord) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	contextsJSON, _ := json.Marshal(run.Contexts)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, safe, contexts, documents, warnings, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Safe,
		string(contextsJSON), len(run.Documents), run.Warnings(), run.Failed(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	docStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO run_documents (run_id, path, properties, warnings, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing document insert: %w", err)
	}
	defer docStmt.Close()

	eventStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_events (run_id, path, code, level, property, expanded_property)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing event insert: %w", err)
	}
	defer eventStmt.Close()

	for _, doc := range run.Documents {
		if _, err := docStmt.ExecContext(ctx,
			run.ID, doc.Path, len(doc.Properties), len(doc.Events), doc.Error, doc.Duration.Milliseconds(),
		); err != nil {
			return "", fmt.Errorf("inserting document %s: %w", doc.Path, err)
		}
		for _, ev := range doc.Events {
			if _, err := eventStmt.ExecContext(ctx,
				run.ID, doc.Path, ev.Code, ev.Level, ev.Details.Property, ev.Details.ExpandedProperty,
			); err != nil {
				return "", fmt.Errorf("inserting event for %s: %w", doc.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return run.ID, nil
}

// Runs lists recorded runs, most recent first.
func (s *Store) Runs(ctx context.Context, q RunQuery) ([]RunSummary, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT r.id, r.started_at, r.finished_at, r.safe, r.contexts,
			r.documents, r.warnings, r.failed
		FROM runs r`)
	if q.Path != "" {
		qb.WriteString(` WHERE EXISTS (
			SELECT 1 FROM run_documents d WHERE d.run_id = r.id AND d.path = ?)`)
		args = append(args, q.Path)
	}
	qb.WriteString(` ORDER BY r.started_at DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		r, err := scanRunSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunSummary(row rowScanner) (RunSummary, error) {
	var (
		r                     RunSummary
		startedAt, finishedAt string
		contexts              sql.NullString
	)
	if err := row.Scan(&r.ID, &startedAt, &finishedAt, &r.Safe, &contexts,
		&r.Documents, &r.Warnings, &r.Failed); err != nil {
		return RunSummary{}, fmt.Errorf("scanning run: %w", err)
	}
	r.StartedAt = parseTime(startedAt)
	r.FinishedAt = parseTime(finishedAt)
	if contexts.Valid && contexts.String != "" {
		_ = json.Unmarshal([]byte(contexts.String), &r.Contexts)
	}
	return r, nil
}

// Run loads a recorded run with its documents and events. Properties and
// expanded forms are not persisted and come back empty.
func (s *Store) Run(ctx context.Context, id string) (types.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, safe, contexts, documents, warnings, failed
		 FROM runs WHERE id = ?`, id)
	summary, err := scanRunSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return types.RunRecord{}, err
	}

	run := types.RunRecord{
		ID:         summary.ID,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Safe:       summary.Safe,
		Contexts:   summary.Contexts,
	}

	docRows, err := s.db.QueryContext(ctx,
		`SELECT path, error, duration_ms FROM run_documents WHERE run_id = ? ORDER BY path`, id)
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("querying run documents: %w", err)
	}
	defer docRows.Close()

	index := make(map[string]int)
	for docRows.Next() {
		var (
			doc        types.DocumentReport
			errMsg     sql.NullString
			durationMs int64
		)
		if err := docRows.Scan(&doc.Path, &errMsg, &durationMs); err != nil {
			return types.RunRecord{}, fmt.Errorf("scanning run document: %w", err)
		}
		doc.Error = errMsg.String
		doc.Duration = time.Duration(durationMs) * time.Millisecond
		index[doc.Path] = len(run.Documents)
		run.Documents = append(run.Documents, doc)
	}
	if err := docRows.Err(); err != nil {
		return types.RunRecord{}, err
	}

	eventRows, err := s.db.QueryContext(ctx,
		`SELECT path, code, level, property, expanded_property
		 FROM run_events WHERE run_id = ? ORDER BY rowid`, id)
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("querying run events: %w", err)
	}
	defer eventRows.Close()

	for eventRows.Next() {
		var path, code, level, property, expanded string
		if err := eventRows.Scan(&path, &code, &level, &property, &expanded); err != nil {
			return types.RunRecord{}, fmt.Errorf("scanning run event: %w", err)
		}
		ev := types.NewInvalidPropertyEvent(property)
		ev.Code, ev.Level = code, level
		ev.Details.ExpandedProperty = expanded
		if i, ok := index[path]; ok {
			run.Documents[i].Events = append(run.Documents[i].Events, ev)
		}
	}
	return run, eventRows.Err()
}

// PruneRuns deletes runs that started before cutoff and returns how many
// were removed.
func (s *Store) PruneRuns(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
