package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

const ledgerSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id       TEXT PRIMARY KEY,
		manifest     TEXT NOT NULL,
		started_at   TIMESTAMP NOT NULL,
		finished_at  TIMESTAMP,
		total        INTEGER DEFAULT 0,
		succeeded    INTEGER DEFAULT 0,
		failed       INTEGER DEFAULT 0,
		skipped      INTEGER DEFAULT 0,
		aborted      INTEGER DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS pair_results (
		run_id       TEXT NOT NULL,
		line         INTEGER NOT NULL,
		image        TEXT NOT NULL,
		garment      TEXT NOT NULL,
		cloth_type   TEXT,
		state        TEXT NOT NULL,
		mask_path    TEXT,
		pose_path    TEXT,
		error_code   TEXT,
		error        TEXT,
		duration_ms  INTEGER DEFAULT 0,
		recorded_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(run_id) REFERENCES runs(run_id)
	);
	CREATE INDEX IF NOT EXISTS pair_results_pair ON pair_results(image, garment, state);
`

// SQLiteLedger журнал запусков в файле SQLite
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger открывает базу и создаёт таблицы при необходимости
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// одно соединение, чтобы :memory: база была общей
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) BeginRun(ctx context.Context, run *entity.Run) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, manifest, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Manifest, run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) RecordPair(ctx context.Context, runID string, r *entity.PairResult) error {
	var errText string
	if r.Err != nil {
		errText = r.Err.Error()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO pair_results (run_id, line, image, garment, cloth_type, state, mask_path, pose_path, error_code, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Pair.Line, r.Pair.Image, r.Pair.Garment, string(r.Category), string(r.State),
		r.MaskPath, r.PosePath, string(r.Code), errText, r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record pair: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) FinishRun(ctx context.Context, s *entity.RunSummary) error {
	finished := s.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, total = ?, succeeded = ?, failed = ?, skipped = ?, aborted = ?
		WHERE run_id = ?`,
		finished.UTC(), s.Total, s.Succeeded, s.Failed, s.Skipped, s.Aborted, s.RunID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) Completed(ctx context.Context, pair entity.Pair) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pair_results WHERE image = ? AND garment = ? AND state = ?`,
		pair.Image, pair.Garment, string(entity.StateDone)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query completed: %w", err)
	}
	return n > 0, nil
}

// RunTotals возвращает счётчики запуска
func (l *SQLiteLedger) RunTotals(ctx context.Context, runID string) (succeeded, failed, skipped int, err error) {
	err = l.db.QueryRowContext(ctx,
		`SELECT succeeded, failed, skipped FROM runs WHERE run_id = ?`, runID).
		Scan(&succeeded, &failed, &skipped)
	return succeeded, failed, skipped, err
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

var _ port.RunLedger = (*SQLiteLedger)(nil)
