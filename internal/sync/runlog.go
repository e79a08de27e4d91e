package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	sqlInsertRun = `INSERT INTO sync_runs
		(id, triggered_by, mode, status, message, imported, created, updated, removed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlRecentRuns = `SELECT id, triggered_by, mode, status, message, imported, created, updated, removed,
		started_at, finished_at
		FROM sync_runs ORDER BY started_at DESC, finished_at DESC LIMIT ?`

	sqlPruneRuns = `DELETE FROM sync_runs WHERE started_at < ?`
)

// RunRecord is one finished session as stored in the run log.
type RunRecord struct {
	ID         string
	Trigger    Trigger
	Mode       Mode
	Status     Status
	Message    string
	Counts     Counts
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunLog is a SQLite history of sessions, used by the status command and
// for troubleshooting timer runs nobody watched.
type RunLog struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenRunLog opens the database at dbPath, creating it and its directory
// when needed, and applies migrations.
func OpenRunLog(ctx context.Context, dbPath string, logger *slog.Logger) (*RunLog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("sync: creating run log directory: %w", err)
		}
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"+
			"&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sync: opening run log %s: %w", dbPath, err)
	}

	// A daemon and a foreground `sync` may share the file; one writer per
	// process keeps SQLite's locking simple.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("run log opened", slog.String("db_path", dbPath))

	return &RunLog{db: db, logger: logger}, nil
}

// Close releases the database.
func (l *RunLog) Close() error {
	return l.db.Close()
}

// Record inserts rec.
func (l *RunLog) Record(ctx context.Context, rec RunRecord) error {
	_, err := l.db.ExecContext(ctx, sqlInsertRun,
		rec.ID, string(rec.Trigger), string(rec.Mode), string(rec.Status), rec.Message,
		rec.Counts.Imported, rec.Counts.Created, rec.Counts.Updated, rec.Counts.Removed,
		rec.StartedAt.UnixNano(), rec.FinishedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sync: recording run %s: %w", rec.ID, err)
	}

	return nil
}

// Recent returns up to limit runs, newest first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := l.db.QueryContext(ctx, sqlRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("sync: querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord

	for rows.Next() {
		var (
			rec                      RunRecord
			trigger, mode, status    string
			startedNanos, finishedNs int64
		)

		if err := rows.Scan(&rec.ID, &trigger, &mode, &status, &rec.Message,
			&rec.Counts.Imported, &rec.Counts.Created, &rec.Counts.Updated, &rec.Counts.Removed,
			&startedNanos, &finishedNs); err != nil {
			return nil, fmt.Errorf("sync: scanning run: %w", err)
		}

		rec.Trigger = Trigger(trigger)
		rec.Mode = Mode(mode)
		rec.Status = Status(status)
		rec.StartedAt = time.Unix(0, startedNanos)
		rec.FinishedAt = time.Unix(0, finishedNs)
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterating runs: %w", err)
	}

	return out, nil
}

// Prune deletes runs started before cutoff and returns how many were
// removed.
func (l *RunLog) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, sqlPruneRuns, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sync: pruning runs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sync: pruning runs: %w", err)
	}

	if n > 0 {
		l.logger.Debug("pruned run log", slog.Int64("rows", n))
	}

	return n, nil
}
