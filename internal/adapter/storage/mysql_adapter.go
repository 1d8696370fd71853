package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/inventory-sync/internal/core/domain"
	"github.com/rl1809/inventory-sync/internal/port"
)

const defaultListLimit = 20

type MySQLAdapter struct {
	db *sql.DB
}

var _ port.SyncRecorder = (*MySQLAdapter)(nil)

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// NormalizeDSN forces parseTime and UTC on a MySQL DSN so DATETIME columns
// scan into time.Time.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func (m *MySQLAdapter) RecordSyncRun(ctx context.Context, run domain.SyncRun) error {
	var runErr sql.NullString
	if run.Error != "" {
		runErr = sql.NullString{String: run.Error, Valid: true}
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, marketplace, account, update_count, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Marketplace, run.Account, run.UpdateCount, run.Status, runErr,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

// ListSyncRuns returns the latest runs of an account, newest first.
func (m *MySQLAdapter) ListSyncRuns(ctx context.Context, marketplace, account string, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, marketplace, account, update_count, status, error, started_at, finished_at
		FROM sync_runs
		WHERE marketplace = ? AND account = ?
		ORDER BY started_at DESC
		LIMIT ?`,
		marketplace, account, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.SyncRun, 0)
	for rows.Next() {
		var (
			run    domain.SyncRun
			runErr sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Marketplace, &run.Account, &run.UpdateCount,
			&run.Status, &runErr, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		run.Error = runErr.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync runs: %w", err)
	}

	return runs, nil
}
