package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/inventory-sync/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory_sync"
	}

	dsn, err := NormalizeDSN(dsn)
	if err != nil {
		t.Fatalf("bad MYSQL_DSN: %v", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	return db
}

func TestRecordSyncRun_RoundTrip(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	account := "test-account-" + uuid.NewString()[:8]

	started := time.Now().UTC().Truncate(time.Millisecond)
	runs := []domain.SyncRun{
		{
			ID: uuid.NewString(), Marketplace: "ebay", Account: account,
			UpdateCount: 3, Status: domain.SyncRunStatusSucceeded,
			StartedAt: started, FinishedAt: started.Add(time.Second),
		},
		{
			ID: uuid.NewString(), Marketplace: "ebay", Account: account,
			Status: domain.SyncRunStatusFailed, Error: "ebay fetch_listings: unexpected status 500",
			StartedAt: started.Add(time.Minute), FinishedAt: started.Add(time.Minute + time.Second),
		},
	}

	for _, run := range runs {
		if err := adapter.RecordSyncRun(ctx, run); err != nil {
			t.Fatalf("RecordSyncRun failed: %v", err)
		}
	}

	got, err := adapter.ListSyncRuns(ctx, "ebay", account, 10)
	if err != nil {
		t.Fatalf("ListSyncRuns failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	// newest first
	if got[0].ID != runs[1].ID {
		t.Errorf("expected newest run first, got %s", got[0].ID)
	}
	if got[0].Error != runs[1].Error || got[0].Status != domain.SyncRunStatusFailed {
		t.Errorf("failed run not stored as recorded: %+v", got[0])
	}
	if got[1].UpdateCount != 3 || got[1].Error != "" {
		t.Errorf("succeeded run not stored as recorded: %+v", got[1])
	}

	// other marketplaces are not mixed in
	other, err := adapter.ListSyncRuns(ctx, "amazon", account, 10)
	if err != nil {
		t.Fatalf("ListSyncRuns failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no amazon runs, got %d", len(other))
	}

	// Cleanup
	db.ExecContext(ctx, `DELETE FROM sync_runs WHERE account = ?`, account)
}

func TestListSyncRuns_Limit(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	account := "test-account-" + uuid.NewString()[:8]

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		run := domain.SyncRun{
			ID: uuid.NewString(), Marketplace: "memory", Account: account,
			Status:    domain.SyncRunStatusSucceeded,
			StartedAt: now.Add(time.Duration(i) * time.Second), FinishedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := adapter.RecordSyncRun(ctx, run); err != nil {
			t.Fatalf("RecordSyncRun failed: %v", err)
		}
	}

	got, err := adapter.ListSyncRuns(ctx, "memory", account, 2)
	if err != nil {
		t.Fatalf("ListSyncRuns failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 runs, got %d", len(got))
	}

	// Cleanup
	db.ExecContext(ctx, `DELETE FROM sync_runs WHERE account = ?`, account)
}

func TestNormalizeDSN(t *testing.T) {
	dsn, err := NormalizeDSN("root:root@tcp(localhost:3306)/inventory_sync")
	if err != nil {
		t.Fatalf("NormalizeDSN failed: %v", err)
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("normalized dsn does not parse: %v", err)
	}
	if !cfg.ParseTime {
		t.Errorf("expected parseTime=true in %q", dsn)
	}
	if cfg.Loc != time.UTC {
		t.Errorf("expected loc UTC, got %v", cfg.Loc)
	}
	if cfg.DBName != "inventory_sync" || cfg.Addr != "localhost:3306" || cfg.User != "root" {
		t.Errorf("connection fields changed: %+v", cfg)
	}

	// explicit parseTime=false is overridden
	dsn, err = NormalizeDSN("u:p@tcp(db:3306)/x?parseTime=false")
	if err != nil {
		t.Fatalf("NormalizeDSN failed: %v", err)
	}
	cfg, _ = mysql.ParseDSN(dsn)
	if !cfg.ParseTime {
		t.Errorf("expected parseTime forced on, got %q", dsn)
	}
}

func TestNormalizeDSN_Invalid(t *testing.T) {
	if _, err := NormalizeDSN("not a dsn"); err == nil {
		t.Fatal("expected error for malformed dsn")
	}
}
