package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hazard-identify/api/internal/config"
)

func newSQLite(t *testing.T, strategy string, poolMax int) Acquirer {
	t.Helper()
	cfg := config.DBConfig{
		Driver:   config.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "hazards.db"),
		Strategy: strategy,
		PoolMin:  1,
		PoolMax:  poolMax,
	}
	acq, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = acq.Close() })
	return acq
}

func newRepo(t *testing.T, strategy string) *HazardRepo {
	t.Helper()
	repo := NewHazardRepo(newSQLite(t, strategy, 4))
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return repo
}

func TestHazardRepo_InsertAndRead(t *testing.T) {
	for _, strategy := range []string{config.StrategyPooled, config.StrategyAdHoc} {
		t.Run(strategy, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t, strategy)

			// повторный вызов не должен падать
			if err := repo.EnsureSchema(ctx); err != nil {
				t.Fatalf("second EnsureSchema: %v", err)
			}

			first, err := repo.Insert(ctx, "/tmp/a.jpg", "工地", "未发现隐患")
			if err != nil {
				t.Fatalf("Insert: %v", err)
			}
			second, err := repo.Insert(ctx, "/tmp/a.jpg", "工地", "未发现隐患")
			if err != nil {
				t.Fatalf("Insert: %v", err)
			}

			if first.ID <= 0 || second.ID == first.ID {
				t.Fatalf("ids = %d, %d; want distinct positive ids", first.ID, second.ID)
			}
			if first.CreatedAt.IsZero() || second.CreatedAt.Before(first.CreatedAt) {
				t.Errorf("created_at = %v, %v; want non-zero and ordered", first.CreatedAt, second.CreatedAt)
			}

			got, err := repo.Get(ctx, first.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.ImagePath != "/tmp/a.jpg" || got.Context != "工地" || got.Result != "未发现隐患" {
				t.Errorf("Get = %+v", got)
			}

			recent, err := repo.Recent(ctx, 10)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(recent) != 2 || recent[0].ID != second.ID || recent[1].ID != first.ID {
				t.Errorf("Recent order = %+v, want newest first", recent)
			}
		})
	}
}

func TestHazardRepo_EmptyContext(t *testing.T) {
	repo := newRepo(t, config.StrategyPooled)
	row, err := repo.Insert(context.Background(), "x.png", "", "An error occurred: boom")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := repo.Get(context.Background(), row.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Context != "" || got.Result != "An error occurred: boom" {
		t.Errorf("Get = %+v", got)
	}
}

func TestHazardRepo_GetNotFound(t *testing.T) {
	repo := newRepo(t, config.StrategyPooled)
	if _, err := repo.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPooled_BlocksWhenExhausted(t *testing.T) {
	acq := newSQLite(t, config.StrategyPooled, 1)

	_, release, err := acq.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, _, err := acq.Acquire(ctx); err == nil {
		t.Fatal("expected second Acquire to wait and fail on deadline")
	}
	if time.Since(start) < 90*time.Millisecond {
		t.Error("second Acquire returned before the deadline; expected it to block")
	}

	release()
	_, release2, err := acq.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	release2()
}

func TestOpen_UnknownStrategy(t *testing.T) {
	_, err := Open(context.Background(), config.DBConfig{Driver: config.DriverSQLite, DSN: "x.db", Strategy: "lazy"})
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestWaitReady(t *testing.T) {
	acq := newSQLite(t, config.StrategyAdHoc, 1)
	if err := WaitReady(context.Background(), acq, time.Second, zerolog.Nop()); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
}

func TestRebind(t *testing.T) {
	q := "select * from t where a = $1 and b = $2"
	if got := rebind(config.DriverSQLite, q); got != "select * from t where a = ? and b = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
	if got := rebind(config.DriverPostgres, q); got != q {
		t.Errorf("postgres rebind changed query: %q", got)
	}
}

func TestDBTimeScan(t *testing.T) {
	var ts dbTime
	if err := ts.Scan("2024-05-01 10:11:12"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if ts.Year() != 2024 || ts.Second() != 12 {
		t.Errorf("parsed %v", ts.Time)
	}
	if err := ts.Scan(42); err == nil {
		t.Error("expected error for int source")
	}
}
