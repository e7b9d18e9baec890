package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"hazard-identify/api/internal/config"
)

// Session is the subset of *sql.Conn the repositories need.
type Session interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PingContext(ctx context.Context) error
}

// Acquirer hands out a storage session per unit of work. release must be called
// exactly once when the caller is done; it returns the connection to the pool
// or closes it, depending on the strategy.
type Acquirer interface {
	Acquire(ctx context.Context) (s Session, release func(), err error)
	Driver() string
	Close() error
}

// Open builds the acquisition strategy named in cfg.Strategy.
func Open(ctx context.Context, cfg config.DBConfig) (Acquirer, error) {
	switch cfg.Strategy {
	case config.StrategyPooled:
		p, err := openPooled(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.StrategyAdHoc:
		return &adHoc{driver: cfg.Driver, sqlDriver: sqlDriverName(cfg.Driver), dsn: dsnFor(cfg)}, nil
	default:
		return nil, fmt.Errorf("unsupported connection strategy: %s", cfg.Strategy)
	}
}

func sqlDriverName(driver string) string {
	if driver == config.DriverSQLite {
		return "sqlite"
	}
	return "pgx"
}

// dsnFor adds a busy timeout to SQLite DSNs so concurrent writers wait instead of failing.
func dsnFor(cfg config.DBConfig) string {
	if cfg.Driver != config.DriverSQLite || strings.Contains(cfg.DSN, "_pragma=busy_timeout") {
		return cfg.DSN
	}
	sep := "?"
	if strings.Contains(cfg.DSN, "?") {
		sep = "&"
	}
	return cfg.DSN + sep + "_pragma=busy_timeout(5000)"
}

// pooled shares a bounded set of connections. Acquire blocks while the pool is exhausted.
type pooled struct {
	driver string
	db     *sql.DB
	pgPool *pgxpool.Pool
}

func openPooled(ctx context.Context, cfg config.DBConfig) (*pooled, error) {
	p := &pooled{driver: cfg.Driver}

	switch cfg.Driver {
	case config.DriverPostgres:
		pcfg, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		pcfg.MinConns = int32(cfg.PoolMin)
		pcfg.MaxConns = int32(cfg.PoolMax)
		pool, err := pgxpool.NewWithConfig(ctx, pcfg)
		if err != nil {
			return nil, fmt.Errorf("create pool: %w", err)
		}
		p.pgPool = pool
		p.db = stdlib.OpenDBFromPool(pool)
		p.db.SetMaxOpenConns(cfg.PoolMax)
	case config.DriverSQLite:
		db, err := sql.Open("sqlite", dsnFor(cfg))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(cfg.PoolMax)
		db.SetMaxIdleConns(cfg.PoolMax)
		p.db = db
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	return p, nil
}

func (p *pooled) Acquire(ctx context.Context) (Session, func(), error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, func() { _ = conn.Close() }, nil
}

func (p *pooled) Driver() string { return p.driver }

func (p *pooled) Close() error {
	err := p.db.Close()
	if p.pgPool != nil {
		p.pgPool.Close()
	}
	return err
}

// adHoc opens a fresh connection per Acquire and closes it on release.
type adHoc struct {
	driver    string
	sqlDriver string
	dsn       string
}

func (a *adHoc) Acquire(ctx context.Context) (Session, func(), error) {
	db, err := sql.Open(a.sqlDriver, a.dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("open connection: %w", err)
	}
	return conn, func() {
		_ = conn.Close()
		_ = db.Close()
	}, nil
}

func (a *adHoc) Driver() string { return a.driver }

func (a *adHoc) Close() error { return nil }
