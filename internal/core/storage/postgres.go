package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/zeusync/hexkernel/internal/core/observability/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps blobs in the terrain_chunks table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger log.Log
}

// OpenPostgres connects, pings and applies pending migrations.
func OpenPostgres(ctx context.Context, cfg Config, logger log.Log) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err = runMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, logger log.Log) error {
	goose.SetLogger(gooseLogger{logger})
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, x, y int) ([]byte, bool, error) {
	var blob []byte
	err := s.pool.QueryRow(ctx,
		`SELECT blob FROM terrain_chunks WHERE chunk_x = $1 AND chunk_y = $2`, x, y,
	).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load chunk (%d,%d): %w", x, y, err)
	}
	return blob, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, x, y int, blob []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO terrain_chunks (chunk_x, chunk_y, blob, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (chunk_x, chunk_y) DO UPDATE SET blob = EXCLUDED.blob, updated_at = now()`,
		x, y, blob,
	)
	if err != nil {
		return fmt.Errorf("save chunk (%d,%d): %w", x, y, err)
	}
	return nil
}

func (s *PostgresStore) Statistics(ctx context.Context) (Statistics, error) {
	st := Statistics{Driver: DriverPostgres}
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM terrain_chunks`).Scan(&st.Chunks)
	return st, err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// gooseLogger routes migration output into the structured logger.
type gooseLogger struct {
	log log.Log
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Fatal(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
