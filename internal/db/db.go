package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"talkmate/internal/config"
)

// NewPool construye el pool de conexiones. Solo se usa cuando DATABASE_URL esta definido.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = 5
	poolCfg.MinConns = 0
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// EnsureSchema crea la tabla de usuarios si no existe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                TEXT PRIMARY KEY,
	email             TEXT NOT NULL UNIQUE,
	username          TEXT NOT NULL UNIQUE,
	display_name      TEXT NOT NULL DEFAULT '',
	phone_country     TEXT,
	phone_country_code TEXT,
	phone_number      TEXT,
	auth_provider     TEXT NOT NULL DEFAULT '',
	auth_subject      TEXT NOT NULL DEFAULT '',
	password_hash     TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_auth_idx ON users (auth_provider, auth_subject) WHERE auth_subject <> '';
`
