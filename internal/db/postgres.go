package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
)

const connectAttempts = 10

// InitPostgres opens the sqlx handle used for challenge snapshots and health checks,
// retrying while the server comes up.
func InitPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	var lastErr error
	for i := 0; i < connectAttempts; i++ {
		conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
		if err == nil {
			conn.SetMaxOpenConns(20)
			conn.SetConnMaxIdleTime(5 * time.Minute)
			return conn, nil
		}
		lastErr = err
		logging.Warn("Postgres not ready, retrying", "attempt", i+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", connectAttempts, lastErr)
}
