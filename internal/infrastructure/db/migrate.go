package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Migrate creates the device token table. Statements are idempotent so it
// runs on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`create table if not exists device_tokens (
			id bigserial primary key,
			token text not null unique,
			created_at timestamptz not null default now()
		);`,
		`create index if not exists device_tokens_created_at_idx on device_tokens(created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate device_tokens")
		}
	}
	return nil
}
