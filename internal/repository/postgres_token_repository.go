package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// PostgresTokenRepository stores device tokens in Postgres. Uniqueness is
// enforced by the table's unique constraint.
type PostgresTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTokenRepository(pool *pgxpool.Pool) *PostgresTokenRepository {
	return &PostgresTokenRepository{pool: pool}
}

func (r *PostgresTokenRepository) AddIfAbsent(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, ErrEmptyToken
	}

	tag, err := r.pool.Exec(ctx, `
		insert into device_tokens(token) values ($1)
		on conflict (token) do nothing
	`, token)
	if err != nil {
		return false, errors.Wrap(err, "insert device token")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresTokenRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `select token from device_tokens order by id`)
	if err != nil {
		return nil, errors.Wrap(err, "query device tokens")
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, errors.Wrap(err, "scan device token")
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate device tokens")
	}
	return tokens, nil
}

func (r *PostgresTokenRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `select count(*) from device_tokens`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count device tokens")
	}
	return n, nil
}

// Close releases the pool.
func (r *PostgresTokenRepository) Close() error {
	r.pool.Close()
	return nil
}
