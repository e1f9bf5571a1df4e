package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-farmlink/internal/market"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxQuerier is the subset of *pgxpool.Pool the Postgres backend needs.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres keeps one row per key in farmlink_snapshots (see
// postgres.EnsureSchema).
type Postgres struct {
	db  PgxQuerier
	key string
}

func NewPostgres(db PgxQuerier, key string) *Postgres {
	if key == "" {
		key = DefaultKey
	}
	return &Postgres{db: db, key: key}
}

func (p *Postgres) Load(ctx context.Context) (*market.State, error) {
	var data []byte
	err := p.db.QueryRow(ctx, `SELECT data FROM farmlink_snapshots WHERE key=$1`, p.key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return Decode(data)
}

func (p *Postgres) Save(ctx context.Context, st market.State) error {
	b, err := Encode(st)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO farmlink_snapshots(key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, p.key, b)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
