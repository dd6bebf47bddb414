package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps the collection in a Postgres table instead of a JSON file.
//
// Expected table (created out of band):
//
//	CREATE TABLE <schema>.catalog_items (
//	    product_id text PRIMARY KEY,
//	    name       text NOT NULL,
//	    price      text NOT NULL,
//	    was_price  text NOT NULL DEFAULT '',
//	    link       text NOT NULL,
//	    image      text NOT NULL,
//	    size_label text NOT NULL DEFAULT '',
//	    sold       boolean NOT NULL DEFAULT false,
//	    signaled   boolean NOT NULL DEFAULT false,
//	    created_at timestamptz NOT NULL,
//	    updated_at timestamptz NOT NULL
//	);
//
// Saves upsert by product id: creation-time fields are written only on
// insert, and conflicts update just the mutable columns (sold, signaled,
// updated_at), so the keyed-id invariant holds in either store.
type PGStore struct {
	pool  *pgxpool.Pool
	table string
	batch int
}

type PGStoreOptions struct {
	DSN       string
	Schema    string
	MaxConns  int
	BatchSize int
	// ViaBouncer forces the simple query protocol for PgBouncer
	// transaction pooling.
	ViaBouncer bool
}

func OpenPGStore(ctx context.Context, opts PGStoreOptions) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)
	if opts.ViaBouncer {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	schema := opts.Schema
	if schema == "" {
		schema = "public"
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 200
	}
	return &PGStore{
		pool:  pool,
		table: fmt.Sprintf(`"%s".catalog_items`, schema),
		batch: batch,
	}, nil
}

func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) Load(ctx context.Context) ([]Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT product_id, name, price, was_price, link, image, size_label,
		        sold, signaled, created_at, updated_at
		 FROM `+s.table+`
		 ORDER BY created_at, product_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var created, updated time.Time
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.WasPrice,
			&it.Link, &it.Image, &it.Size, &it.Sold, &it.Signaled,
			&created, &updated); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		it.Created = created.UTC()
		it.Updated = updated.UTC()
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return items, nil
}

func (s *PGStore) Save(ctx context.Context, items []Item) error {
	for i := 0; i < len(items); i += s.batch {
		j := i + s.batch
		if j > len(items) {
			j = len(items)
		}
		b := &pgx.Batch{}
		for _, it := range items[i:j] {
			b.Queue(
				`INSERT INTO `+s.table+`
				 (product_id, name, price, was_price, link, image, size_label,
				  sold, signaled, created_at, updated_at)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
				 ON CONFLICT (product_id) DO UPDATE SET
				   sold = EXCLUDED.sold,
				   signaled = EXCLUDED.signaled,
				   updated_at = EXCLUDED.updated_at`,
				it.ProductID, it.Name, it.Price, it.WasPrice, it.Link,
				it.Image, it.Size, it.Sold, it.Signaled,
				it.Created.UTC(), it.Updated.UTC(),
			)
		}
		br := s.pool.SendBatch(ctx, b)
		for k := i; k < j; k++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("save catalog batch: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("save catalog batch: %w", err)
		}
	}
	return nil
}
