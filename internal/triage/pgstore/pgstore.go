// Package pgstore provides a PostgreSQL implementation of triage.SnapshotStore.
// The snapshot is a single wholesale-replaced JSONB row, matching the
// store contract: last full write wins, no incremental patching.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/scout/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/scout/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// snapshotID keys the single current snapshot row.
const snapshotID = "current"

// Store persists the triage snapshot in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL with query tracing enabled, applies the
// schema, and returns a ready Store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Load reads the current snapshot. An absent row is a valid initial
// state and returns ok=false without error.
func (s *Store) Load(ctx context.Context) (*triage.Snapshot, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Load", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM snapshots WHERE id = $1`, snapshotID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("query snapshot: %w", err)
	}

	var snap triage.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, true, nil
}

// Save replaces the current snapshot (upsert on the single row).
func (s *Store) Save(ctx context.Context, snap *triage.Snapshot) error {
	ctx, span := tracer.Start(ctx, "pgstore.Save", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, updated_at, data) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			data       = EXCLUDED.data`,
		snapshotID, time.Now().UTC(), data,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
