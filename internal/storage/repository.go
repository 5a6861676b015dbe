package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/destination-search/internal/destination"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository is a destination store backed by PostgreSQL.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

const destinationColumns = `id, name, country, description, climate, currency, latitude, longitude`

// scanDestination reads one row selected with destinationColumns.
func scanDestination(row pgx.Row) (destination.Destination, error) {
	var d destination.Destination
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Country,
		&d.Description,
		&d.Climate,
		&d.Currency,
		&d.Latitude,
		&d.Longitude,
	)
	return d, err
}

// SearchDestinations returns destinations whose name contains query,
// case-insensitively, ordered by name.
func (r *Repository) SearchDestinations(ctx context.Context, query string) ([]destination.Destination, error) {
	const q = `
		SELECT ` + destinationColumns + `
		FROM destinations
		WHERE strpos(lower(name), lower($1)) > 0
		ORDER BY name, id
	`

	rows, err := r.q.Query(ctx, q, query)
	if err != nil {
		return nil, destination.NewLookupError(fmt.Sprintf("searching destinations for %q", query), err)
	}
	defer rows.Close()

	results := []destination.Destination{}
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, destination.NewLookupError("scanning destination row", err)
		}
		results = append(results, d)
	}

	if err := rows.Err(); err != nil {
		return nil, destination.NewLookupError("iterating destination rows", err)
	}

	return results, nil
}

// GetDestinationDetails returns the destination with exactly the given name.
func (r *Repository) GetDestinationDetails(ctx context.Context, name string) (*destination.Destination, error) {
	const q = `
		SELECT ` + destinationColumns + `
		FROM destinations
		WHERE name = $1
		ORDER BY id
		LIMIT 1
	`

	d, err := scanDestination(r.q.QueryRow(ctx, q, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, destination.NotFoundError(name)
		}
		return nil, destination.NewLookupError(fmt.Sprintf("fetching details for %q", name), err)
	}

	return &d, nil
}

// UpsertDestination inserts or updates a destination record keyed by id.
func (r *Repository) UpsertDestination(ctx context.Context, d destination.Destination) error {
	const q = `
		INSERT INTO destinations (` + destinationColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE
		SET name        = EXCLUDED.name,
		    country     = EXCLUDED.country,
		    description = EXCLUDED.description,
		    climate     = EXCLUDED.climate,
		    currency    = EXCLUDED.currency,
		    latitude    = EXCLUDED.latitude,
		    longitude   = EXCLUDED.longitude,
		    updated_at  = EXCLUDED.updated_at
	`

	if _, err := r.q.Exec(ctx, q,
		d.ID, d.Name, d.Country, d.Description, d.Climate, d.Currency, d.Latitude, d.Longitude,
	); err != nil {
		return fmt.Errorf("upserting destination %s: %w", d.ID, err)
	}

	return nil
}

// SeedFromJSON upserts every destination listed in the JSON array at path.
// It returns the number of records written.
func (r *Repository) SeedFromJSON(ctx context.Context, path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file %s: %w", path, err)
	}

	var seeds []destination.Destination
	if err := json.Unmarshal(b, &seeds); err != nil {
		return 0, fmt.Errorf("unmarshaling seed file %s: %w", path, err)
	}

	for i, d := range seeds {
		if d.ID == "" || d.Name == "" {
			return i, fmt.Errorf("seed entry %d: id and name are required", i)
		}
		if err := r.UpsertDestination(ctx, d); err != nil {
			return i, err
		}
	}

	return len(seeds), nil
}
