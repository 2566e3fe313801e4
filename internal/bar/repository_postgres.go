package bar

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// --------------------------------------------------
// Insert a new bar
// --------------------------------------------------
func (r *PostgresRepository) Insert(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO bars (
			id,
			name,
			normalized_name,
			city,
			description,
			website,
			menu_url,
			discovered_at,
			source_queries
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		record.ID,
		record.Name,
		record.NormalizedName,
		record.City,
		record.Description,
		record.Website,
		record.MenuURL,
		record.DiscoveredAt,
		record.SourceQueries,
	)
	return err
}

// --------------------------------------------------
// Update an existing bar (merge result)
// --------------------------------------------------
func (r *PostgresRepository) Update(ctx context.Context, record *Record) error {
	query := `
		UPDATE bars
		SET
			name = $2,
			normalized_name = $3,
			description = $4,
			website = $5,
			menu_url = $6,
			source_queries = $7
		WHERE id = $1
	`

	tag, err := r.db.Exec(
		ctx,
		query,
		record.ID,
		record.Name,
		record.NormalizedName,
		record.Description,
		record.Website,
		record.MenuURL,
		record.SourceQueries,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --------------------------------------------------
// List a city's bars in insertion order
// --------------------------------------------------
func (r *PostgresRepository) ListByCity(ctx context.Context, city string) ([]*Record, error) {
	query := `
		SELECT
			id,
			name,
			normalized_name,
			city,
			description,
			website,
			menu_url,
			discovered_at,
			source_queries
		FROM bars
		WHERE city = $1
		ORDER BY discovered_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record

	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID,
			&rec.Name,
			&rec.NormalizedName,
			&rec.City,
			&rec.Description,
			&rec.Website,
			&rec.MenuURL,
			&rec.DiscoveredAt,
			&rec.SourceQueries,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// --------------------------------------------------
// Single lookup
// --------------------------------------------------
func (r *PostgresRepository) GetByID(ctx context.Context, city, id string) (*Record, error) {
	query := `
		SELECT
			id,
			name,
			normalized_name,
			city,
			description,
			website,
			menu_url,
			discovered_at,
			source_queries
		FROM bars
		WHERE city = $1 AND id = $2
	`

	var rec Record
	err := r.db.QueryRow(ctx, query, city, id).Scan(
		&rec.ID,
		&rec.Name,
		&rec.NormalizedName,
		&rec.City,
		&rec.Description,
		&rec.Website,
		&rec.MenuURL,
		&rec.DiscoveredAt,
		&rec.SourceQueries,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// --------------------------------------------------
// Reset
// --------------------------------------------------
func (r *PostgresRepository) DeleteByCity(ctx context.Context, city string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM bars WHERE city = $1`, city)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM bars`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --------------------------------------------------
// Stats
// --------------------------------------------------
func (r *PostgresRepository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{BarsByCity: make(map[string]int)}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bars`).Scan(&stats.TotalBars); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT city, COUNT(*)
		FROM bars
		GROUP BY city
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var city string
		var count int
		if err := rows.Scan(&city, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.BarsByCity[city] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `
		SELECT city, name, discovered_at
		FROM bars
		ORDER BY discovered_at DESC
		LIMIT 5
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var recent RecentDiscovery
		if err := rows.Scan(&recent.City, &recent.Name, &recent.DiscoveredAt); err != nil {
			return nil, err
		}
		stats.Recent = append(stats.Recent, &recent)
	}

	return stats, rows.Err()
}
