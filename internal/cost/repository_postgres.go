package cost

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// --------------------------------------------------
// Append one entry (single INSERT, atomic)
// --------------------------------------------------
func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO cost_entries (
			ts,
			provider,
			operation,
			city,
			input_tokens,
			output_tokens,
			rate_ref,
			computed_cost,
			error_tag
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	return r.db.QueryRow(
		ctx,
		query,
		entry.Timestamp,
		entry.Provider,
		entry.Operation,
		entry.City,
		entry.InputTokens,
		entry.OutputTokens,
		entry.RateRef,
		entry.ComputedCost.String(),
		entry.ErrorTag,
	).Scan(&entry.ID)
}

// --------------------------------------------------
// Filtered list, timestamp ascending
// --------------------------------------------------
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	where, args := buildFilterClause(filter)

	query := `
		SELECT
			id,
			ts,
			provider,
			operation,
			city,
			input_tokens,
			output_tokens,
			rate_ref,
			computed_cost::text,
			error_tag
		FROM cost_entries
	` + where + `
		ORDER BY ts ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry

	for rows.Next() {
		var e Entry
		var costText string
		if err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.Provider,
			&e.Operation,
			&e.City,
			&e.InputTokens,
			&e.OutputTokens,
			&e.RateRef,
			&costText,
			&e.ErrorTag,
		); err != nil {
			return nil, err
		}
		cost, err := decimal.NewFromString(costText)
		if err != nil {
			return nil, err
		}
		e.ComputedCost = cost
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// --------------------------------------------------
// Aggregate total (always computed, never cached)
// --------------------------------------------------
func (r *PostgresRepository) SumCost(ctx context.Context, filter Filter) (decimal.Decimal, error) {
	where, args := buildFilterClause(filter)

	query := `
		SELECT COALESCE(SUM(computed_cost), 0)::text
		FROM cost_entries
	` + where

	var totalText string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&totalText); err != nil {
		return decimal.Zero, err
	}

	return decimal.NewFromString(totalText)
}

// --------------------------------------------------
// Clear the ledger
// --------------------------------------------------
func (r *PostgresRepository) Clear(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM cost_entries`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func buildFilterClause(filter Filter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if filter.Provider != "" {
		add("provider = ?", filter.Provider)
	}
	if filter.City != "" {
		add("city = ?", filter.City)
	}
	if !filter.From.IsZero() {
		add("ts >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		add("ts <= ?", filter.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
