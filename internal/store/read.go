package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stridewatch/stridewatch/internal/catalog"
)

// ErrNotFound is returned when a size has no observations.
var ErrNotFound = errors.New("not found")

const latestStatesQuery = `
SELECT o.size_id, o.capture_time, o.available, o.price, o.original_price, o.discount_percent, o.change_type
FROM price_observations o
JOIN (
	SELECT size_id, MAX(capture_time) AS capture_time
	FROM price_observations
	GROUP BY size_id
) latest ON o.size_id = latest.size_id AND o.capture_time = latest.capture_time`

// LatestStates returns the most recent observation per size, keyed by size id.
// This is the baseline the tracker diffs a fresh crawl against.
func (g *Gateway) LatestStates(ctx context.Context) (map[string]catalog.ObservationState, error) {
	rows, err := g.db.Query(ctx, latestStatesQuery)
	if err != nil {
		return nil, fmt.Errorf("query latest states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]catalog.ObservationState)
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan latest state: %w", err)
		}
		states[state.SizeID] = state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest states: %w", err)
	}
	return states, nil
}

// LatestBySize returns the most recent observation for one size.
func (g *Gateway) LatestBySize(ctx context.Context, sizeID string) (catalog.ObservationState, error) {
	row := g.db.QueryRow(ctx, `
SELECT size_id, capture_time, available, price, original_price, discount_percent, change_type
FROM price_observations
WHERE size_id = $1
ORDER BY capture_time DESC
LIMIT 1`, sizeID)
	state, err := scanState(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.ObservationState{}, ErrNotFound
	}
	if err != nil {
		return catalog.ObservationState{}, fmt.Errorf("query latest by size: %w", err)
	}
	return state, nil
}

// HistoryBySize returns observations for one size, newest first.
func (g *Gateway) HistoryBySize(ctx context.Context, sizeID string, limit int) ([]catalog.ObservationState, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := g.db.Query(ctx, `
SELECT size_id, capture_time, available, price, original_price, discount_percent, change_type
FROM price_observations
WHERE size_id = $1
ORDER BY capture_time DESC
LIMIT $2`, sizeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	return collectStates(rows)
}

// ChangesSince returns non-initial observations captured at or after since,
// newest first.
func (g *Gateway) ChangesSince(ctx context.Context, since time.Time, limit int) ([]catalog.ObservationState, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := g.db.Query(ctx, `
SELECT size_id, capture_time, available, price, original_price, discount_percent, change_type
FROM price_observations
WHERE capture_time >= $1 AND change_type <> $2
ORDER BY capture_time DESC
LIMIT $3`, since, catalog.ChangeInitial, limit)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()
	return collectStates(rows)
}

// Stats summarizes the observation table. ChangeTypeCounts breaks the total
// down per change_type, INITIAL included.
type Stats struct {
	TotalObservations int64            `json:"total_observations"`
	UniqueSizes       int64            `json:"unique_sizes"`
	CaptureRuns       int64            `json:"capture_runs"`
	LatestCapture     time.Time        `json:"latest_capture"`
	ChangeTypeCounts  map[string]int64 `json:"change_type_counts"`
}

// ObservationStats reports aggregate counts over the observation table.
func (g *Gateway) ObservationStats(ctx context.Context) (Stats, error) {
	var s Stats
	row := g.db.QueryRow(ctx, `
SELECT COUNT(*),
	COUNT(DISTINCT size_id),
	COUNT(DISTINCT capture_time),
	COALESCE(MAX(capture_time), 'epoch'::timestamptz)
FROM price_observations`)
	if err := row.Scan(&s.TotalObservations, &s.UniqueSizes, &s.CaptureRuns, &s.LatestCapture); err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}

	rows, err := g.db.Query(ctx, `
SELECT change_type, COUNT(*)
FROM price_observations
GROUP BY change_type`)
	if err != nil {
		return Stats{}, fmt.Errorf("query change type counts: %w", err)
	}
	defer rows.Close()

	s.ChangeTypeCounts = make(map[string]int64)
	for rows.Next() {
		var changeType string
		var count int64
		if err := rows.Scan(&changeType, &count); err != nil {
			return Stats{}, fmt.Errorf("scan change type count: %w", err)
		}
		s.ChangeTypeCounts[changeType] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate change type counts: %w", err)
	}
	return s, nil
}

func collectStates(rows pgx.Rows) ([]catalog.ObservationState, error) {
	var states []catalog.ObservationState
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return states, nil
}

func scanState(row pgx.Row) (catalog.ObservationState, error) {
	var state catalog.ObservationState
	var available bool
	err := row.Scan(&state.SizeID, &state.CaptureTime, &available,
		&state.Price, &state.OriginalPrice, &state.DiscountPercent, &state.ChangeType)
	if err != nil {
		return catalog.ObservationState{}, err
	}
	state.Available = &available
	return state, nil
}
