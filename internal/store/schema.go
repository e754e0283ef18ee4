package store

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
	product_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT,
	url TEXT NOT NULL,
	tag TEXT
)`,
	`CREATE TABLE IF NOT EXISTS fit_variants (
	fit_id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(product_id),
	fit_slug TEXT NOT NULL,
	fit_name TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS color_variants (
	color_id TEXT PRIMARY KEY,
	fit_id TEXT NOT NULL REFERENCES fit_variants(fit_id),
	color_slug TEXT NOT NULL,
	color_name TEXT NOT NULL,
	image_url TEXT,
	detail_url TEXT,
	style TEXT,
	shown TEXT
)`,
	`CREATE TABLE IF NOT EXISTS size_variants (
	size_id TEXT PRIMARY KEY,
	color_id TEXT NOT NULL REFERENCES color_variants(color_id),
	size_token TEXT NOT NULL,
	size_label TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS price_observations (
	id BIGSERIAL PRIMARY KEY,
	size_id TEXT NOT NULL REFERENCES size_variants(size_id),
	capture_time TIMESTAMPTZ NOT NULL,
	available BOOLEAN NOT NULL,
	price NUMERIC(10,2),
	original_price NUMERIC(10,2),
	discount_percent INTEGER,
	change_type TEXT NOT NULL,
	UNIQUE (size_id, capture_time)
)`,
	`CREATE INDEX IF NOT EXISTS idx_price_observations_capture_time ON price_observations (capture_time)`,
}

// EnsureSchema creates the tables if they do not exist.
func (g *Gateway) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := g.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
