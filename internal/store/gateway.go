// Package store provides Postgres-backed persistence for the catalog
// hierarchy and price observations.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
	"github.com/stridewatch/stridewatch/internal/metrics"
)

// DB is the subset of pgxpool.Pool the gateway uses. pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	BatchSize       int           `mapstructure:"batch_size"`
}

const defaultBatchSize = 500

// Gateway persists catalog entities and observations.
type Gateway struct {
	db        DB
	logger    *zap.Logger
	metrics   *metrics.Metrics
	batchSize int
}

// NewGateway connects to Postgres using cfg.
func NewGateway(ctx context.Context, cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Gateway, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newGateway(pool, cfg.BatchSize, logger, m), nil
}

// NewGatewayWithDB constructs a gateway from an existing pool (primarily for testing).
func NewGatewayWithDB(db DB, batchSize int, logger *zap.Logger, m *metrics.Metrics) (*Gateway, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return newGateway(db, batchSize, logger, m), nil
}

func newGateway(db DB, batchSize int, logger *zap.Logger, m *metrics.Metrics) *Gateway {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{db: db, logger: logger, metrics: m, batchSize: batchSize}
}

// Close releases the underlying pool resources.
func (g *Gateway) Close() {
	if g == nil || g.db == nil {
		return
	}
	g.db.Close()
}

// SaveEntities upserts the full hierarchy from a crawl run. A failure on one
// table is logged and does not stop the others; the first error is returned
// after all tables have been attempted.
func (g *Gateway) SaveEntities(ctx context.Context, products []catalog.Product, fits []catalog.FitVariant, colors []catalog.ColorVariant, sizes []catalog.SizeVariant) error {
	var firstErr error
	record := func(table string, rows int, err error) {
		if err == nil {
			return
		}
		g.logger.Error("persist failed", zap.String("table", table), zap.Int("rows", rows), zap.Error(err))
		g.metrics.PersistFailed(table, rows)
		if firstErr == nil {
			firstErr = err
		}
	}
	record("products", len(products), g.saveProducts(ctx, products))
	record("fit_variants", len(fits), g.saveFits(ctx, fits))
	record("color_variants", len(colors), g.saveColors(ctx, colors))
	record("size_variants", len(sizes), g.saveSizes(ctx, sizes))
	return firstErr
}

// dedupeByKey keeps the first row per key. A multi-row ON CONFLICT DO UPDATE
// statement must not carry the same key twice; Postgres rejects it with
// "cannot affect row a second time".
func dedupeByKey[T any](items []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

func (g *Gateway) saveProducts(ctx context.Context, products []catalog.Product) error {
	products = dedupeByKey(products, func(p catalog.Product) string { return p.ProductID })
	if len(products) == 0 {
		return nil
	}
	query, args := buildUpsert("products",
		[]string{"product_id", "name", "category", "url", "tag"},
		"product_id",
		[]string{"name", "category", "url", "tag"},
		len(products),
		func(i int) []any {
			p := products[i]
			return []any{p.ProductID, p.Name, p.Category, p.URL, nullableText(p.Tag)}
		})
	if _, err := g.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert products: %w", err)
	}
	return nil
}

func (g *Gateway) saveFits(ctx context.Context, fits []catalog.FitVariant) error {
	fits = dedupeByKey(fits, func(f catalog.FitVariant) string { return f.FitID })
	if len(fits) == 0 {
		return nil
	}
	query, args := buildUpsert("fit_variants",
		[]string{"fit_id", "product_id", "fit_slug", "fit_name"},
		"fit_id",
		[]string{"product_id", "fit_slug", "fit_name"},
		len(fits),
		func(i int) []any {
			f := fits[i]
			return []any{f.FitID, f.ProductID, f.FitSlug, f.FitName}
		})
	if _, err := g.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert fit variants: %w", err)
	}
	return nil
}

func (g *Gateway) saveColors(ctx context.Context, colors []catalog.ColorVariant) error {
	colors = dedupeByKey(colors, func(c catalog.ColorVariant) string { return c.ColorID })
	if len(colors) == 0 {
		return nil
	}
	query, args := buildUpsert("color_variants",
		[]string{"color_id", "fit_id", "color_slug", "color_name", "image_url", "detail_url", "style", "shown"},
		"color_id",
		[]string{"fit_id", "color_slug", "color_name", "image_url", "detail_url", "style", "shown"},
		len(colors),
		func(i int) []any {
			c := colors[i]
			return []any{c.ColorID, c.FitID, c.ColorSlug, c.ColorName, nullableText(c.ImageURL), nullableText(c.DetailURL), nullableText(c.Style), nullableText(c.Shown)}
		})
	if _, err := g.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert color variants: %w", err)
	}
	return nil
}

func (g *Gateway) saveSizes(ctx context.Context, sizes []catalog.SizeVariant) error {
	sizes = dedupeByKey(sizes, func(s catalog.SizeVariant) string { return s.SizeID })
	if len(sizes) == 0 {
		return nil
	}
	query, args := buildUpsert("size_variants",
		[]string{"size_id", "color_id", "size_token", "size_label"},
		"size_id",
		[]string{"color_id", "size_token", "size_label"},
		len(sizes),
		func(i int) []any {
			s := sizes[i]
			return []any{s.SizeID, s.ColorID, s.SizeToken, s.SizeLabel}
		})
	if _, err := g.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert size variants: %w", err)
	}
	return nil
}

const observationInsertPrefix = `INSERT INTO price_observations (size_id, capture_time, available, price, original_price, discount_percent, change_type) VALUES `

const observationInsertSuffix = ` ON CONFLICT (size_id, capture_time) DO NOTHING`

// SaveObservations writes observation rows in batches. Each batch is tried as
// a single multi-row insert inside a transaction; if that fails the batch is
// replayed row by row so one bad row cannot sink its neighbors. Returns the
// number of rows written and the number that could not be written.
func (g *Gateway) SaveObservations(ctx context.Context, observations []catalog.PriceObservation) (inserted, failed int) {
	for start := 0; start < len(observations); start += g.batchSize {
		end := start + g.batchSize
		if end > len(observations) {
			end = len(observations)
		}
		chunk := observations[start:end]
		if err := g.insertBatch(ctx, chunk); err != nil {
			g.logger.Warn("batch insert failed, retrying rows individually",
				zap.Int("rows", len(chunk)), zap.Error(err))
			ok, bad := g.insertRows(ctx, chunk)
			inserted += ok
			failed += bad
			continue
		}
		inserted += len(chunk)
	}
	g.metrics.ObservationsPersisted(inserted)
	if failed > 0 {
		g.metrics.PersistFailed("price_observations", failed)
	}
	return inserted, failed
}

func (g *Gateway) insertBatch(ctx context.Context, chunk []catalog.PriceObservation) error {
	tx, err := g.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var sb strings.Builder
	sb.WriteString(observationInsertPrefix)
	args := make([]any, 0, len(chunk)*7)
	for i, obs := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, observationArgs(obs)...)
	}
	sb.WriteString(observationInsertSuffix)

	if _, err := tx.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert observations: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (g *Gateway) insertRows(ctx context.Context, chunk []catalog.PriceObservation) (inserted, failed int) {
	query := observationInsertPrefix + "($1,$2,$3,$4,$5,$6,$7)" + observationInsertSuffix
	for _, obs := range chunk {
		if _, err := g.db.Exec(ctx, query, observationArgs(obs)...); err != nil {
			g.logger.Error("observation insert failed",
				zap.String("size_id", obs.SizeID), zap.Error(err))
			failed++
			continue
		}
		inserted++
	}
	return inserted, failed
}

func observationArgs(obs catalog.PriceObservation) []any {
	return []any{
		obs.SizeID,
		obs.CaptureTime,
		obs.Available,
		nullableFloat(obs.Price),
		nullableFloat(obs.OriginalPrice),
		nullableInt(obs.DiscountPercent),
		obs.ChangeType,
	}
}

// buildUpsert assembles a multi-row INSERT ... ON CONFLICT DO UPDATE for a
// table whose rows is produced by rowArgs.
func buildUpsert(table string, columns []string, conflictKey string, updateColumns []string, rows int, rowArgs func(i int) []any) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, rows*len(columns))
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range columns {
			if j > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(i*len(columns) + j + 1))
		}
		sb.WriteString(")")
		args = append(args, rowArgs(i)...)
	}

	sb.WriteString(" ON CONFLICT (")
	sb.WriteString(conflictKey)
	sb.WriteString(") DO UPDATE SET ")
	for j, col := range updateColumns {
		if j > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col)
		sb.WriteString(" = EXCLUDED.")
		sb.WriteString(col)
	}
	return sb.String(), args
}

// The page hands us display strings; columns are typed. Unparsable values and
// null-like sentinels become SQL NULL.

func nullableText(s string) any {
	if s == "" || s == catalog.NotAvailable {
		return nil
	}
	return s
}

func nullableFloat(s string) any {
	s = strings.TrimSpace(s)
	if s == "" || s == catalog.NotAvailable {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return f
}

func nullableInt(s string) any {
	s = strings.TrimSpace(s)
	if s == "" || s == catalog.NotAvailable {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return int(f)
}
