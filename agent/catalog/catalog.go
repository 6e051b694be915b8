// Package catalog is the Postgres/pgvector gateway for the unified parts
// collection. Internal inventory and external supplier offerings live in one
// table, partitioned by supplier_type.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

type Config struct {
	DSN             string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"8"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" split_words:"true" default:"4"`
	ConnMaxIdleTime time.Duration `envconfig:"CONN_MAX_IDLE_TIME" split_words:"true" default:"5m"`
}

// NewDB opens a bun handle over the pgdriver connector.
func NewDB(cfg Config) (*bun.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("%w: catalog dsn is required", contractx.ErrValidation)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// partRow mirrors one catalog_parts record.
type partRow struct {
	bun.BaseModel `bun:"table:catalog_parts,alias:p"`

	Code           string          `bun:"code,pk"`
	Description    string          `bun:"description"`
	Brand          string          `bun:"brand"`
	Model          string          `bun:"model"`
	Category       string          `bun:"category"`
	SupplierType   string          `bun:"supplier_type"`
	SupplierName   string          `bun:"supplier_name"`
	SupplierRating int             `bun:"supplier_rating"`
	UnitCost       float64         `bun:"unit_cost"`
	Currency       string          `bun:"currency"`
	AvailableStock int             `bun:"available_stock"`
	LeadTimeDays   int             `bun:"lead_time_days"`
	MinOrderQty    int             `bun:"min_order_qty"`
	StockLocation  string          `bun:"stock_location"`
	Note           string          `bun:"note"`
	Embedding      pgvector.Vector `bun:"embedding,type:vector(384)"`
}

// Gateway implements contract.Catalog over a bun DB handle.
type Gateway struct {
	db *bun.DB
}

var _ contractx.Catalog = (*Gateway)(nil)

func NewGateway(db *bun.DB) (*Gateway, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil catalog db", contractx.ErrValidation)
	}
	return &Gateway{db: db}, nil
}

type scoredRow struct {
	partRow
	Score float64 `bun:"score"`
}

// SimilaritySearch runs an approximate nearest-neighbour pass over a bounded
// window of the whole collection, then keeps only rows from the requested
// partition. The window keeps recall stable even when one partition dominates
// the nearest neighbours.
func (g *Gateway) SimilaritySearch(ctx context.Context, vector []float32, partition statex.SupplierType, window, limit int) ([]statex.Candidate, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", contractx.ErrValidation)
	}
	if window <= 0 {
		window = 100
	}
	if limit <= 0 {
		limit = 5
	}

	query := pgvector.NewVector(vector)

	var rows []scoredRow
	err := g.db.NewRaw(
		`SELECT w.* FROM (
			SELECT p.*, 1 - (p.embedding <=> ?) AS score
			FROM catalog_parts AS p
			ORDER BY p.embedding <=> ?
			LIMIT ?
		) AS w
		WHERE w.supplier_type = ?
		ORDER BY w.score DESC
		LIMIT ?`,
		query, query, window, string(partition), limit,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", contractx.ErrCatalogQuery, err)
	}

	candidates := make([]statex.Candidate, 0, len(rows))
	for _, row := range rows {
		cand := row.candidate()
		cand.Score = row.Score
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// ExactMatch resolves a code within a partition. Scores stay at zero; the
// caller decides what an exact hit is worth.
func (g *Gateway) ExactMatch(ctx context.Context, code string, partition statex.SupplierType) ([]statex.Candidate, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	var rows []partRow
	err := g.db.NewSelect().
		Model(&rows).
		ExcludeColumn("embedding").
		Where("p.code = ?", code).
		Where("p.supplier_type = ?", string(partition)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: exact match: %v", contractx.ErrCatalogQuery, err)
	}

	candidates := make([]statex.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, row.candidate())
	}
	return candidates, nil
}

func (r partRow) candidate() statex.Candidate {
	return statex.Candidate{
		Code:           r.Code,
		Description:    r.Description,
		Brand:          r.Brand,
		Model:          r.Model,
		Category:       r.Category,
		SupplierType:   statex.SupplierType(r.SupplierType),
		SupplierName:   r.SupplierName,
		SupplierRating: r.SupplierRating,
		UnitCost:       r.UnitCost,
		Currency:       r.Currency,
		AvailableStock: r.AvailableStock,
		LeadTimeDays:   r.LeadTimeDays,
		MinOrderQty:    r.MinOrderQty,
		StockLocation:  r.StockLocation,
		Note:           r.Note,
	}
}
