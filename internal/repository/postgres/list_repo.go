package postgres

import (
	"context"
	"fmt"

	"github.com/banking/fraud-detection/internal/config"
	"github.com/banking/fraud-detection/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListRepository loads the risk lists from PostgreSQL at startup. The
// tables are maintained out of band by the compliance tooling; this
// service only ever reads them.
type ListRepository struct {
	pool *pgxpool.Pool
}

// NewListRepository creates a new risk-list repository
func NewListRepository(cfg config.DatabaseConfig) (*ListRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return &ListRepository{pool: pool}, nil
}

// LoadAddressEntries reads the flagged-address list.
func (r *ListRepository) LoadAddressEntries(ctx context.Context) ([]domain.AddressRiskEntry, error) {
	const query = `
		SELECT address, category, base_risk
		FROM address_risk_entries
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query address risk entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AddressRiskEntry
	for rows.Next() {
		var entry domain.AddressRiskEntry
		if err := rows.Scan(&entry.Address, &entry.Category, &entry.BaseRisk); err != nil {
			return nil, fmt.Errorf("failed to scan address risk entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read address risk entries: %w", err)
	}

	return entries, nil
}

// LoadJurisdictionEntries reads the jurisdiction list.
func (r *ListRepository) LoadJurisdictionEntries(ctx context.Context) ([]domain.JurisdictionEntry, error) {
	const query = `
		SELECT country_code, list_tier, risk_weight
		FROM jurisdiction_entries
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query jurisdiction entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.JurisdictionEntry
	for rows.Next() {
		var entry domain.JurisdictionEntry
		if err := rows.Scan(&entry.CountryCode, &entry.ListTier, &entry.RiskWeight); err != nil {
			return nil, fmt.Errorf("failed to scan jurisdiction entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jurisdiction entries: %w", err)
	}

	return entries, nil
}

// Close releases the connection pool.
func (r *ListRepository) Close() {
	r.pool.Close()
}
