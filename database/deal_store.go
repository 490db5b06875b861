package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fenilmodi00/deals-backend/models"
	"github.com/sirupsen/logrus"
)

// DealStore persists the reported-deal snapshot in the deals table. It
// exposes exactly the two operations the update job needs: a full read and a
// full replace. Callers hold it behind a narrow interface so the rest of the
// system never sees the storage technology.
type DealStore struct {
	DB *sql.DB
}

func NewDealStore(db *sql.DB) *DealStore {
	return &DealStore{DB: db}
}

// ReadAll loads the previous snapshot keyed by (brand, model, spec, condition).
func (s *DealStore) ReadAll(ctx context.Context) (map[models.DealKey]models.ProductVariant, error) {
	query := `
		SELECT brand, model, spec, condition, color, stock, cash_price, rrp, link
		FROM deals
	`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read deal snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[models.DealKey]models.ProductVariant)
	for rows.Next() {
		var deal models.ProductVariant
		err := rows.Scan(
			&deal.Brand, &deal.Model, &deal.Spec, &deal.Condition,
			&deal.Color, &deal.Stock, &deal.CashPrice, &deal.RRP, &deal.Link,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal row: %w", err)
		}
		snapshot[deal.DealKey()] = deal
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deal rows: %w", err)
	}

	logrus.WithField("deals", len(snapshot)).Debug("Loaded previous deal snapshot")
	return snapshot, nil
}

// ReplaceAll rewrites the deals table with exactly the given set: drop then
// bulk insert inside one transaction, not an incremental upsert.
func (s *DealStore) ReplaceAll(ctx context.Context, deals []models.ProductVariant) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot rewrite: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM deals`); err != nil {
		return fmt.Errorf("failed to clear deal snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deals (brand, model, spec, condition, color, stock, cash_price, rrp, link, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, deal := range deals {
		_, err := stmt.ExecContext(ctx,
			deal.Brand, deal.Model, deal.Spec, deal.Condition,
			deal.Color, deal.Stock, deal.CashPrice, deal.RRP, deal.Link, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert deal %s %s: %w", deal.Brand, deal.Model, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot rewrite: %w", err)
	}

	logrus.WithField("deals", len(deals)).Info("Rewrote deal snapshot")
	return nil
}
