package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/monzobean/monzobean/syncer"
)

// SaveAccount inserts an account, returning syncer.ErrDuplicate if a row
// with the same id already exists.
func (s *Store) SaveAccount(ctx context.Context, acc syncer.Account) error {
	exists, err := s.exists(ctx, "accounts", acc.ID)
	if err != nil {
		return fmt.Errorf("check account %s: %w", acc.ID, err)
	}
	if exists {
		return fmt.Errorf("account %s: %w", acc.ID, syncer.ErrDuplicate)
	}

	q := s.sb.Insert("accounts").
		Columns("id", "closed", "created", "description", "currency", "owner_type", "account_number", "sort_code").
		Values(acc.ID, acc.Closed, acc.Created, acc.Description, acc.Currency, acc.OwnerType, acc.AccountNumber, acc.SortCode)
	if err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("insert account %s: %w", acc.ID, err)
	}

	s.logger.Debug("inserted account", zap.String("account_id", acc.ID))
	return nil
}

// SavePot inserts a pot, returning syncer.ErrDuplicate on an existing id.
func (s *Store) SavePot(ctx context.Context, pot syncer.Pot) error {
	exists, err := s.exists(ctx, "pots", pot.ID)
	if err != nil {
		return fmt.Errorf("check pot %s: %w", pot.ID, err)
	}
	if exists {
		return fmt.Errorf("pot %s: %w", pot.ID, syncer.ErrDuplicate)
	}

	q := s.sb.Insert("pots").
		Columns("id", "account_id", "name", "balance", "currency", "deleted", "pot_type").
		Values(pot.ID, pot.AccountID, pot.Name, pot.Balance, pot.Currency, pot.Deleted, pot.Type)
	if err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("insert pot %s: %w", pot.ID, err)
	}

	s.logger.Debug("inserted pot", zap.String("pot_id", pot.ID))
	return nil
}

// SaveMerchant inserts a merchant, returning syncer.ErrDuplicate on an
// existing id.
func (s *Store) SaveMerchant(ctx context.Context, m syncer.Merchant) error {
	exists, err := s.exists(ctx, "merchants", m.ID)
	if err != nil {
		return fmt.Errorf("check merchant %s: %w", m.ID, err)
	}
	if exists {
		return fmt.Errorf("merchant %s: %w", m.ID, syncer.ErrDuplicate)
	}

	q := s.sb.Insert("merchants").
		Columns("id", "name", "category").
		Values(m.ID, m.Name, m.Category)
	if err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("insert merchant %s: %w", m.ID, err)
	}

	s.logger.Debug("inserted merchant", zap.String("merchant_id", m.ID))
	return nil
}

// SaveCategory inserts a category, returning syncer.ErrDuplicate on an
// existing id.
func (s *Store) SaveCategory(ctx context.Context, c syncer.Category) error {
	exists, err := s.exists(ctx, "categories", c.ID)
	if err != nil {
		return fmt.Errorf("check category %s: %w", c.ID, err)
	}
	if exists {
		return fmt.Errorf("category %s: %w", c.ID, syncer.ErrDuplicate)
	}

	q := s.sb.Insert("categories").
		Columns("id", "name").
		Values(c.ID, c.Name)
	if err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("insert category %s: %w", c.ID, err)
	}
	return nil
}

// SaveTransaction inserts a transaction, returning syncer.ErrDuplicate on an
// existing id. The transaction id is the dedup key that makes re-runs
// idempotent.
func (s *Store) SaveTransaction(ctx context.Context, tx syncer.Transaction) error {
	exists, err := s.exists(ctx, "transactions", tx.ID)
	if err != nil {
		return fmt.Errorf("check transaction %s: %w", tx.ID, err)
	}
	if exists {
		return fmt.Errorf("transaction %s: %w", tx.ID, syncer.ErrDuplicate)
	}

	var merchantID any
	if tx.Merchant != nil {
		merchantID = tx.Merchant.ID
	}

	q := s.sb.Insert("transactions").
		Columns(
			"id", "account_id", "merchant_id", "amount", "currency",
			"local_amount", "local_currency", "created", "description",
			"notes", "settled", "updated", "category",
		).
		Values(
			tx.ID, tx.AccountID, merchantID, tx.Amount, tx.Currency,
			tx.LocalAmount, tx.LocalCurrency, tx.Created, tx.Description,
			tx.Notes, nullableTime(tx.Settled), nullableTime(tx.Updated), tx.Category,
		)
	if err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}

	s.logger.Debug("inserted transaction", zap.String("transaction_id", tx.ID))
	return nil
}

// Reset deletes all synced rows.
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{"transactions", "categories", "merchants", "pots", "accounts"} {
		q, args, err := s.sb.Delete(table).ToSql()
		if err != nil {
			return fmt.Errorf("build delete %s: %w", table, err)
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	s.logger.Info("storage reset")
	return nil
}

func (s *Store) exists(ctx context.Context, table, id string) (bool, error) {
	q, args, err := s.sb.Select("id").From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var got string
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&got)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

func (s *Store) exec(ctx context.Context, q sq.InsertBuilder) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
