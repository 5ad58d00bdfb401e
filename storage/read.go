package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/monzobean/monzobean/syncer"
)

// ReadAccounts returns every stored account.
func (s *Store) ReadAccounts(ctx context.Context) ([]syncer.Account, error) {
	q, args, err := s.sb.
		Select("id", "closed", "created", "description", "currency", "owner_type", "account_number", "sort_code").
		From("accounts").
		OrderBy("created ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	defer rows.Close()

	var accounts []syncer.Account
	for rows.Next() {
		var acc syncer.Account
		if err := rows.Scan(
			&acc.ID, &acc.Closed, &acc.Created, &acc.Description,
			&acc.Currency, &acc.OwnerType, &acc.AccountNumber, &acc.SortCode,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// ReadPots returns every stored pot, deleted ones included.
func (s *Store) ReadPots(ctx context.Context) ([]syncer.Pot, error) {
	q, args, err := s.potQuery().OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("read pots: %w", err)
	}
	defer rows.Close()

	var pots []syncer.Pot
	for rows.Next() {
		pot, err := scanPot(rows)
		if err != nil {
			return nil, err
		}
		pots = append(pots, pot)
	}
	return pots, rows.Err()
}

// FindPotByExternalID looks up a pot by the identifier the bank embeds in
// transfer descriptions. A miss returns (nil, nil).
func (s *Store) FindPotByExternalID(ctx context.Context, id string) (*syncer.Pot, error) {
	return s.findPot(ctx, sq.Eq{"id": id})
}

// FindPotByType returns the first pot carrying the given type tag, or
// (nil, nil) when none is stored.
func (s *Store) FindPotByType(ctx context.Context, potType string) (*syncer.Pot, error) {
	return s.findPot(ctx, sq.Eq{"pot_type": potType})
}

func (s *Store) findPot(ctx context.Context, where sq.Eq) (*syncer.Pot, error) {
	q, args, err := s.potQuery().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	pot, err := scanPot(s.db.QueryRowContext(ctx, q, args...))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return &pot, nil
	}
}

func (s *Store) potQuery() sq.SelectBuilder {
	return s.sb.
		Select("id", "account_id", "name", "balance", "currency", "deleted", "pot_type").
		From("pots")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPot(row scanner) (syncer.Pot, error) {
	var pot syncer.Pot
	if err := row.Scan(&pot.ID, &pot.AccountID, &pot.Name, &pot.Balance, &pot.Currency, &pot.Deleted, &pot.Type); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return syncer.Pot{}, err
		}
		return syncer.Pot{}, fmt.Errorf("scan pot: %w", err)
	}
	return pot, nil
}

// ReadTransactionsForLedger returns the settled transactions created in
// [since, before) joined with their account, merchant and category rows,
// ordered by creation time.
func (s *Store) ReadTransactionsForLedger(ctx context.Context, since, before time.Time) ([]syncer.LedgerRow, error) {
	q, args, err := s.sb.
		Select(
			"t.id", "a.owner_type", "t.amount", "t.currency",
			"t.local_amount", "t.local_currency", "t.created", "t.settled",
			"t.description", "t.notes", "t.category",
			"COALESCE(c.name, t.category)", "COALESCE(m.name, '')",
		).
		From("transactions t").
		Join("accounts a ON a.id = t.account_id").
		LeftJoin("merchants m ON m.id = t.merchant_id").
		LeftJoin("categories c ON c.id = t.category").
		Where(sq.And{
			sq.GtOrEq{"t.created": since},
			sq.Lt{"t.created": before},
			sq.NotEq{"t.settled": nil},
		}).
		OrderBy("t.created ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("read ledger transactions: %w", err)
	}
	defer rows.Close()

	var out []syncer.LedgerRow
	for rows.Next() {
		var row syncer.LedgerRow
		if err := rows.Scan(
			&row.ID, &row.Entity, &row.Amount, &row.Currency,
			&row.LocalAmount, &row.LocalCurrency, &row.Created, &row.Settled,
			&row.Description, &row.Notes, &row.CategoryID,
			&row.CategoryName, &row.MerchantName,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
