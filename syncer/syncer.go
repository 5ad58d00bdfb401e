package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Syncer keeps local storage in sync by fetching accounts, pots and
// transactions from the remote banking API and inserting missing rows.
type Syncer struct {
	cfg           Config
	source        Source
	storage       Storage
	categoryNames map[string]string
	logger        *zap.Logger
}

// Source yields accounts, pots and transactions for the configured user.
type Source interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	ListPots(ctx context.Context, accountID string) ([]Pot, error)
	ListTransactions(ctx context.Context, accountID string, since, before time.Time) ([]Transaction, error)
}

// Storage persists synced entities. Save methods report a duplicate key by
// returning an error matching ErrDuplicate; callers treat that as success.
type Storage interface {
	SaveAccount(ctx context.Context, acc Account) error
	SavePot(ctx context.Context, pot Pot) error
	SaveMerchant(ctx context.Context, m Merchant) error
	SaveCategory(ctx context.Context, c Category) error
	SaveTransaction(ctx context.Context, tx Transaction) error
}

// nolint:lll
type Config struct {
	WindowDays   int `env:"WINDOW_DAYS, default=30"`   // Maximum span of one transactions request
	FetchWorkers int `env:"FETCH_WORKERS, default=1"`  // How many accounts to fetch concurrently; safe because every write is idempotent
}

// New builds a Syncer. categoryNames maps lowercased category codes to
// operator-supplied display names and may be nil.
func New(cfg Config, source Source, storage Storage, categoryNames map[string]string, logger *zap.Logger) *Syncer {
	return &Syncer{
		cfg:           cfg,
		source:        source,
		storage:       storage,
		categoryNames: categoryNames,
		logger:        logger,
	}
}

// Sync fetches everything in [since, before) and persists it. Re-running
// over an overlapping range leaves storage unchanged: every insert is keyed
// on the entity id and duplicates are skipped. Any network failure, and any
// storage failure other than a duplicate, aborts the run.
func (s *Syncer) Sync(ctx context.Context, since, before time.Time) error {
	accounts, err := s.source.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	if err := s.persistAccounts(ctx, accounts); err != nil {
		return err
	}

	for _, acc := range accounts {
		pots, err := s.source.ListPots(ctx, acc.ID)
		if err != nil {
			return fmt.Errorf("list pots for account %s: %w", acc.ID, err)
		}
		if err := s.persistPots(ctx, pots); err != nil {
			return err
		}
	}

	txs, err := s.fetchTransactions(ctx, accounts, since, before)
	if err != nil {
		return err
	}

	if err := s.persistCategories(ctx, txs); err != nil {
		return err
	}
	if err := s.persistTransactions(ctx, txs); err != nil {
		return err
	}

	s.logger.Info("sync complete",
		zap.Int("accounts", len(accounts)),
		zap.Int("transactions", len(txs)),
		zap.Time("since", since),
		zap.Time("before", before),
	)

	return nil
}

func (s *Syncer) persistAccounts(ctx context.Context, accounts []Account) error {
	for _, acc := range accounts {
		switch err := s.storage.SaveAccount(ctx, acc); {
		case err == nil:
			s.logger.Info("added account", zap.String("account_id", acc.ID))
		case errors.Is(err, ErrDuplicate):
			s.logger.Debug("account exists, skipping", zap.String("account_id", acc.ID))
		default:
			return fmt.Errorf("save account %s: %w", acc.ID, err)
		}
	}
	return nil
}

func (s *Syncer) persistPots(ctx context.Context, pots []Pot) error {
	for _, pot := range pots {
		switch err := s.storage.SavePot(ctx, pot); {
		case err == nil:
			s.logger.Info("added pot", zap.String("pot_id", pot.ID), zap.String("name", pot.Name))
		case errors.Is(err, ErrDuplicate):
			s.logger.Debug("pot exists, skipping", zap.String("pot_id", pot.ID))
		default:
			return fmt.Errorf("save pot %s: %w", pot.ID, err)
		}
	}
	return nil
}

func (s *Syncer) persistCategories(ctx context.Context, txs []Transaction) error {
	for _, tx := range txs {
		category := Category{
			ID:   tx.Category,
			Name: s.categoryName(tx.Category),
		}
		switch err := s.storage.SaveCategory(ctx, category); {
		case err == nil:
			s.logger.Info("added category", zap.String("category_id", category.ID))
		case errors.Is(err, ErrDuplicate):
		default:
			return fmt.Errorf("save category %s: %w", category.ID, err)
		}
	}
	return nil
}

// persistTransactions inserts each transaction, lazily inserting its
// merchant the first time one is referenced.
func (s *Syncer) persistTransactions(ctx context.Context, txs []Transaction) error {
	for _, tx := range txs {
		if tx.Merchant != nil {
			switch err := s.storage.SaveMerchant(ctx, *tx.Merchant); {
			case err == nil:
				s.logger.Info("added merchant", zap.String("merchant_id", tx.Merchant.ID))
			case errors.Is(err, ErrDuplicate):
			default:
				return fmt.Errorf("save merchant %s: %w", tx.Merchant.ID, err)
			}
		}

		switch err := s.storage.SaveTransaction(ctx, tx); {
		case err == nil:
			s.logger.Info("added transaction", zap.String("transaction_id", tx.ID))
		case errors.Is(err, ErrDuplicate):
			s.logger.Debug("transaction exists, skipping", zap.String("transaction_id", tx.ID))
		default:
			return fmt.Errorf("save transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}

// categoryName maps a bank category code through the operator override
// table, falling back to the raw code.
func (s *Syncer) categoryName(code string) string {
	if name, ok := s.categoryNames[normalizeCategoryKey(code)]; ok {
		return name
	}
	return code
}
