package beancount

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/monzobean/monzobean/syncer"
)

// Store is the read surface the builder needs from persistence.
type Store interface {
	PotFinder
	ReadAccounts(ctx context.Context) ([]syncer.Account, error)
	ReadPots(ctx context.Context) ([]syncer.Pot, error)
	FindPotByType(ctx context.Context, potType string) (*syncer.Pot, error)
	ReadTransactionsForLedger(ctx context.Context, since, before time.Time) ([]syncer.LedgerRow, error)
}

// Builder assembles the full directive sequence for a date range: section
// comments and open directives in chart-of-accounts order, followed by
// transaction directives.
type Builder struct {
	settings Settings
	store    Store
	resolver *Resolver
	logger   *zap.Logger
}

func NewBuilder(settings Settings, store Store, logger *zap.Logger) *Builder {
	return &Builder{
		settings: settings,
		store:    store,
		resolver: NewResolver(store),
		logger:   logger,
	}
}

// Build produces the directive sequence for transactions created in
// [since, before). Every account referenced by a posting is guaranteed to be
// opened by an earlier directive; that invariant is verified before
// returning.
func (b *Builder) Build(ctx context.Context, since, before time.Time) ([]Directive, error) {
	rows, err := b.store.ReadTransactionsForLedger(ctx, since, before)
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}

	transactions, err := b.resolveAll(ctx, rows)
	if err != nil {
		return nil, err
	}

	directives, err := b.openDirectives(ctx, transactions)
	if err != nil {
		return nil, err
	}

	directives = append(directives, Comment{Text: "transactions"})
	for _, tx := range transactions {
		directives = append(directives, tx)
	}

	if err := VerifyOpenBeforeUse(directives); err != nil {
		return nil, err
	}

	b.logger.Info("built ledger",
		zap.Int("transactions", len(transactions)),
		zap.Int("directives", len(directives)),
	)
	return directives, nil
}

// resolveAll maps rows to transaction directives ordered by the earlier of
// creation and settlement time, rejecting any unbalanced pair.
func (b *Builder) resolveAll(ctx context.Context, rows []syncer.LedgerRow) ([]Transaction, error) {
	type keyed struct {
		key time.Time
		tx  Transaction
	}

	keyedTxs := make([]keyed, 0, len(rows))
	for _, row := range rows {
		tx, err := b.resolver.Resolve(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("resolve transaction %s: %w", row.ID, err)
		}
		if !tx.Balanced() {
			return nil, fmt.Errorf("transaction %s: postings do not balance", row.ID)
		}

		key := row.Created
		if !row.Settled.IsZero() && row.Settled.Before(key) {
			key = row.Settled
		}
		keyedTxs = append(keyedTxs, keyed{key: key, tx: tx})
	}

	sort.SliceStable(keyedTxs, func(i, j int) bool {
		return keyedTxs[i].key.Before(keyedTxs[j].key)
	})

	out := make([]Transaction, len(keyedTxs))
	for i, k := range keyedTxs {
		out[i] = k.tx
	}
	return out, nil
}

// openDirectives emits the section comments and open directives: configured
// accounts first in configuration order, then accounts and pots discovered
// from storage, then any account a posting references that is still
// unopened.
func (b *Builder) openDirectives(ctx context.Context, transactions []Transaction) ([]Directive, error) {
	referenced := referencedAccounts(transactions)
	opened := map[string]bool{}

	open := func(list []Directive, acc Account) []Directive {
		if opened[acc.Key()] {
			return list
		}
		opened[acc.Key()] = true
		return append(list, Open{Date: b.settings.Start, Account: acc})
	}

	section := func(name string, t AccountType, configured []ConfigAccount, discovered []Account) []Directive {
		list := []Directive{Comment{Text: name}}
		for _, c := range configured {
			list = open(list, c.Account(t))
		}
		for _, acc := range discovered {
			list = open(list, acc)
		}
		for _, acc := range referenced[t] {
			list = open(list, acc)
		}
		return list
	}

	discoveredAssets, err := b.discoverAssets(ctx)
	if err != nil {
		return nil, err
	}

	var directives []Directive
	directives = append(directives, section("equities", Equity, b.settings.Equities, nil)...)
	directives = append(directives, section("assets", Assets, b.settings.Assets, discoveredAssets)...)
	directives = append(directives, section("income", Income, b.settings.Income, nil)...)
	directives = append(directives, section("expenses", Expenses, b.settings.Expenses, nil)...)
	directives = append(directives, section("liabilities", Liabilities, b.settings.Liabilities, nil)...)
	return directives, nil
}

// discoverAssets derives asset accounts from stored bank accounts and their
// non-deleted pots. The flexible-savings pot opens under the fixed Savings
// subaccount so that savings-category postings land on it.
func (b *Builder) discoverAssets(ctx context.Context) ([]Account, error) {
	accounts, err := b.store.ReadAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	pots, err := b.store.ReadPots(ctx)
	if err != nil {
		return nil, fmt.Errorf("read pots: %w", err)
	}
	savingsPot, err := b.store.FindPotByType(ctx, syncer.PotTypeFlexibleSavings)
	if err != nil {
		return nil, fmt.Errorf("find savings pot: %w", err)
	}

	entities := make(map[string]string, len(accounts))
	out := make([]Account, 0, len(accounts)+len(pots))
	for _, acc := range accounts {
		entities[acc.ID] = acc.OwnerType
		out = append(out, Account{Type: Assets, Currency: acc.Currency, Entity: acc.OwnerType})
	}

	for _, pot := range pots {
		if pot.Deleted {
			continue
		}
		entity, ok := entities[pot.AccountID]
		if !ok {
			entity = pot.AccountID
		}
		sub := pot.Name
		if savingsPot != nil && pot.ID == savingsPot.ID {
			sub = savingsSubAccount
		}
		out = append(out, Account{Type: Assets, Currency: pot.Currency, Entity: entity, SubAccount: sub})
	}
	return out, nil
}

// referencedAccounts collects, per section type, the accounts used by
// postings in first-reference order.
func referencedAccounts(transactions []Transaction) map[AccountType][]Account {
	seen := map[string]bool{}
	out := map[AccountType][]Account{}
	for _, tx := range transactions {
		for _, p := range tx.Postings {
			if seen[p.Account.Key()] {
				continue
			}
			seen[p.Account.Key()] = true
			out[p.Account.Type] = append(out[p.Account.Type], p.Account)
		}
	}
	return out
}

// VerifyOpenBeforeUse checks the global post-condition that every posting's
// account appears in an earlier Open directive.
func VerifyOpenBeforeUse(directives []Directive) error {
	opened := map[string]bool{}
	for _, d := range directives {
		switch d := d.(type) {
		case Open:
			opened[d.Account.Key()] = true
		case Transaction:
			for _, p := range d.Postings {
				if !opened[p.Account.Key()] {
					return fmt.Errorf("account %s referenced before open", p.Account)
				}
			}
		}
	}
	return nil
}
