package beancount

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/monzobean/monzobean/syncer"
)

// TransferInPrefix is the fixed description prefix the bank uses for money
// entering the account from outside.
const TransferInPrefix = "Monzo-"

// potIDPrefix starts every pot identifier the bank embeds in pot-transfer
// descriptions.
const potIDPrefix = "pot_"

const (
	categoryTransfers = "transfers"
	categorySavings   = "savings"
	savingsSubAccount = "Savings"
	incomeSubAccount  = "Income"
)

// PotFinder looks up pots referenced by transfer descriptions.
type PotFinder interface {
	FindPotByExternalID(ctx context.Context, id string) (*syncer.Pot, error)
}

// Resolver maps one settled transaction onto a balanced posting pair. It
// performs no mutation and yields identical output for identical input.
type Resolver struct {
	pots PotFinder
}

func NewResolver(pots PotFinder) *Resolver {
	return &Resolver{pots: pots}
}

// Resolve returns the transaction directive for row. The owning account's
// Assets posting carries the raw signed amount; the counter posting carries
// the negation, so the pair always balances. Classification only changes
// which account the counter posting targets.
func (r *Resolver) Resolve(ctx context.Context, row syncer.LedgerRow) (Transaction, error) {
	asset := Posting{
		Account:  Account{Type: Assets, Currency: row.Currency, Entity: row.Entity},
		Amount:   row.Amount,
		Currency: row.Currency,
	}

	counterAccount, err := r.counterAccount(ctx, row)
	if err != nil {
		return Transaction{}, err
	}
	counter := Posting{
		Account:  counterAccount,
		Amount:   -row.Amount,
		Currency: row.Currency,
	}

	date := row.Settled
	if date.IsZero() {
		date = row.Created
	}

	return Transaction{
		Date:     date,
		Notes:    notes(row),
		Postings: [2]Posting{asset, counter},
	}, nil
}

// counterAccount classifies the non-owning side of the posting pair.
// Overrides for the "transfers" category are mutually exclusive and applied
// in order: inbound transfer, pot transfer, Income fallback. The "savings"
// category always lands on the flexible-savings asset.
func (r *Resolver) counterAccount(ctx context.Context, row syncer.LedgerRow) (Account, error) {
	acc := Account{Currency: row.Currency, Entity: row.Entity}

	switch row.CategoryID {
	case categoryTransfers:
		if strings.HasPrefix(row.Description, TransferInPrefix) {
			acc.Type = Income
			acc.SubAccount = incomeSubAccount
			return acc, nil
		}
		if strings.HasPrefix(row.Description, potIDPrefix) {
			pot, err := r.pots.FindPotByExternalID(ctx, row.Description)
			if err != nil {
				return Account{}, fmt.Errorf("find pot %q: %w", row.Description, err)
			}
			acc.Type = Assets
			if pot != nil {
				acc.SubAccount = pot.Name
			} else {
				// Unknown pot: keep the raw identifier rather than failing.
				acc.SubAccount = row.Description
			}
			return acc, nil
		}
		acc.Type = Income
		acc.SubAccount = incomeSubAccount
		return acc, nil
	case categorySavings:
		acc.Type = Assets
		acc.SubAccount = savingsSubAccount
		return acc, nil
	default:
		acc.Type = Expenses
		acc.SubAccount = row.CategoryName
		return acc, nil
	}
}

// notes builds the transaction's human-readable note: merchant name when
// present, otherwise user notes, otherwise the raw description. A foreign
// local currency appends a formatted amount annotation; the posting amounts
// always stay in settlement-currency minor units.
func notes(row syncer.LedgerRow) string {
	n := row.MerchantName
	if n == "" {
		n = row.Notes
	}
	if n == "" {
		n = row.Description
	}
	if row.LocalCurrency != "" && !strings.EqualFold(row.LocalCurrency, row.Currency) {
		n = strings.TrimSpace(n + " " + localAmount(row))
	}
	return n
}

func localAmount(row syncer.LedgerRow) string {
	return fmt.Sprintf("(%s %s)", decimal.New(row.LocalAmount, -2).StringFixed(2), strings.ToUpper(row.LocalCurrency))
}
