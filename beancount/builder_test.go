package beancount

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/monzobean/monzobean/syncer"
)

type fakeStore struct {
	accounts []syncer.Account
	pots     []syncer.Pot
	rows     []syncer.LedgerRow
}

func (f *fakeStore) FindPotByExternalID(_ context.Context, id string) (*syncer.Pot, error) {
	for i := range f.pots {
		if f.pots[i].ID == id {
			return &f.pots[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindPotByType(_ context.Context, potType string) (*syncer.Pot, error) {
	for i := range f.pots {
		if f.pots[i].Type == potType && !f.pots[i].Deleted {
			return &f.pots[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ReadAccounts(context.Context) ([]syncer.Account, error) {
	return f.accounts, nil
}

func (f *fakeStore) ReadPots(context.Context) ([]syncer.Pot, error) {
	return f.pots, nil
}

func (f *fakeStore) ReadTransactionsForLedger(context.Context, time.Time, time.Time) ([]syncer.LedgerRow, error) {
	return f.rows, nil
}

func testSettings() Settings {
	return Settings{
		LedgerFile: "ledger.beancount",
		Start:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Equities:   []ConfigAccount{{Entity: "opening", Currency: "GBP"}},
		Income:     []ConfigAccount{{Entity: "employer", Currency: "GBP", SubAccount: "salary"}},
	}
}

func testStore() *fakeStore {
	return &fakeStore{
		accounts: []syncer.Account{
			{ID: "acc1", Currency: "GBP", OwnerType: "personal", Created: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		pots: []syncer.Pot{
			{ID: "pot_1", AccountID: "acc1", Name: "Holiday", Currency: "GBP"},
			{ID: "pot_2", AccountID: "acc1", Name: "Stash", Currency: "GBP", Type: syncer.PotTypeFlexibleSavings},
			{ID: "pot_3", AccountID: "acc1", Name: "Old", Currency: "GBP", Deleted: true},
		},
	}
}

func buildRange() (time.Time, time.Time) {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestBuildSectionOrder(t *testing.T) {
	t.Parallel()

	b := NewBuilder(testSettings(), testStore(), zap.NewNop())
	since, before := buildRange()

	directives, err := b.Build(context.Background(), since, before)
	require.NoError(t, err)

	var sections []string
	for _, d := range directives {
		if c, ok := d.(Comment); ok {
			sections = append(sections, c.Text)
		}
	}
	require.Equal(t, []string{"equities", "assets", "income", "expenses", "liabilities", "transactions"}, sections)
}

func TestBuildOpensDiscoveredAssets(t *testing.T) {
	t.Parallel()

	b := NewBuilder(testSettings(), testStore(), zap.NewNop())
	since, before := buildRange()

	directives, err := b.Build(context.Background(), since, before)
	require.NoError(t, err)

	opened := map[string]bool{}
	for _, d := range directives {
		if o, ok := d.(Open); ok {
			opened[o.Account.String()] = true
		}
	}

	require.True(t, opened["Assets:GBP:Personal"])
	require.True(t, opened["Assets:GBP:Personal:Holiday"])
	require.True(t, opened["Assets:GBP:Personal:Savings"], "flexible savings pot must open under the Savings subaccount")
	require.False(t, opened["Assets:GBP:Personal:Stash"])
	require.False(t, opened["Assets:GBP:Personal:Old"], "deleted pots are not opened")
	require.True(t, opened["Income:GBP:Employer:Salary"])
	require.True(t, opened["Equity:GBP:Opening"])
}

func TestBuildOpensReferencedAccounts(t *testing.T) {
	t.Parallel()

	store := testStore()
	created := time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)
	store.rows = []syncer.LedgerRow{
		{
			ID: "t1", Entity: "personal", Amount: -500, Currency: "GBP",
			Created: created, Settled: created.Add(time.Hour),
			CategoryID: "groceries", CategoryName: "groceries",
		},
		{
			ID: "t2", Entity: "personal", Amount: 150000, Currency: "GBP",
			Created: created.Add(2 * time.Hour), Settled: created.Add(3 * time.Hour),
			CategoryID: "transfers", Description: "Monzo-AB12CD",
		},
	}

	b := NewBuilder(testSettings(), store, zap.NewNop())
	since, before := buildRange()

	directives, err := b.Build(context.Background(), since, before)
	require.NoError(t, err)
	require.NoError(t, VerifyOpenBeforeUse(directives))

	text := Render(directives)
	require.Contains(t, text, "open Expenses:GBP:Personal:Groceries")
	require.Contains(t, text, "open Income:GBP:Personal:Income")
}

func TestBuildOrdersTransactionsByEarlierTimestamp(t *testing.T) {
	t.Parallel()

	store := testStore()
	day := func(d int) time.Time { return time.Date(2023, 5, d, 0, 0, 0, 0, time.UTC) }
	store.rows = []syncer.LedgerRow{
		// Created later but settled earliest, sorts first.
		{ID: "t1", Entity: "personal", Amount: -100, Currency: "GBP", Created: day(12), Settled: day(9), CategoryID: "groceries", CategoryName: "groceries"},
		{ID: "t2", Entity: "personal", Amount: -200, Currency: "GBP", Created: day(10), Settled: day(11), CategoryID: "groceries", CategoryName: "groceries"},
		{ID: "t3", Entity: "personal", Amount: -300, Currency: "GBP", Created: day(11), Settled: day(13), CategoryID: "groceries", CategoryName: "groceries"},
	}

	b := NewBuilder(testSettings(), store, zap.NewNop())
	since, before := buildRange()

	directives, err := b.Build(context.Background(), since, before)
	require.NoError(t, err)

	var amounts []int64
	for _, d := range directives {
		if tx, ok := d.(Transaction); ok {
			amounts = append(amounts, tx.Postings[0].Amount)
		}
	}
	require.Equal(t, []int64{-100, -200, -300}, amounts)
}

func TestVerifyOpenBeforeUse(t *testing.T) {
	t.Parallel()

	acc := Account{Type: Assets, Currency: "GBP", Entity: "Personal"}
	tx := Transaction{
		Date: testDate,
		Postings: [2]Posting{
			{Account: acc, Amount: -500, Currency: "GBP"},
			{Account: Account{Type: Expenses, Currency: "GBP", Entity: "Personal", SubAccount: "Groceries"}, Amount: 500, Currency: "GBP"},
		},
	}

	err := VerifyOpenBeforeUse([]Directive{tx})
	require.ErrorContains(t, err, "referenced before open")

	directives := []Directive{
		Open{Date: testDate, Account: acc},
		Open{Date: testDate, Account: tx.Postings[1].Account},
		tx,
	}
	require.NoError(t, VerifyOpenBeforeUse(directives))

	// Open after use still fails.
	err = VerifyOpenBeforeUse([]Directive{tx, Open{Date: testDate, Account: acc}})
	require.ErrorContains(t, err, "referenced before open")
}
