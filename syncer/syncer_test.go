package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	accounts     []Account
	pots         map[string][]Pot
	transactions map[string][]Transaction
	txErr        error
}

func (f *fakeSource) ListAccounts(context.Context) ([]Account, error) {
	return f.accounts, nil
}

func (f *fakeSource) ListPots(_ context.Context, accountID string) ([]Pot, error) {
	return f.pots[accountID], nil
}

func (f *fakeSource) ListTransactions(_ context.Context, accountID string, since, before time.Time) ([]Transaction, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	var out []Transaction
	for _, tx := range f.transactions[accountID] {
		if !tx.Created.Before(since) && tx.Created.Before(before) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// memStorage mimics real persistence semantics: first insert wins, repeats
// return ErrDuplicate.
type memStorage struct {
	accounts     map[string]Account
	pots         map[string]Pot
	merchants    map[string]Merchant
	categories   map[string]Category
	transactions map[string]Transaction
	txOrder      []string
	saveErr      error
}

func newMemStorage() *memStorage {
	return &memStorage{
		accounts:     map[string]Account{},
		pots:         map[string]Pot{},
		merchants:    map[string]Merchant{},
		categories:   map[string]Category{},
		transactions: map[string]Transaction{},
	}
}

func (m *memStorage) SaveAccount(_ context.Context, acc Account) error {
	if _, ok := m.accounts[acc.ID]; ok {
		return ErrDuplicate
	}
	m.accounts[acc.ID] = acc
	return nil
}

func (m *memStorage) SavePot(_ context.Context, pot Pot) error {
	if _, ok := m.pots[pot.ID]; ok {
		return ErrDuplicate
	}
	m.pots[pot.ID] = pot
	return nil
}

func (m *memStorage) SaveMerchant(_ context.Context, mer Merchant) error {
	if _, ok := m.merchants[mer.ID]; ok {
		return ErrDuplicate
	}
	m.merchants[mer.ID] = mer
	return nil
}

func (m *memStorage) SaveCategory(_ context.Context, c Category) error {
	if _, ok := m.categories[c.ID]; ok {
		return ErrDuplicate
	}
	m.categories[c.ID] = c
	return nil
}

func (m *memStorage) SaveTransaction(_ context.Context, tx Transaction) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.transactions[tx.ID]; ok {
		return ErrDuplicate
	}
	m.transactions[tx.ID] = tx
	m.txOrder = append(m.txOrder, tx.ID)
	return nil
}

func settledAt(ts time.Time) *time.Time { return &ts }

func testTransaction(id, accountID string, amount int64, created time.Time) Transaction {
	return Transaction{
		ID:        id,
		AccountID: accountID,
		Amount:    amount,
		Currency:  "GBP",
		Created:   created,
		Category:  "groceries",
		Settled:   settledAt(created.Add(time.Hour)),
	}
}

func TestSyncPersistsEverything(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{
		accounts: []Account{{ID: "acc1", Currency: "GBP", OwnerType: "personal"}},
		pots: map[string][]Pot{
			"acc1": {{ID: "pot_1", AccountID: "acc1", Name: "Holiday", Currency: "GBP"}},
		},
		transactions: map[string][]Transaction{
			"acc1": {
				testTransaction("t1", "acc1", -500, base),
				testTransaction("t2", "acc1", -250, base.Add(24*time.Hour)),
			},
		},
	}
	store := newMemStorage()

	s := New(Config{WindowDays: 30, FetchWorkers: 2}, source, store, nil, zap.NewNop())
	require.NoError(t, s.Sync(context.Background(), base, base.AddDate(0, 0, 60)))

	require.Len(t, store.accounts, 1)
	require.Len(t, store.pots, 1)
	require.Len(t, store.transactions, 2)
	require.Contains(t, store.categories, "groceries")
}

func TestSyncIsIdempotent(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{
		accounts: []Account{{ID: "acc1"}},
		transactions: map[string][]Transaction{
			"acc1": {testTransaction("t1", "acc1", -500, base)},
		},
	}
	store := newMemStorage()
	s := New(Config{WindowDays: 30, FetchWorkers: 1}, source, store, nil, zap.NewNop())

	since, before := base, base.AddDate(0, 0, 30)
	require.NoError(t, s.Sync(context.Background(), since, before))
	require.NoError(t, s.Sync(context.Background(), since, before))

	require.Len(t, store.transactions, 1)
	require.Len(t, store.accounts, 1)
}

func TestSyncSkipsZeroAmountAndUnsettled(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	unsettled := testTransaction("t2", "acc1", -100, base)
	unsettled.Settled = nil
	zero := testTransaction("t3", "acc1", 0, base)

	source := &fakeSource{
		accounts: []Account{{ID: "acc1"}},
		transactions: map[string][]Transaction{
			"acc1": {testTransaction("t1", "acc1", -500, base), unsettled, zero},
		},
	}
	store := newMemStorage()
	s := New(Config{WindowDays: 30, FetchWorkers: 1}, source, store, nil, zap.NewNop())

	require.NoError(t, s.Sync(context.Background(), base, base.AddDate(0, 0, 30)))
	require.Len(t, store.transactions, 1)
	require.Contains(t, store.transactions, "t1")
}

func TestSyncMergesAccountsInCreationOrder(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{
		accounts: []Account{{ID: "acc1"}, {ID: "acc2"}},
		transactions: map[string][]Transaction{
			"acc1": {testTransaction("t1", "acc1", -500, base.Add(48*time.Hour))},
			"acc2": {
				testTransaction("t2", "acc2", -100, base),
				testTransaction("t3", "acc2", -200, base.Add(72*time.Hour)),
			},
		},
	}
	store := newMemStorage()
	s := New(Config{WindowDays: 30, FetchWorkers: 2}, source, store, nil, zap.NewNop())

	require.NoError(t, s.Sync(context.Background(), base, base.AddDate(0, 0, 30)))
	require.Equal(t, []string{"t2", "t1", "t3"}, store.txOrder)
}

func TestSyncPropagatesFetchError(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		accounts: []Account{{ID: "acc1"}},
		txErr:    errors.New("rate limited"),
	}
	s := New(Config{WindowDays: 30, FetchWorkers: 1}, source, newMemStorage(), nil, zap.NewNop())

	err := s.Sync(context.Background(), time.Now().AddDate(0, 0, -10), time.Now())
	require.ErrorContains(t, err, "rate limited")
}

func TestSyncPropagatesStorageError(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{
		accounts: []Account{{ID: "acc1"}},
		transactions: map[string][]Transaction{
			"acc1": {testTransaction("t1", "acc1", -500, base)},
		},
	}
	store := newMemStorage()
	store.saveErr = errors.New("disk full")
	s := New(Config{WindowDays: 30, FetchWorkers: 1}, source, store, nil, zap.NewNop())

	err := s.Sync(context.Background(), base, base.AddDate(0, 0, 30))
	require.ErrorContains(t, err, "disk full")
}

func TestSyncAppliesCategoryOverrides(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	tx := testTransaction("t1", "acc1", -500, base)
	tx.Category = "eating_out"

	source := &fakeSource{
		accounts:     []Account{{ID: "acc1"}},
		transactions: map[string][]Transaction{"acc1": {tx}},
	}
	store := newMemStorage()
	overrides := map[string]string{"eating_out": "Restaurants"}
	s := New(Config{WindowDays: 30, FetchWorkers: 1}, source, store, overrides, zap.NewNop())

	require.NoError(t, s.Sync(context.Background(), base, base.AddDate(0, 0, 30)))
	require.Equal(t, "Restaurants", store.categories["eating_out"].Name)
}
