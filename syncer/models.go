package syncer

import (
	"errors"
	"time"
)

// ErrDuplicate reports that an entity with the same id is already stored.
// It is the expected outcome of re-running a sync over an overlapping range
// and is never fatal.
var ErrDuplicate = errors.New("duplicate entity")

// PotTypeFlexibleSavings marks the account's primary savings pot, which is
// given special ledger treatment.
const PotTypeFlexibleSavings = "flexible_savings"

// Account is a bank account as reported by the remote API. Immutable once
// fetched.
type Account struct {
	ID            string
	Closed        bool
	Created       time.Time
	Description   string
	Currency      string
	OwnerType     string
	AccountNumber string
	SortCode      string
}

// Pot is a savings pocket nested under an account. Soft-deleted pots are
// retained in storage but excluded from ledger generation.
type Pot struct {
	ID        string
	AccountID string
	Name      string
	Balance   int64
	Currency  string
	Deleted   bool
	Type      string
}

type Merchant struct {
	ID       string
	Name     string
	Category string
}

type Category struct {
	ID   string
	Name string
}

// Transaction is a raw bank transaction. Amounts are signed minor units.
// A nil Settled time means the transaction is provisional; such records are
// filtered out before persistence.
type Transaction struct {
	ID            string
	AccountID     string
	Amount        int64
	Currency      string
	LocalAmount   int64
	LocalCurrency string
	Created       time.Time
	Description   string
	Notes         string
	Settled       *time.Time
	Updated       *time.Time
	Category      string
	Merchant      *Merchant
}

// LedgerRow is the denormalized transaction+account+merchant+category join
// read back for ledger export. Only settled transactions appear here.
type LedgerRow struct {
	ID            string
	Entity        string
	Amount        int64
	Currency      string
	LocalAmount   int64
	LocalCurrency string
	Created       time.Time
	Settled       time.Time
	Description   string
	Notes         string
	CategoryID    string
	CategoryName  string
	MerchantName  string
}
