package beancount

import (
	"strings"
	"unicode"
)

// AccountType is a top-level section of the chart of accounts.
type AccountType string

const (
	Assets      AccountType = "Assets"
	Liabilities AccountType = "Liabilities"
	Income      AccountType = "Income"
	Expenses    AccountType = "Expenses"
	Equity      AccountType = "Equity"
)

// Account is a hierarchical ledger account reference, rendered as
// Type:Currency:Entity[:SubAccount]. Two accounts are the same account iff
// their rendered names are equal ignoring case.
type Account struct {
	Type       AccountType
	Currency   string
	Entity     string
	SubAccount string
}

func (a Account) String() string {
	parts := []string{string(a.Type), strings.ToUpper(a.Currency), normalize(a.Entity)}
	if a.SubAccount != "" {
		parts = append(parts, normalize(a.SubAccount))
	}
	return strings.Join(parts, ":")
}

// Key is the case-insensitive identity of the account.
func (a Account) Key() string {
	return strings.ToLower(a.String())
}

// normalize strips spaces and capitalizes a name component, e.g.
// "monzo personal" -> "Monzopersonal".
func normalize(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
