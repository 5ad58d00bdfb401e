package beancount

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dateLayout          = "2006-01-02"
	openAccountWidth    = 40
	postingAccountWidth = 50
	amountWidth         = 10
)

// Directive is one logical block of the exported ledger file. Formatting is
// byte-stable: fixed column widths, no locale-dependent rendering.
type Directive interface {
	FormattedString() string
}

// Comment is a section marker, e.g. "* transactions".
type Comment struct {
	Text string
}

func (c Comment) FormattedString() string {
	return fmt.Sprintf("\n* %s\n", c.Text)
}

// Open declares an account before first use.
type Open struct {
	Date    time.Time
	Account Account
	Comment string
}

func (o Open) FormattedString() string {
	comment := ""
	if o.Comment != "" {
		comment = fmt.Sprintf("; %s.\n", o.Comment)
	}
	return fmt.Sprintf("%s%s open %-*s %s",
		comment, o.Date.Format(dateLayout), openAccountWidth, o.Account.String(), strings.ToUpper(o.Account.Currency))
}

// Close marks an account as closed from the given date.
type Close struct {
	Date    time.Time
	Account Account
	Comment string
}

func (c Close) FormattedString() string {
	comment := ""
	if c.Comment != "" {
		comment = fmt.Sprintf("; %s.\n", c.Comment)
	}
	return fmt.Sprintf("%s%s close %-*s",
		comment, c.Date.Format(dateLayout), openAccountWidth, c.Account.String())
}

// Balance asserts an account's balance on the given date.
type Balance struct {
	Date    time.Time
	Account Account
	Amount  int64
	Currency string
}

func (b Balance) FormattedString() string {
	return fmt.Sprintf("%s balance %-*s %*s %s",
		b.Date.Format(dateLayout), openAccountWidth, b.Account.String(),
		amountWidth, minorToMajor(b.Amount), strings.ToUpper(b.Currency))
}

// Posting is one leg of a double-entry transaction: an account plus a signed
// minor-unit amount.
type Posting struct {
	Account  Account
	Amount   int64
	Currency string
}

func (p Posting) formattedString() string {
	return fmt.Sprintf("  %-*s %*s %s",
		postingAccountWidth, p.Account.String(),
		amountWidth, minorToMajor(p.Amount), strings.ToUpper(p.Currency))
}

// Transaction is a dated pair of postings whose amounts sum to zero.
type Transaction struct {
	Date     time.Time
	Comment  string
	Notes    string
	Postings [2]Posting
}

func (t Transaction) FormattedString() string {
	comment := ""
	if t.Comment != "" {
		comment = fmt.Sprintf("; %s\n", t.Comment)
	}
	return fmt.Sprintf("%s%s * %q\n%s\n%s\n",
		comment, t.Date.Format(dateLayout), t.Notes,
		t.Postings[0].formattedString(), t.Postings[1].formattedString())
}

// Balanced reports whether the two posting amounts cancel out.
func (t Transaction) Balanced() bool {
	return t.Postings[0].Amount+t.Postings[1].Amount == 0
}

// minorToMajor renders signed minor units as a fixed two-decimal amount,
// e.g. -500 -> "-5.00".
func minorToMajor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
