package monzo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/monzobean/monzobean/syncer"
)

type accountsResponse struct {
	Accounts []accountResponse `json:"accounts"`
}

type accountResponse struct {
	ID            string    `json:"id"`
	Closed        bool      `json:"closed"`
	Created       time.Time `json:"created"`
	Description   string    `json:"description"`
	Currency      string    `json:"currency"`
	OwnerType     string    `json:"owner_type"`
	AccountNumber string    `json:"account_number"`
	SortCode      string    `json:"sort_code"`
}

// ListAccounts returns the user's accounts.
func (c *Client) ListAccounts(ctx context.Context) ([]syncer.Account, error) {
	var resp accountsResponse
	if err := c.get(ctx, "accounts", nil, &resp); err != nil {
		return nil, err
	}

	accounts := make([]syncer.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		accounts = append(accounts, syncer.Account{
			ID:            a.ID,
			Closed:        a.Closed,
			Created:       a.Created,
			Description:   a.Description,
			Currency:      a.Currency,
			OwnerType:     a.OwnerType,
			AccountNumber: a.AccountNumber,
			SortCode:      a.SortCode,
		})
	}
	return accounts, nil
}

type potsResponse struct {
	Pots []potResponse `json:"pots"`
}

type potResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
	Deleted  bool   `json:"deleted"`
	Type     string `json:"type"`
}

// ListPots returns the pots nested under the given account.
func (c *Client) ListPots(ctx context.Context, accountID string) ([]syncer.Pot, error) {
	q := url.Values{"current_account_id": {accountID}}
	var resp potsResponse
	if err := c.get(ctx, "pots", q, &resp); err != nil {
		return nil, err
	}

	pots := make([]syncer.Pot, 0, len(resp.Pots))
	for _, p := range resp.Pots {
		pots = append(pots, syncer.Pot{
			ID:        p.ID,
			AccountID: accountID,
			Name:      p.Name,
			Balance:   p.Balance,
			Currency:  p.Currency,
			Deleted:   p.Deleted,
			Type:      p.Type,
		})
	}
	return pots, nil
}

type transactionsResponse struct {
	Transactions []transactionResponse `json:"transactions"`
}

type transactionResponse struct {
	ID            string            `json:"id"`
	AccountID     string            `json:"account_id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	LocalAmount   int64             `json:"local_amount"`
	LocalCurrency string            `json:"local_currency"`
	Created       time.Time         `json:"created"`
	Description   string            `json:"description"`
	Notes         string            `json:"notes"`
	Settled       string            `json:"settled"`
	Updated       string            `json:"updated"`
	Category      string            `json:"category"`
	Merchant      *merchantResponse `json:"merchant"`
}

type merchantResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ListTransactions returns the account's transactions created in
// [since, before), with merchants expanded. The window must respect the
// API's span limit; the caller is responsible for windowing.
func (c *Client) ListTransactions(ctx context.Context, accountID string, since, before time.Time) ([]syncer.Transaction, error) {
	q := url.Values{}
	q.Set("account_id", accountID)
	q.Set("since", since.UTC().Format(time.RFC3339))
	q.Set("before", before.UTC().Format(time.RFC3339))
	q.Set("limit", strconv.Itoa(c.cfg.TransactionLimit))
	q.Add("expand[]", "merchant")

	var resp transactionsResponse
	if err := c.get(ctx, "transactions", q, &resp); err != nil {
		return nil, err
	}

	txs := make([]syncer.Transaction, 0, len(resp.Transactions))
	for _, t := range resp.Transactions {
		settled, err := parseOptionalTime(t.Settled)
		if err != nil {
			return nil, fmt.Errorf("transaction %s settled: %w", t.ID, err)
		}
		updated, err := parseOptionalTime(t.Updated)
		if err != nil {
			return nil, fmt.Errorf("transaction %s updated: %w", t.ID, err)
		}

		var merchant *syncer.Merchant
		if t.Merchant != nil {
			merchant = &syncer.Merchant{
				ID:       t.Merchant.ID,
				Name:     t.Merchant.Name,
				Category: t.Merchant.Category,
			}
		}

		txs = append(txs, syncer.Transaction{
			ID:            t.ID,
			AccountID:     t.AccountID,
			Amount:        t.Amount,
			Currency:      t.Currency,
			LocalAmount:   t.LocalAmount,
			LocalCurrency: t.LocalCurrency,
			Created:       t.Created,
			Description:   t.Description,
			Notes:         t.Notes,
			Settled:       settled,
			Updated:       updated,
			Category:      t.Category,
			Merchant:      merchant,
		})
	}
	return txs, nil
}

// AccountBalance is the live balance of one account.
type AccountBalance struct {
	Balance      int64  `json:"balance"`
	TotalBalance int64  `json:"total_balance"`
	Currency     string `json:"currency"`
	SpendToday   int64  `json:"spend_today"`
}

// Balance returns the account's current balance.
func (c *Client) Balance(ctx context.Context, accountID string) (AccountBalance, error) {
	q := url.Values{"account_id": {accountID}}
	var resp AccountBalance
	if err := c.get(ctx, "balance", q, &resp); err != nil {
		return AccountBalance{}, err
	}
	return resp, nil
}

// Identity describes the authenticated user.
type Identity struct {
	Authenticated bool   `json:"authenticated"`
	ClientID      string `json:"client_id"`
	UserID        string `json:"user_id"`
}

// WhoAmI checks whether the stored token is still valid.
func (c *Client) WhoAmI(ctx context.Context) (Identity, error) {
	var resp Identity
	if err := c.get(ctx, "ping/whoami", nil, &resp); err != nil {
		return Identity{}, err
	}
	return resp, nil
}
