package syncer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// fetchTransactions fetches every account's transactions window by window,
// dropping zero-amount and unsettled records, and returns the merged result
// sorted by creation time. Accounts are fetched concurrently up to
// FetchWorkers; windows within one account stay chronological. The merge
// preserves arrival order for equal creation times.
func (s *Syncer) fetchTransactions(ctx context.Context, accounts []Account, since, before time.Time) ([]Transaction, error) {
	windows := Windows(since, before, s.cfg.WindowDays)

	perAccount := make([][]Transaction, len(accounts))

	p := pool.New().
		WithMaxGoroutines(s.cfg.FetchWorkers).
		WithErrors().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for i, acc := range accounts {
		i, acc := i, acc
		p.Go(func(ctx context.Context) error {
			for _, w := range windows {
				txs, err := s.source.ListTransactions(ctx, acc.ID, w.Since, w.Before)
				if err != nil {
					return fmt.Errorf("list transactions for account %s: %w", acc.ID, err)
				}

				s.logger.Info("fetched transactions",
					zap.String("account_id", acc.ID),
					zap.Time("since", w.Since),
					zap.Time("before", w.Before),
					zap.Int("count", len(txs)),
				)

				for _, tx := range txs {
					if tx.Amount == 0 || tx.Settled == nil {
						continue
					}
					perAccount[i] = append(perAccount[i], tx)
				}
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	var out []Transaction
	for _, txs := range perAccount {
		out = append(out, txs...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.Before(out[j].Created)
	})

	return out, nil
}

func normalizeCategoryKey(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
