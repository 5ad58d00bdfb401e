package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/monzobean/monzobean/config"
	"github.com/monzobean/monzobean/monzo"
)

// runBalances prints every account's live balance, with its non-deleted
// pots, to the terminal.
func runBalances(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	client, err := monzo.NewClient(cfg.Monzo, logger)
	if err != nil {
		return err
	}

	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%44s\n", "BALANCES")
	fmt.Println(strings.Repeat("-", 44))

	var total int64
	var totalCurrency string
	for _, acc := range accounts {
		balance, err := client.Balance(ctx, acc.ID)
		if err != nil {
			return err
		}
		total += balance.Balance
		if totalCurrency == "" {
			totalCurrency = balance.Currency
		}

		fmt.Printf("%-8s (%s) : %11s %10s\n",
			acc.OwnerType, acc.AccountNumber,
			money(balance.Balance, balance.Currency), money(balance.SpendToday, balance.Currency))

		pots, err := client.ListPots(ctx, acc.ID)
		if err != nil {
			return err
		}
		for _, pot := range pots {
			if pot.Deleted {
				continue
			}
			total += pot.Balance
			fmt.Printf("- %-18s: %11s\n", strings.ToLower(pot.Name), money(pot.Balance, pot.Currency))
		}
	}

	fmt.Println(strings.Repeat("-", 44))
	fmt.Printf("Total: %26s\n", money(total, totalCurrency))
	return nil
}

func money(minor int64, currency string) string {
	return fmt.Sprintf("%s %s", decimal.New(minor, -2).StringFixed(2), strings.ToUpper(currency))
}
