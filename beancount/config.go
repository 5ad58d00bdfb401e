package beancount

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ConfigAccount is one declared chart-of-accounts entry.
type ConfigAccount struct {
	Entity     string `mapstructure:"entity"`
	Currency   string `mapstructure:"currency"`
	SubAccount string `mapstructure:"subaccount"`
}

// Account binds the declaration to its section type.
func (c ConfigAccount) Account(t AccountType) Account {
	return Account{Type: t, Currency: c.Currency, Entity: c.Entity, SubAccount: c.SubAccount}
}

// Settings is the declarative ledger configuration: output path, opening
// date, chart of accounts and category-name overrides. It is loaded once at
// startup and passed explicitly to everything that needs it.
type Settings struct {
	LedgerFile       string            `mapstructure:"ledger_file"`
	StartDate        string            `mapstructure:"start_date"`
	CustomCategories map[string]string `mapstructure:"custom_categories"`
	Assets           []ConfigAccount   `mapstructure:"assets"`
	Liabilities      []ConfigAccount   `mapstructure:"liabilities"`
	Income           []ConfigAccount   `mapstructure:"income"`
	Expenses         []ConfigAccount   `mapstructure:"expenses"`
	Equities         []ConfigAccount   `mapstructure:"equities"`

	// Start is StartDate parsed; populated by LoadSettings.
	Start time.Time `mapstructure:"-"`
}

// LoadSettings reads and validates the ledger configuration file. A missing
// or malformed file is a fatal startup error.
func LoadSettings(path string) (Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Settings{}, fmt.Errorf("read ledger config %s: %w", path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("parse ledger config %s: %w", path, err)
	}

	if s.LedgerFile == "" {
		return Settings{}, errors.New("ledger config: ledger_file is required")
	}
	if s.StartDate == "" {
		return Settings{}, errors.New("ledger config: start_date is required")
	}
	start, err := time.Parse(dateLayout, s.StartDate)
	if err != nil {
		return Settings{}, fmt.Errorf("ledger config: parse start_date %q: %w", s.StartDate, err)
	}
	s.Start = start

	for _, section := range [][]ConfigAccount{s.Assets, s.Liabilities, s.Income, s.Expenses, s.Equities} {
		for _, acc := range section {
			if acc.Entity == "" || acc.Currency == "" {
				return Settings{}, fmt.Errorf("ledger config: account %+v needs entity and currency", acc)
			}
		}
	}

	return s, nil
}
