package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"

	"github.com/monzobean/monzobean/monzo"
	"github.com/monzobean/monzobean/storage"
	"github.com/monzobean/monzobean/syncer"
)

type Config struct {
	Debug        bool           `env:"APP_DEBUG"`
	LedgerConfig string         `env:"LEDGER_CONFIG, default=beancount.yaml"`
	Storage      storage.Config `env:",prefix=DB_"`
	Monzo        monzo.Config   `env:",prefix=MONZO_"`
	Syncer       syncer.Config  `env:",prefix=SYNCER_"`
}

func ParseEnv(ctx context.Context) (Config, error) {
	cfg := Config{}
	return cfg, envconfig.Process(ctx, &cfg)
}
