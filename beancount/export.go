package beancount

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Render joins directives into the final ledger file text.
func Render(directives []Directive) string {
	parts := make([]string, len(directives))
	for i, d := range directives {
		parts[i] = d.FormattedString()
	}
	return strings.Join(parts, "\n") + "\n"
}

// Export builds the full ledger for [since, before) in memory and writes it
// to the configured path in a single operation, so a failed build never
// leaves a partial file behind.
func (b *Builder) Export(ctx context.Context, since, before time.Time) error {
	directives, err := b.Build(ctx, since, before)
	if err != nil {
		return err
	}

	text := Render(directives)
	if err := os.WriteFile(b.settings.LedgerFile, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}

	b.logger.Info("wrote ledger file",
		zap.String("path", b.settings.LedgerFile),
		zap.Int("bytes", len(text)),
	)
	return nil
}
