package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
)

// Settings are the ledger knobs the services read
type Settings struct {
	CounterName     string
	InvoicePrefix   string
	ReverseOnDelete bool
	DefaultPageSize int
	MaxPageSize     int
	IdempotencyTTL  time.Duration
}

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings() Settings {
	return Settings{
		CounterName:     ledger.DefaultOrderCounter,
		InvoicePrefix:   ledger.DefaultInvoicePrefix,
		ReverseOnDelete: true,
		DefaultPageSize: shared.DefaultPageSize,
		MaxPageSize:     shared.MaxPageSize,
		IdempotencyTTL:  shared.DefaultIdempotencyConfig().TTL,
	}
}

// SettingsFromConfig maps the ledger config section
func SettingsFromConfig(cfg config.LedgerConfig) Settings {
	return Settings{
		CounterName:     cfg.CounterName,
		InvoicePrefix:   cfg.InvoicePrefix,
		ReverseOnDelete: cfg.ReverseOnDelete,
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
		IdempotencyTTL:  cfg.IdempotencyTTL,
	}.withDefaults()
}

// withDefaults fills empty fields. ReverseOnDelete has no empty value and is kept.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.CounterName == "" {
		s.CounterName = d.CounterName
	}
	if s.InvoicePrefix == "" {
		s.InvoicePrefix = d.InvoicePrefix
	}
	if s.DefaultPageSize <= 0 {
		s.DefaultPageSize = d.DefaultPageSize
	}
	if s.MaxPageSize < s.DefaultPageSize {
		s.MaxPageSize = max(d.MaxPageSize, s.DefaultPageSize)
	}
	if s.IdempotencyTTL <= 0 {
		s.IdempotencyTTL = d.IdempotencyTTL
	}
	return s
}
