package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/ledgerbridge/internal/config"
	"gorm.io/gorm"
)

// Service resolves the accounting configuration a payment is posted under.
type Service interface {
	// Resolve returns the (period, accounts) tuple containing paymentDate.
	// A cache hit performs zero upstream calls; a miss amortizes the
	// period and account lookups for the rest of the period.
	Resolve(ctx context.Context, tenant config.Tenant, paymentDate time.Time) (Config, error)
}

// Repository persists resolved accounting configs.
type Repository interface {
	// FindByDate returns the cached config whose validity interval
	// contains ts, or nil when none is cached.
	FindByDate(ctx context.Context, db *gorm.DB, tenant string, digest string, ts time.Time) (*Config, error)
	// Insert persists a resolved config. A duplicate key is not an error:
	// a concurrent request resolved the same period, and both computed
	// identical values.
	Insert(ctx context.Context, db *gorm.DB, cfg *Config) error
}

var (
	// ErrPeriodNotFound means no period interval contains the payment
	// date. Periods are provisioned administratively, so this clears on a
	// day-scale retry.
	ErrPeriodNotFound = errors.New("accounting_period_not_found")

	// ErrAccountNotFound and ErrAccountAmbiguous are configuration errors:
	// a template must resolve to exactly one account per period.
	ErrAccountNotFound  = errors.New("account_not_found")
	ErrAccountAmbiguous = errors.New("account_ambiguous")
)
