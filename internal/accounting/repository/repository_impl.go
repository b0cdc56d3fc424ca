package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/ledgerbridge/internal/accounting/domain"
	"github.com/smallbiznis/ledgerbridge/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByDate(ctx context.Context, gdb *gorm.DB, tenant string, digest string, ts time.Time) (*domain.Config, error) {
	var item domain.Config
	err := gdb.WithContext(ctx).Raw(
		`SELECT id, tenant, period_id, template_digest, valid_from, valid_to,
			donation_account_id, debtor_account_id, bank_account_id, created_at
		 FROM accounting_configs
		 WHERE tenant = ? AND template_digest = ? AND valid_from <= ? AND valid_to >= ?
		 LIMIT 1`,
		tenant,
		digest,
		ts,
		ts,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, gdb *gorm.DB, cfg *domain.Config) error {
	err := gdb.WithContext(ctx).Create(cfg).Error
	if db.IsDuplicateKeyErr(err) {
		// lost the race against another delivery; the winner persisted
		// the same deterministic values
		return nil
	}
	return err
}
