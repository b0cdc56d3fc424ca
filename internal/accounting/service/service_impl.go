package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerbridge/internal/accounting/domain"
	"github.com/smallbiznis/ledgerbridge/internal/config"
	ledgerdomain "github.com/smallbiznis/ledgerbridge/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Ledger ledgerdomain.Client
	Repo   domain.Repository
}

// Service resolves and caches the accounting configuration per period. The
// mapping from (period, templates) to accounts is deterministic, so a cached
// row is valid until an operator changes the template configuration, which
// rotates the digest and with it the cache key.
type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	ledger ledgerdomain.Client
	repo   domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("accounting.service"),
		genID:  p.GenID,
		ledger: p.Ledger,
		repo:   p.Repo,
	}
}

func (s *Service) Resolve(ctx context.Context, tenant config.Tenant, paymentDate time.Time) (domain.Config, error) {
	templates := domain.TemplateIDs{
		Donation: tenant.DonationTemplateID,
		Debtor:   tenant.DebtorTemplateID,
		Bank:     tenant.BankTemplateID,
	}
	digest := templates.Digest()

	cached, err := s.repo.FindByDate(ctx, s.db, tenant.Name, digest, paymentDate)
	if err != nil {
		return domain.Config{}, err
	}
	if cached != nil {
		return *cached, nil
	}

	period, err := s.ledger.FindPeriod(ctx, tenant, paymentDate)
	if err != nil {
		return domain.Config{}, err
	}

	donationAccountID, err := s.ledger.FindAccount(ctx, tenant, period.ID, templates.Donation)
	if err != nil {
		return domain.Config{}, err
	}
	debtorAccountID, err := s.ledger.FindAccount(ctx, tenant, period.ID, templates.Debtor)
	if err != nil {
		return domain.Config{}, err
	}
	bankAccountID, err := s.ledger.FindAccount(ctx, tenant, period.ID, templates.Bank)
	if err != nil {
		return domain.Config{}, err
	}

	resolved := domain.Config{
		ID:                s.genID.Generate(),
		Tenant:            tenant.Name,
		PeriodID:          period.ID,
		TemplateDigest:    digest,
		ValidFrom:         period.From,
		ValidTo:           period.To,
		DonationAccountID: donationAccountID,
		DebtorAccountID:   debtorAccountID,
		BankAccountID:     bankAccountID,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &resolved); err != nil {
		return domain.Config{}, err
	}

	s.log.Debug("resolved accounting config",
		zap.String("tenant", tenant.Name),
		zap.Int64("period_id", period.ID),
		zap.Int64("donation_account_id", donationAccountID),
		zap.Int64("debtor_account_id", debtorAccountID),
		zap.Int64("bank_account_id", bankAccountID),
	)

	return resolved, nil
}
