package service

import (
	"context"
	"time"

	accountingdomain "github.com/smallbiznis/ledgerbridge/internal/accounting/domain"
	"github.com/smallbiznis/ledgerbridge/internal/config"
	ledgerdomain "github.com/smallbiznis/ledgerbridge/internal/ledger/domain"
	"github.com/smallbiznis/ledgerbridge/internal/lock"
	"github.com/smallbiznis/ledgerbridge/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// lockTTL bounds how long a crashed holder can block redeliveries of the
// same transaction.
const lockTTL = 5 * time.Minute

type Params struct {
	fx.In

	Log        *zap.Logger
	Ledger     ledgerdomain.Client
	Accounting accountingdomain.Service
	Locker     lock.TryLocker
}

// Service posts payments to the ledger at most once per transaction id.
type Service struct {
	log        *zap.Logger
	ledger     ledgerdomain.Client
	accounting accountingdomain.Service
	locker     lock.TryLocker
}

func NewService(p Params) domain.Recorder {
	return &Service{
		log:        p.Log.Named("payment.recorder"),
		ledger:     p.Ledger,
		accounting: p.Accounting,
		locker:     p.Locker,
	}
}

// Record acquires the transaction lock and, inside the critical section,
// checks for an existing ledger entry and writes the debtor aggregate when
// absent. Keeping check and write in the same critical section removes the
// check-then-act race across concurrent or retried deliveries.
func (s *Service) Record(ctx context.Context, tenant config.Tenant, payment domain.PaymentRecord, memberID int64) (domain.RecordState, error) {
	log := s.log.With(
		zap.String("tenant", tenant.Name),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("email", payment.Email),
		zap.Int64("member_id", memberID),
	)

	lockKey := "payment:" + tenant.Name + ":" + payment.TransactionID
	token, ok, err := s.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		return "", err
	}
	if !ok {
		log.Info("transaction is locked by another delivery")
		return domain.StateLocked, nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
			log.Warn("failed to release transaction lock", zap.Error(err))
		}
	}()

	accountingCfg, err := s.accounting.Resolve(ctx, tenant, payment.CreatedAt)
	if err != nil {
		return "", err
	}

	exists, err := s.ledger.EntryExists(ctx, tenant, payment.TransactionID, accountingCfg.PeriodID)
	if err != nil {
		return "", err
	}
	if exists {
		log.Info("payment is already in the ledger")
		return domain.StateExists, nil
	}

	if err := s.ledger.CreateDebtor(ctx, tenant, memberID, payment, accountingCfg); err != nil {
		return "", err
	}
	log.Debug("payment posted to the ledger")

	return domain.StateAdded, nil
}
