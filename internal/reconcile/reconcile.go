package reconcile

import (
	"context"
	"errors"

	accountingdomain "github.com/smallbiznis/ledgerbridge/internal/accounting/domain"
	"github.com/smallbiznis/ledgerbridge/internal/config"
	memberdomain "github.com/smallbiznis/ledgerbridge/internal/member/domain"
	"github.com/smallbiznis/ledgerbridge/internal/notifier"
	paymentdomain "github.com/smallbiznis/ledgerbridge/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Outcome describes what a single webhook delivery ended up doing.
type Outcome string

const (
	// OutcomeAdded means the payment was posted to the ledger.
	OutcomeAdded Outcome = "added"
	// OutcomeExists means an earlier delivery already posted the payment.
	OutcomeExists Outcome = "exists"
	// OutcomeLocked means a concurrent delivery holds the transaction lock.
	OutcomeLocked Outcome = "locked"
	// OutcomeUnresolved means the member match was ambiguous and the payment
	// was handed to the accountant instead of being posted.
	OutcomeUnresolved Outcome = "unresolved"
	// OutcomeRejected means the payload failed validation and was dropped
	// after notifying the tenant contacts.
	OutcomeRejected Outcome = "rejected"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Resolver memberdomain.Resolver
	Recorder paymentdomain.Recorder
	Notifier *notifier.Notifier
}

// Service runs a webhook payment through member resolution and ledger
// recording, and mails the tenant contacts whenever the payment cannot be
// handled automatically.
type Service struct {
	log      *zap.Logger
	resolver memberdomain.Resolver
	recorder paymentdomain.Recorder
	notifier *notifier.Notifier
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("reconcile"),
		resolver: p.Resolver,
		recorder: p.Recorder,
		notifier: p.Notifier,
	}
}

// Process handles one delivery of a payment. Errors other than validation
// failures are returned after notifying the tenant administrator; the caller
// decides how to answer the webhook.
func (s *Service) Process(ctx context.Context, tenant config.Tenant, payment paymentdomain.PaymentRecord) (Outcome, error) {
	log := s.log.With(
		zap.String("tenant", tenant.Name),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("email", payment.Email),
	)

	if err := payment.Validate(); err != nil {
		log.Warn("rejecting invalid payment", zap.Error(err))
		s.notifier.NotifyAdminError(ctx, tenant, payment, err)
		s.notifier.NotifyAccountantIssue(ctx, tenant, payment, err.Error())
		return OutcomeRejected, err
	}

	memberID, resolved, err := s.resolver.Resolve(ctx, tenant, payment)
	if err != nil {
		s.notifier.NotifyAdminError(ctx, tenant, payment, err)
		return "", err
	}
	if !resolved {
		log.Info("handing ambiguous member match to the accountant")
		s.notifier.NotifyAccountantIssue(ctx, tenant, payment, "the payment matches several directory entries and none of them exactly")
		return OutcomeUnresolved, nil
	}

	state, err := s.recorder.Record(ctx, tenant, payment, memberID)
	if err != nil {
		if errors.Is(err, accountingdomain.ErrPeriodNotFound) {
			log.Warn("no accounting period covers the payment date", zap.Time("payment_date", payment.CreatedAt))
		}
		s.notifier.NotifyAdminError(ctx, tenant, payment, err)
		return "", err
	}

	switch state {
	case paymentdomain.StateAdded:
		log.Info("payment recorded", zap.Int64("member_id", memberID))
		s.notifier.NotifyDonorMessage(ctx, tenant, payment)
		return OutcomeAdded, nil
	case paymentdomain.StateExists:
		log.Info("payment was already recorded", zap.Int64("member_id", memberID))
		return OutcomeExists, nil
	case paymentdomain.StateLocked:
		return OutcomeLocked, nil
	default:
		return "", errors.New("unknown record state: " + string(state))
	}
}

var Module = fx.Module("reconcile",
	fx.Provide(NewService),
)
