package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/ledgerbridge/internal/config"
	"github.com/smallbiznis/ledgerbridge/internal/member/domain"
	paymentdomain "github.com/smallbiznis/ledgerbridge/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Directory domain.Directory
}

// Service runs the match/create/update state machine against the directory.
type Service struct {
	log       *zap.Logger
	directory domain.Directory
}

func NewService(p Params) domain.Resolver {
	return &Service{
		log:       p.Log.Named("member.resolver"),
		directory: p.Directory,
	}
}

// Resolve matches the donor fields against the directory and returns the
// member the payment belongs to. Member resolution always completes before
// any ledger access; an ambiguous match terminates with resolved=false and
// no further directory calls.
func (s *Service) Resolve(ctx context.Context, tenant config.Tenant, payment paymentdomain.PaymentRecord) (int64, bool, error) {
	log := s.log.With(
		zap.String("tenant", tenant.Name),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("email", payment.Email),
	)

	match, err := s.directory.Match(ctx, tenant, payment)
	if err != nil {
		return 0, false, err
	}

	var member domain.MemberIdentity

	switch match.Status {
	case domain.MatchExact:
		// exactly one existing record, use it
		if len(match.Candidates) == 0 {
			return 0, false, fmt.Errorf("%w: exact match without candidates", domain.ErrInvalidMatchResponse)
		}
		member = match.Candidates[0]
		log.Debug("payment matched member", zap.Int64("member_id", member.ID))

		member, err = s.maybeRepair(ctx, tenant, member, payment)
		if err != nil {
			return 0, false, err
		}

	case domain.MatchMultiple:
		// several household records, post against the main one
		if len(match.Candidates) == 0 {
			return 0, false, fmt.Errorf("%w: multiple match without candidates", domain.ErrInvalidMatchResponse)
		}
		member, err = s.directory.FetchMain(ctx, tenant, match.Candidates[0].ID)
		if err != nil {
			return 0, false, err
		}
		log.Debug("payment matched multiple members, using main record", zap.Int64("member_id", member.ID))

		member, err = s.maybeRepair(ctx, tenant, member, payment)
		if err != nil {
			return 0, false, err
		}

	case domain.MatchNone:
		// no record yet, create one from the payload; the payload is
		// already complete so no repair follows
		member, err = s.directory.Create(ctx, tenant, payment)
		if err != nil {
			return 0, false, err
		}
		log.Debug("payment matched no one, created member", zap.Int64("member_id", member.ID))

	case domain.MatchAmbiguous:
		log.Info("payment match is ambiguous, routing to manual handling")
		return 0, false, nil

	default:
		return 0, false, fmt.Errorf("%w: unknown match status %q", domain.ErrInvalidMatchResponse, match.Status)
	}

	return member.ID, true, nil
}

// maybeRepair completes missing address data and applies newsletter opt-ins
// on matched records. Only matched records are repaired: they may predate
// full data collection, while freshly created ones are already complete.
func (s *Service) maybeRepair(ctx context.Context, tenant config.Tenant, member domain.MemberIdentity, payment paymentdomain.PaymentRecord) (domain.MemberIdentity, error) {
	if member.AddressComplete() && !payment.NewsletterOptIn {
		return member, nil
	}

	updated, err := s.directory.Update(ctx, tenant, member.ID, payment)
	if err != nil {
		return domain.MemberIdentity{}, err
	}
	s.log.Debug("updated member data in directory",
		zap.String("tenant", tenant.Name),
		zap.String("transaction_id", payment.TransactionID),
		zap.Int64("member_id", updated.ID),
	)
	return updated, nil
}

// Module provides the member resolver.
var Module = fx.Module("member.resolver",
	fx.Provide(NewService),
)
