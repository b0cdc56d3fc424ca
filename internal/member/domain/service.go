package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ledgerbridge/internal/config"
	paymentdomain "github.com/smallbiznis/ledgerbridge/internal/payment/domain"
)

// Directory is the boundary to the external member directory service.
type Directory interface {
	// Match searches for records matching the donor fields of the payment.
	Match(ctx context.Context, tenant config.Tenant, payment paymentdomain.PaymentRecord) (MatchResult, error)
	// FetchMain returns the main record of the household a candidate belongs to.
	FetchMain(ctx context.Context, tenant config.Tenant, candidateID int64) (MemberIdentity, error)
	// Create adds a new record built from the payment payload.
	Create(ctx context.Context, tenant config.Tenant, payment paymentdomain.PaymentRecord) (MemberIdentity, error)
	// Update upserts the payment payload into an existing record using the
	// per-field merge modes.
	Update(ctx context.Context, tenant config.Tenant, memberID int64, payment paymentdomain.PaymentRecord) (MemberIdentity, error)
}

// Resolver decides which member a payment belongs to.
type Resolver interface {
	// Resolve returns the member id, or resolved=false when the match was
	// ambiguous and the payment must be handled manually. An ambiguous
	// match is not an error: retrying would repeat the same ambiguity.
	Resolve(ctx context.Context, tenant config.Tenant, payment paymentdomain.PaymentRecord) (memberID int64, resolved bool, err error)
}

var (
	ErrInvalidMatchResponse = errors.New("invalid_match_response")
	ErrInvalidMemberID      = errors.New("invalid_member_id")
)
