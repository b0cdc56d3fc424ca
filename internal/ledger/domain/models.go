package domain

import (
	"context"
	"errors"
	"time"

	accountingdomain "github.com/smallbiznis/ledgerbridge/internal/accounting/domain"
	"github.com/smallbiznis/ledgerbridge/internal/config"
	paymentdomain "github.com/smallbiznis/ledgerbridge/internal/payment/domain"
)

// Client is the boundary to the external double-entry ledger.
type Client interface {
	// FindPeriod resolves the accounting period whose interval contains
	// date, within the tenant's period group.
	FindPeriod(ctx context.Context, tenant config.Tenant, date time.Time) (accountingdomain.Period, error)

	// FindAccount resolves the single account instantiated from a template
	// within a period.
	FindAccount(ctx context.Context, tenant config.Tenant, periodID, templateID int64) (int64, error)

	// EntryExists checks for a paid debtor entry carrying the transaction
	// id as receipt under the period.
	EntryExists(ctx context.Context, tenant config.Tenant, transactionID string, periodID int64) (bool, error)

	// CreateDebtor posts the debtor aggregate for one payment: a revenue
	// recognition group (donation against debtor) and a settlement group
	// (debtor against bank), both stamped with the transaction id, nested
	// under the period, written as one request.
	CreateDebtor(ctx context.Context, tenant config.Tenant, memberID int64, payment paymentdomain.PaymentRecord, cfg accountingdomain.Config) error
}

var ErrInvalidResponse = errors.New("invalid_ledger_response")
