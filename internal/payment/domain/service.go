package domain

import (
	"context"

	"github.com/smallbiznis/ledgerbridge/internal/config"
)

// Recorder posts a payment to the ledger at most once.
type Recorder interface {
	// Record acquires the transaction lock, checks for an existing ledger
	// entry and writes the debtor aggregate if absent. StateLocked means
	// another delivery of the same transaction holds the lock; retry later.
	Record(ctx context.Context, tenant config.Tenant, payment PaymentRecord, memberID int64) (RecordState, error)
}
