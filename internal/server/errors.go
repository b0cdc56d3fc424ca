package server

import (
	"errors"
	"net/http"

	accountingdomain "github.com/smallbiznis/ledgerbridge/internal/accounting/domain"
	paymentdomain "github.com/smallbiznis/ledgerbridge/internal/payment/domain"
	"github.com/smallbiznis/ledgerbridge/pkg/upstream"
)

const (
	// retryAfterLocked spaces out redeliveries racing a concurrent delivery
	// of the same transaction.
	retryAfterLocked = "300"
	// retryAfterMissingPeriod gives the bookkeeper a day to open the
	// accounting period the payment date falls into.
	retryAfterMissingPeriod = "86400"
)

// mapProcessError decides the response status, an optional Retry-After value
// and the metrics label for a failed delivery. Poison payloads are
// acknowledged with 200 so the provider never redelivers data that can only
// fail again; the tenant contacts were already notified by then.
func mapProcessError(err error) (status int, retryAfter string, label string) {
	var vErr *paymentdomain.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusOK, "", "rejected"
	}

	if errors.Is(err, accountingdomain.ErrPeriodNotFound) {
		return http.StatusServiceUnavailable, retryAfterMissingPeriod, "period_pending"
	}

	if status, ok := upstream.StatusCode(err); ok {
		if status == 0 {
			return http.StatusBadGateway, "", "upstream_error"
		}
		return status, "", "upstream_error"
	}

	return http.StatusInternalServerError, "", "error"
}
