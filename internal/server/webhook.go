package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ledgerbridge/internal/reconcile"
	"github.com/smallbiznis/ledgerbridge/pkg/tenantctx"
	"go.uber.org/zap"
)

// HandleWebhook ingests one payment delivery from the payment provider.
//
// The provider retries deliveries that do not get a 2xx answer, so the
// response code is the retry protocol: 2xx acknowledges the delivery
// (including payloads that were handed to manual processing, which a retry
// would not fix), 503 with Retry-After asks for a later redelivery, and
// upstream failures surface as the upstream status so operators see where
// the problem lives.
func (s *Server) HandleWebhook(c *gin.Context) {
	tenantName := c.Param("tenant")
	tenant, ok := s.tenants.Get(tenantName)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	if subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(tenant.WebhookSecret)) != 1 {
		c.Status(http.StatusUnauthorized)
		return
	}

	ctx := tenantctx.WithTenant(c.Request.Context(), tenant.Name)
	payment := paymentFromForm(c)

	log := s.log.With(
		zap.String("tenant", tenant.Name),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("email", payment.Email),
	)
	log.Info("webhook delivery received")

	outcome, err := s.reconcile.Process(ctx, tenant, payment)
	if err != nil {
		status, retryAfter, label := mapProcessError(err)
		if status >= http.StatusInternalServerError {
			log.Error("payment processing failed", zap.Error(err), zap.Int("status", status))
		} else {
			log.Warn("payment delivery not processed", zap.Error(err), zap.Int("status", status))
		}
		s.metrics.ObserveOutcome(tenant.Name, label)
		if retryAfter != "" {
			c.Header("Retry-After", retryAfter)
		}
		c.Status(status)
		return
	}

	s.metrics.ObserveOutcome(tenant.Name, string(outcome))

	switch outcome {
	case reconcile.OutcomeAdded:
		c.Status(http.StatusCreated)
	case reconcile.OutcomeLocked:
		c.Header("Retry-After", retryAfterLocked)
		c.Status(http.StatusServiceUnavailable)
	default:
		// exists, unresolved: acknowledged, nothing left to retry
		c.Status(http.StatusOK)
	}
}
