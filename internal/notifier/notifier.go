package notifier

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/smallbiznis/ledgerbridge/internal/config"
	"github.com/smallbiznis/ledgerbridge/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	adminErrorTmpl = template.Must(template.New("admin_error").Parse(
		`A payment could not be processed and needs manual intervention.

Error: {{.Error}}

{{.Summary}}`))

	accountantIssueTmpl = template.Must(template.New("accountant_issue").Parse(
		`A payment needs your attention.

Reason: {{.Reason}}

{{.Summary}}`))

	donorMessageTmpl = template.Must(template.New("donor_message").Parse(
		`A donor left a message with their payment.

Message:
{{.Message}}

{{.Summary}}`))
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Provider Provider
}

// Notifier mails processing problems to the people configured per tenant.
// Delivery failures are logged and swallowed so a broken mail relay never
// turns a handled payment into a webhook error.
type Notifier struct {
	log      *zap.Logger
	provider Provider
}

func New(p Params) *Notifier {
	return &Notifier{
		log:      p.Log.Named("notifier"),
		provider: p.Provider,
	}
}

// NotifyAdminError reports an unexpected processing failure to the tenant
// administrator.
func (n *Notifier) NotifyAdminError(ctx context.Context, tenant config.Tenant, payment domain.PaymentRecord, cause error) {
	subject := fmt.Sprintf("[%s] Payment processing error for transaction %s", tenant.Name, payment.TransactionID)
	n.send(ctx, tenant, tenant.AdminEmail, subject, adminErrorTmpl, map[string]string{
		"Error":   cause.Error(),
		"Summary": payment.Summary(),
	})
}

// NotifyAccountantIssue asks the accountant to handle a payment the service
// deliberately left alone, such as an ambiguous member match.
func (n *Notifier) NotifyAccountantIssue(ctx context.Context, tenant config.Tenant, payment domain.PaymentRecord, reason string) {
	subject := fmt.Sprintf("[%s] Payment needs manual handling: %s", tenant.Name, payment.TransactionID)
	n.send(ctx, tenant, tenant.AccountantEmail, subject, accountantIssueTmpl, map[string]string{
		"Reason":  reason,
		"Summary": payment.Summary(),
	})
}

// NotifyDonorMessage forwards a donor's free-text message to the accountant.
// It is a no-op when the payment carries no message.
func (n *Notifier) NotifyDonorMessage(ctx context.Context, tenant config.Tenant, payment domain.PaymentRecord) {
	if payment.Message == "" {
		return
	}
	subject := fmt.Sprintf("[%s] Donor message with payment %s", tenant.Name, payment.TransactionID)
	n.send(ctx, tenant, tenant.AccountantEmail, subject, donorMessageTmpl, map[string]string{
		"Message": payment.Message,
		"Summary": payment.Summary(),
	})
}

func (n *Notifier) send(ctx context.Context, tenant config.Tenant, to string, subject string, tmpl *template.Template, data map[string]string) {
	log := n.log.With(zap.String("tenant", tenant.Name), zap.String("to", to), zap.String("subject", subject))
	if to == "" {
		log.Warn("no recipient configured, dropping notification")
		return
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		log.Error("failed to render notification", zap.Error(err))
		return
	}
	if err := n.provider.Send(ctx, []string{to}, subject, body.String()); err != nil {
		log.Error("failed to send notification", zap.Error(err))
		return
	}
	log.Debug("notification sent")
}

func NewProviderFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.Email.SMTPHost == "" {
		log.Named("notifier").Warn("no smtp host configured, notifications are disabled")
		return &NoOpProvider{}
	}
	return NewSMTP(SMTPConfig{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.SMTPFrom,
	})
}

var Module = fx.Module("notifier",
	fx.Provide(NewProviderFromConfig),
	fx.Provide(New),
)
