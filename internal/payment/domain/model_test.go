package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validPayment() PaymentRecord {
	return PaymentRecord{
		TransactionID: "tx-77",
		Amount:        2550,
		CreatedAt:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Language:      "de",
		Salutation:    "ms",
		FirstName:     "Anna",
		LastName:      "Muster",
		Address1:      "Musterweg 7",
		Zip:           "8000",
		City:          "Zurich",
		Country:       "CH",
		Email:         "anna@example.com",
		SourceURL:     "https://donate.example.com/form",
		PaymentMethod: "VIS",
	}
}

func TestValidateAcceptsCompletePayment(t *testing.T) {
	if err := validPayment().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*PaymentRecord)
	}{
		{"unknown language", func(p *PaymentRecord) { p.Language = "es" }},
		{"unknown salutation", func(p *PaymentRecord) { p.Salutation = "dr" }},
		{"unknown country", func(p *PaymentRecord) { p.Country = "US" }},
		{"bad email", func(p *PaymentRecord) { p.Email = "not-an-email" }},
		{"missing date", func(p *PaymentRecord) { p.CreatedAt = time.Time{} }},
		{"bad source url", func(p *PaymentRecord) { p.SourceURL = "::" }},
		{"missing first name", func(p *PaymentRecord) { p.FirstName = "" }},
		{"missing last name", func(p *PaymentRecord) { p.LastName = "" }},
		{"missing transaction id", func(p *PaymentRecord) { p.TransactionID = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payment := validPayment()
			tc.mutate(&payment)

			err := payment.Validate()
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Payment.TransactionID != payment.TransactionID {
				t.Fatal("expected the payment to travel with the error")
			}
		})
	}
}

func TestValidateAllowsEmptySourceURL(t *testing.T) {
	payment := validPayment()
	payment.SourceURL = ""
	if err := payment.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestFormattedAmount(t *testing.T) {
	payment := validPayment()
	if got := payment.FormattedAmount(); got != "25.50 CHF" {
		t.Fatalf("expected 25.50 CHF, got %q", got)
	}
}

func TestSummaryIncludesDonorMessage(t *testing.T) {
	payment := validPayment()
	summary := payment.Summary()

	for _, want := range []string{"25.50 CHF", "anna@example.com", "tx-77", "8000 Zurich"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("expected summary to contain %q:\n%s", want, summary)
		}
	}
	if strings.Contains(summary, "Message from") {
		t.Fatal("expected no message block without a message")
	}

	payment.Message = "in memory of my grandmother"
	summary = payment.Summary()
	if !strings.Contains(summary, "Message from Anna Muster") || !strings.Contains(summary, payment.Message) {
		t.Fatalf("expected message block in summary:\n%s", summary)
	}
}
