package domain

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
)

// PaymentRecord is one validated donation delivered by the payment provider.
// TransactionID is the idempotency key and the lock key; everything else is
// donor data used for member resolution and the ledger entry.
type PaymentRecord struct {
	TransactionID string
	Amount        int64 // minor units (cents)
	CreatedAt     time.Time

	Language   string // lowercase: de, fr, it, en
	Salutation string // lowercase: mr, ms, neutral
	FirstName  string
	LastName   string
	Company    string
	Address1   string
	Address2   string
	Zip        string
	City       string
	Country    string // uppercase ISO 3166-1 alpha-2
	Email      string

	SourceURL       string
	PaymentMethod   string
	NewsletterOptIn bool
	Message         string
}

// RecordState is the terminal outcome of posting a payment to the ledger.
type RecordState string

const (
	StateAdded  RecordState = "added"
	StateExists RecordState = "exists"
	StateLocked RecordState = "locked"
)

var (
	validLanguages   = map[string]bool{"de": true, "fr": true, "it": true, "en": true}
	validSalutations = map[string]bool{"mr": true, "ms": true, "neutral": true}

	// Donations from other countries need address handling the directory
	// does not support, so they are routed to manual entry.
	validCountries = map[string]bool{"CH": true, "DE": true, "FR": true, "IT": true, "AT": true}
)

// ValidationError marks a poison payload. It keeps the payment so callers can
// route it to manual handling with full context.
type ValidationError struct {
	Reason  string
	Payment PaymentRecord
}

func (e *ValidationError) Error() string {
	return "invalid payment data: " + e.Reason
}

// Validate checks the normalized payload against the controlled vocabularies.
func (p PaymentRecord) Validate() error {
	if !validLanguages[p.Language] {
		return &ValidationError{Reason: fmt.Sprintf("given language is not valid: %s", p.Language), Payment: p}
	}
	if !validSalutations[p.Salutation] {
		return &ValidationError{Reason: fmt.Sprintf("given salutation is not valid: %s", p.Salutation), Payment: p}
	}
	if !validCountries[p.Country] {
		return &ValidationError{Reason: fmt.Sprintf("payment from unknown country: %s", p.Country), Payment: p}
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("given email address is not valid: %s", p.Email), Payment: p}
	}
	if p.CreatedAt.IsZero() {
		return &ValidationError{Reason: "failed to parse payment date", Payment: p}
	}
	if p.SourceURL != "" {
		if _, err := url.ParseRequestURI(p.SourceURL); err != nil {
			return &ValidationError{Reason: fmt.Sprintf("invalid source url: %s", p.SourceURL), Payment: p}
		}
	}
	if p.FirstName == "" || p.LastName == "" {
		return &ValidationError{Reason: "missing first or last name", Payment: p}
	}
	if p.TransactionID == "" {
		return &ValidationError{Reason: "missing transaction id", Payment: p}
	}
	return nil
}

// FormattedAmount renders the amount for human notifications.
func (p PaymentRecord) FormattedAmount() string {
	return fmt.Sprintf("%.2f CHF", float64(p.Amount)/100)
}

// Summary renders the payment for notification emails.
func (p PaymentRecord) Summary() string {
	var b strings.Builder
	created := "UNKNOWN"
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.Format("02.01.2006 15:04:05")
	}

	fmt.Fprintf(&b, "Amount              %s\n", p.FormattedAmount())
	fmt.Fprintf(&b, "Form URL            %s\n\n", p.SourceURL)
	fmt.Fprintf(&b, "Email               %s\n", p.Email)
	fmt.Fprintf(&b, "Language            %s\n", p.Language)
	fmt.Fprintf(&b, "Salutation          %s\n\n", p.Salutation)
	fmt.Fprintf(&b, "Name                %s %s\n", p.FirstName, p.LastName)
	fmt.Fprintf(&b, "Company             %s\n", p.Company)
	fmt.Fprintf(&b, "Address 1           %s\n", p.Address1)
	fmt.Fprintf(&b, "Address 2           %s\n", p.Address2)
	fmt.Fprintf(&b, "ZIP City            %s %s\n", p.Zip, p.City)
	fmt.Fprintf(&b, "Country             %s\n\n", p.Country)
	fmt.Fprintf(&b, "Newsletter          %t\n\n", p.NewsletterOptIn)
	fmt.Fprintf(&b, "Payment Timestamp   %s\n", created)
	fmt.Fprintf(&b, "Transaction Id      %s\n", p.TransactionID)
	fmt.Fprintf(&b, "Payment Method      %s", p.PaymentMethod)

	if p.Message != "" {
		fmt.Fprintf(&b, "\n\nMessage from %s %s\n=============================\n%s", p.FirstName, p.LastName, p.Message)
	}

	return b.String()
}
