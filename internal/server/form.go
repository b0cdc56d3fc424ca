package server

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/ledgerbridge/internal/payment/domain"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// createdLayouts are the timestamp formats seen in provider deliveries.
var createdLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// paymentFromForm maps the provider's form payload (`data[...]` fields) onto
// a payment record. Normalisation happens here so everything behind the
// handler works with one canonical shape: vocabulary fields lowercased,
// country uppercased, the street parts joined into address lines. Missing or
// malformed fields become zero values and are caught by validation.
func paymentFromForm(c *gin.Context) paymentdomain.PaymentRecord {
	data := c.PostFormMap("data")
	get := func(key string) string {
		return strings.TrimSpace(htmlTagPattern.ReplaceAllString(data[key], ""))
	}

	return paymentdomain.PaymentRecord{
		TransactionID: get("epp_transaction_id"),
		Amount:        parseAmount(get("amount")),
		CreatedAt:     parseCreated(get("created")),

		Language:   strings.ToLower(get("language")),
		Salutation: strings.ToLower(get("stored_customer_salutation")),
		FirstName:  get("stored_customer_firstname"),
		LastName:   get("stored_customer_lastname"),
		Company:    get("stored_customer_company"),
		Address1:   joinParts(get("stored_customer_street"), get("stored_customer_street_number")),
		Address2:   joinParts(get("stored_customer_street2"), get("stored_customer_pobox")),
		Zip:        get("stored_customer_zip_code"),
		City:       get("stored_customer_city"),
		Country:    strings.ToUpper(get("stored_customer_country")),
		Email:      get("stored_customer_email"),

		SourceURL:       get("stored_rnw_source_url"),
		PaymentMethod:   get("payment_method"),
		NewsletterOptIn: parseOptIn(get("stored_customer_email_permission")),
		Message:         get("stored_customer_message"),
	}
}

func joinParts(a, b string) string {
	return strings.TrimSpace(a + " " + b)
}

func parseAmount(raw string) int64 {
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return amount
}

func parseCreated(raw string) time.Time {
	for _, layout := range createdLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func parseOptIn(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
