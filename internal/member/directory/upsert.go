package directory

import (
	"strings"

	"github.com/smallbiznis/ledgerbridge/internal/config"
	paymentdomain "github.com/smallbiznis/ledgerbridge/internal/payment/domain"
)

// Merge modes understood by the directory's upsert endpoints.
const (
	modeReplaceEmpty = "replaceEmpty" // write only if the target field is empty
	modeAddIfNew     = "addIfNew"     // append a free-text annotation if absent
	modeReplace      = "replace"      // unconditional, only for explicit opt-ins
	modeAppend       = "append"       // list fields (group membership)
)

type field struct {
	Value any    `json:"value"`
	Mode  string `json:"mode,omitempty"`
}

var genderBySalutation = map[string]string{
	"ms":      "f",
	"mr":      "m",
	"neutral": "n",
}

// controlled language vocabulary of the directory
var directoryLanguages = map[string]bool{"d": true, "f": true, "i": true}

// upsertFields maps a payment payload onto the directory's field-level merge
// request. Donor data never overwrites existing values; only an explicit
// newsletter opt-in is written unconditionally.
func upsertFields(tenant config.Tenant, p paymentdomain.PaymentRecord) map[string]field {
	lang := ""
	if p.Language != "" {
		lang = p.Language[:1]
	}
	gender := genderBySalutation[p.Salutation]
	salutation := gender + strings.ToUpper(lang)

	data := map[string]field{
		"email1":             {Value: p.Email, Mode: modeReplaceEmpty},
		"gender":             {Value: gender, Mode: modeReplaceEmpty},
		"salutationFormal":   {Value: salutation, Mode: modeReplaceEmpty},
		"salutationInformal": {Value: salutation, Mode: modeReplaceEmpty},
		"firstName":          {Value: p.FirstName, Mode: modeReplaceEmpty},
		"lastName":           {Value: p.LastName, Mode: modeReplaceEmpty},
		"company":            {Value: p.Company, Mode: modeReplaceEmpty},
		"address1":           {Value: p.Address1, Mode: modeReplaceEmpty},
		"address2":           {Value: p.Address2, Mode: modeReplaceEmpty},
		"zip":                {Value: p.Zip, Mode: modeReplaceEmpty},
		"city":               {Value: p.City, Mode: modeReplaceEmpty},
		"country":            {Value: strings.ToLower(p.Country), Mode: modeReplaceEmpty},
		"language":           {Value: lang, Mode: modeReplaceEmpty},
		"entryChannel":       {Value: "Online donation: " + p.SourceURL, Mode: modeAddIfNew},
	}

	if tenant.DonorField != "" {
		data[tenant.DonorField] = field{Value: "donor", Mode: modeReplaceEmpty}
	}

	// Languages outside the directory's vocabulary are omitted entirely so
	// the controlled field is never polluted.
	if !directoryLanguages[lang] {
		delete(data, "language")
	}

	if p.NewsletterOptIn {
		switch lang {
		case "d":
			if tenant.NewsletterFieldD != "" {
				data[tenant.NewsletterFieldD] = field{Value: "yes", Mode: modeReplace}
			}
		case "f":
			if tenant.NewsletterFieldF != "" {
				data[tenant.NewsletterFieldF] = field{Value: "yes", Mode: modeReplace}
			}
		}
	}

	return data
}
