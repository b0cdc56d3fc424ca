package domain

// MatchStatus is the directory's verdict on who a donation belongs to.
type MatchStatus string

const (
	MatchExact     MatchStatus = "match"
	MatchMultiple  MatchStatus = "multiple"
	MatchNone      MatchStatus = "no_match"
	MatchAmbiguous MatchStatus = "ambiguous"
)

// MatchResult holds the status and the ranked candidate records.
type MatchResult struct {
	Status     MatchStatus
	Candidates []MemberIdentity
}

// MemberIdentity is a directory record. Owned by the directory service; this
// side only reads it and requests field-level upserts.
type MemberIdentity struct {
	ID        int64  `json:"id"`
	Email     string `json:"email1"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"company"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	Zip       string `json:"zip"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Language  string `json:"language"`
}

// AddressComplete reports whether the record has a usable postal address.
// Matched records may predate full data collection, in which case the
// resolver repairs them from the payment payload.
func (m MemberIdentity) AddressComplete() bool {
	return m.Address1 != "" && m.Zip != "" && m.City != ""
}
