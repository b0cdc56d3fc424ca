package credential

import (
	"context"
	"time"

	"github.com/smallbiznis/ledgerbridge/internal/config"
)

// Credential is the bearer token for the member directory service.
type Credential struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	RenewAt     time.Time `json:"renewAt"`
}

// Authorization renders the credential as an Authorization header value.
func (c Credential) Authorization() string {
	tokenType := c.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return tokenType + " " + c.AccessToken
}

// DueForRenewal reports whether the token passed the midpoint of its
// declared lifetime. Renewing at the midpoint keeps a healthy margin to the
// real expiry without hammering the identity endpoint.
func (c Credential) DueForRenewal(now time.Time) bool {
	return !c.RenewAt.After(now)
}

// Source yields a usable credential for a tenant, renewing when due.
type Source interface {
	Obtain(ctx context.Context, tenant config.Tenant) (Credential, error)
}
