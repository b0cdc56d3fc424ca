package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Tenant holds the per-organisation settings: upstream endpoints, secrets and
// the accounting template ids donations are posted against.
type Tenant struct {
	Name string `mapstructure:"-"`

	WebhookSecret string `mapstructure:"webhookSecret"`

	AdminEmail      string `mapstructure:"adminEmail"`
	AccountantEmail string `mapstructure:"accountantEmail"`

	PeriodGroupID      int64 `mapstructure:"periodGroupId"`
	DonationTemplateID int64 `mapstructure:"donationAccountTemplateId"`
	DebtorTemplateID   int64 `mapstructure:"debtorAccountTemplateId"`
	BankTemplateID     int64 `mapstructure:"bankAccountTemplateId"`
	DebtorCategoryID   int64 `mapstructure:"debtorCategoryId"`
	NewMemberGroupID   int64 `mapstructure:"groupIdForNewMembers"`

	LedgerAPIURL string `mapstructure:"ledgerApiUrl"`
	LedgerAPIKey string `mapstructure:"ledgerApiKey"`

	DirectoryAPIURL       string `mapstructure:"directoryApiUrl"`
	DirectoryClientID     string `mapstructure:"directoryClientId"`
	DirectoryClientSecret string `mapstructure:"directoryClientSecret"`

	// TokenEncryptionKey encrypts the persisted directory credential.
	// Must be 16, 24 or 32 bytes (AES-128/192/256).
	TokenEncryptionKey string `mapstructure:"tokenEncryptionKey"`

	DonorField       string `mapstructure:"donorField"`
	NewsletterFieldD string `mapstructure:"newsletterFieldD"`
	NewsletterFieldF string `mapstructure:"newsletterFieldF"`
}

// Tenants is the registry of all configured tenants, keyed by the first URL
// path segment of the webhook route.
type Tenants struct {
	byName map[string]Tenant
}

var ErrInvalidTenantsFile = errors.New("invalid_tenants_file")

// NewTenants loads the tenant registry from the configured yaml file.
func NewTenants(cfg Config) (*Tenants, error) {
	return LoadTenants(cfg.TenantsFile)
}

// LoadTenants reads a yaml file whose top-level keys are tenant names.
func LoadTenants(path string) (*Tenants, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read tenants file %s: %w", path, err)
	}

	byName := make(map[string]Tenant)
	for _, name := range v.AllKeys() {
		root := strings.SplitN(name, ".", 2)[0]
		if _, ok := byName[root]; ok {
			continue
		}

		var tenant Tenant
		if err := v.UnmarshalKey(root, &tenant); err != nil {
			return nil, fmt.Errorf("%w: tenant %s: %v", ErrInvalidTenantsFile, root, err)
		}
		tenant.Name = root
		if err := tenant.validate(); err != nil {
			return nil, err
		}
		byName[root] = tenant
	}

	return &Tenants{byName: byName}, nil
}

// Get returns the tenant for a webhook path segment.
func (t *Tenants) Get(name string) (Tenant, bool) {
	tenant, ok := t.byName[strings.TrimSpace(name)]
	return tenant, ok
}

// Names lists all configured tenants, for diagnostics.
func (t *Tenants) Names() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	return names
}

func (t Tenant) validate() error {
	if t.WebhookSecret == "" {
		return fmt.Errorf("%w: tenant %s: webhookSecret is required", ErrInvalidTenantsFile, t.Name)
	}
	switch len(t.TokenEncryptionKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: tenant %s: tokenEncryptionKey must be 16, 24 or 32 bytes", ErrInvalidTenantsFile, t.Name)
	}
	if t.LedgerAPIURL == "" || t.DirectoryAPIURL == "" {
		return fmt.Errorf("%w: tenant %s: ledgerApiUrl and directoryApiUrl are required", ErrInvalidTenantsFile, t.Name)
	}
	if t.PeriodGroupID == 0 || t.DonationTemplateID == 0 || t.DebtorTemplateID == 0 || t.BankTemplateID == 0 {
		return fmt.Errorf("%w: tenant %s: accounting ids are required", ErrInvalidTenantsFile, t.Name)
	}
	return nil
}
