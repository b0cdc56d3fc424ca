package credential

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smallbiznis/ledgerbridge/internal/clock"
	"github.com/smallbiznis/ledgerbridge/internal/config"
	"github.com/smallbiznis/ledgerbridge/pkg/upstream"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	requestTimeout = 30 * time.Second
	fileMode       = 0o600
)

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock
}

// Store persists one encrypted credential per tenant and renews it past the
// midpoint of its lifetime.
type Store struct {
	dir    string
	log    *zap.Logger
	clock  clock.Clock
	client *http.Client
}

func NewStore(p Params) *Store {
	return &Store{
		dir:    p.Cfg.CredentialDir,
		log:    p.Log.Named("credential.store"),
		clock:  p.Clock,
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Obtain returns a usable credential for the tenant. A persisted credential
// that is not yet due for renewal is probed for liveness and reused; anything
// else triggers a fresh client-credentials exchange which is persisted before
// use. Safe to treat a failure here as fatal for the current request since no
// payment state has changed yet.
func (s *Store) Obtain(ctx context.Context, tenant config.Tenant) (Credential, error) {
	if cred, ok := s.load(tenant); ok {
		if !cred.DueForRenewal(s.clock.Now()) && s.probe(ctx, tenant, cred) {
			return cred, nil
		}
	}

	cred, err := s.exchange(ctx, tenant)
	if err != nil {
		return Credential{}, err
	}

	if err := s.persist(tenant, cred); err != nil {
		return Credential{}, err
	}
	return cred, nil
}

func (s *Store) load(tenant config.Tenant) (Credential, bool) {
	raw, err := os.ReadFile(s.path(tenant.Name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Debug("credential file unreadable", zap.String("tenant", tenant.Name), zap.Error(err))
		}
		return Credential{}, false
	}

	plaintext, err := decrypt([]byte(tenant.TokenEncryptionKey), raw)
	if err != nil {
		s.log.Debug("credential decrypt failed", zap.String("tenant", tenant.Name), zap.Error(err))
		return Credential{}, false
	}

	var cred Credential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		s.log.Debug("credential unmarshal failed", zap.String("tenant", tenant.Name), zap.Error(err))
		return Credential{}, false
	}
	if cred.AccessToken == "" {
		return Credential{}, false
	}
	return cred, true
}

// probe checks the persisted token against the directory's auth endpoint. A
// failed probe is not fatal, it just forces a fresh exchange.
func (s *Store) probe(ctx context.Context, tenant config.Tenant, cred Credential) bool {
	probeURL := strings.TrimRight(tenant.DirectoryAPIURL, "/") + "/api/v1/auth"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", cred.Authorization())

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("could not probe directory credential",
			zap.String("tenant", tenant.Name), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (s *Store) exchange(ctx context.Context, tenant config.Tenant) (Credential, error) {
	cc := clientcredentials.Config{
		ClientID:     tenant.DirectoryClientID,
		ClientSecret: tenant.DirectoryClientSecret,
		TokenURL:     strings.TrimRight(tenant.DirectoryAPIURL, "/") + "/oauth/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := cc.Token(ctx)
	if err != nil {
		s.log.Error("could not obtain token from identity endpoint",
			zap.String("tenant", tenant.Name), zap.Error(err))

		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return Credential{}, upstream.New("identity", re.Response.StatusCode, err)
		}
		return Credential{}, upstream.New("identity", 0, err)
	}
	if token.AccessToken == "" {
		return Credential{}, upstream.New("identity", 0, errors.New("empty access token"))
	}

	now := s.clock.Now()
	renewAt := now
	if token.Expiry.After(now) {
		renewAt = now.Add(token.Expiry.Sub(now) / 2)
	}

	return Credential{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		RenewAt:     renewAt,
	}, nil
}

// persist encrypts and atomically replaces the credential file: a fresh
// handle, flushed and closed before rename, so a concurrent reader never
// observes a partial write.
func (s *Store) persist(tenant config.Tenant, cred Credential) error {
	plaintext, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	sealed, err := encrypt([]byte(tenant.TokenEncryptionKey), plaintext)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+tenant.Name+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), fileMode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(tenant.Name))
}

func (s *Store) path(tenantName string) string {
	return filepath.Join(s.dir, tenantName+".json.enc")
}

// Module provides the credential store as the Source for directory auth.
var Module = fx.Module("credential",
	fx.Provide(
		NewStore,
		func(s *Store) Source { return s },
	),
)
