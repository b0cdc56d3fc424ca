package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/ledgerbridge/internal/config"
	"github.com/smallbiznis/ledgerbridge/internal/credential"
	"github.com/smallbiznis/ledgerbridge/internal/member/domain"
	paymentdomain "github.com/smallbiznis/ledgerbridge/internal/payment/domain"
	"github.com/smallbiznis/ledgerbridge/pkg/upstream"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const requestTimeout = 90 * time.Second

type Params struct {
	fx.In

	Log         *zap.Logger
	Credentials credential.Source
}

// Client talks to the member directory service.
type Client struct {
	log         *zap.Logger
	credentials credential.Source
	client      *http.Client
}

func NewClient(p Params) *Client {
	return &Client{
		log:         p.Log.Named("member.directory"),
		credentials: p.Credentials,
		client:      &http.Client{Timeout: requestTimeout},
	}
}

type matchResponse struct {
	Status  string                  `json:"status"`
	Matches []domain.MemberIdentity `json:"matches"`
}

func (c *Client) Match(ctx context.Context, tenant config.Tenant, payment paymentdomain.PaymentRecord) (domain.MatchResult, error) {
	body := map[string]field{
		"email1":    {Value: payment.Email},
		"firstName": {Value: payment.FirstName},
		"lastName":  {Value: payment.LastName},
		"zip":       {Value: payment.Zip},
	}

	raw, err := c.doRequest(ctx, tenant, http.MethodPost, "/api/v1/member/match", body)
	if err != nil {
		return domain.MatchResult{}, err
	}

	var resp matchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.MatchResult{}, fmt.Errorf("%w: match endpoint: %v", domain.ErrInvalidMatchResponse, err)
	}
	if resp.Status == "" {
		return domain.MatchResult{}, fmt.Errorf("%w: match endpoint returned no status", domain.ErrInvalidMatchResponse)
	}

	return domain.MatchResult{
		Status:     domain.MatchStatus(resp.Status),
		Candidates: resp.Matches,
	}, nil
}

func (c *Client) FetchMain(ctx context.Context, tenant config.Tenant, candidateID int64) (domain.MemberIdentity, error) {
	raw, err := c.doRequest(ctx, tenant, http.MethodGet, fmt.Sprintf("/api/v1/member/%d/main", candidateID), nil)
	if err != nil {
		return domain.MemberIdentity{}, err
	}
	return decodeMember(raw)
}

func (c *Client) Create(ctx context.Context, tenant config.Tenant, payment paymentdomain.PaymentRecord) (domain.MemberIdentity, error) {
	data := upsertFields(tenant, payment)
	body := make(map[string]field, len(data)+1)
	for k, v := range data {
		body[k] = v
	}
	body["groups"] = field{Value: []int64{tenant.NewMemberGroupID}, Mode: modeAppend}

	raw, err := c.doRequest(ctx, tenant, http.MethodPost, "/api/v1/member", body)
	if err != nil {
		return domain.MemberIdentity{}, err
	}
	return c.fetchByRawID(ctx, tenant, raw)
}

func (c *Client) Update(ctx context.Context, tenant config.Tenant, memberID int64, payment paymentdomain.PaymentRecord) (domain.MemberIdentity, error) {
	body := upsertFields(tenant, payment)

	raw, err := c.doRequest(ctx, tenant, http.MethodPut, fmt.Sprintf("/api/v1/member/%d", memberID), body)
	if err != nil {
		return domain.MemberIdentity{}, err
	}
	return c.fetchByRawID(ctx, tenant, raw)
}

// fetchByRawID reads the full record back after a create or update; those
// endpoints only return the member id.
func (c *Client) fetchByRawID(ctx context.Context, tenant config.Tenant, raw []byte) (domain.MemberIdentity, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil || id == 0 {
		return domain.MemberIdentity{}, fmt.Errorf("%w: %q", domain.ErrInvalidMemberID, strings.TrimSpace(string(raw)))
	}

	memberRaw, err := c.doRequest(ctx, tenant, http.MethodGet, fmt.Sprintf("/api/v1/member/%d", id), nil)
	if err != nil {
		return domain.MemberIdentity{}, err
	}
	return decodeMember(memberRaw)
}

func (c *Client) doRequest(ctx context.Context, tenant config.Tenant, method, path string, body any) ([]byte, error) {
	cred, err := c.credentials.Obtain(ctx, tenant)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	url := strings.TrimRight(tenant.DirectoryAPIURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", cred.Authorization())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, upstream.New("directory", 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstream.New("directory", 0, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, upstream.New("directory", resp.StatusCode, fmt.Errorf("%s %s failed", method, path))
	}
	return raw, nil
}

func decodeMember(raw []byte) (domain.MemberIdentity, error) {
	var member domain.MemberIdentity
	if err := json.Unmarshal(raw, &member); err != nil {
		return domain.MemberIdentity{}, fmt.Errorf("%w: member payload: %v", domain.ErrInvalidMatchResponse, err)
	}
	if member.ID == 0 {
		return domain.MemberIdentity{}, domain.ErrInvalidMemberID
	}
	return member, nil
}

// Module provides the directory client as the Directory boundary.
var Module = fx.Module("member.directory",
	fx.Provide(
		NewClient,
		func(c *Client) domain.Directory { return c },
	),
)
