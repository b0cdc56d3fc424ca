package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	accountingdomain "github.com/smallbiznis/ledgerbridge/internal/accounting/domain"
	"github.com/smallbiznis/ledgerbridge/internal/config"
	"github.com/smallbiznis/ledgerbridge/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/ledgerbridge/internal/payment/domain"
	"github.com/smallbiznis/ledgerbridge/pkg/upstream"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const requestTimeout = 90 * time.Second

type Params struct {
	fx.In

	Log *zap.Logger
}

// Client talks to the ledger's REST API.
type Client struct {
	log    *zap.Logger
	client *http.Client
}

func NewClient(p Params) *Client {
	return &Client{
		log:    p.Log.Named("ledger.client"),
		client: &http.Client{Timeout: requestTimeout},
	}
}

// objectList is the ledger's envelope for filtered queries: the matching
// object ids.
type objectList struct {
	Objects []int64 `json:"objects"`
}

type periodDetail struct {
	Properties struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"properties"`
}

func (c *Client) FindPeriod(ctx context.Context, tenant config.Tenant, date time.Time) (accountingdomain.Period, error) {
	filter := fmt.Sprintf(
		`$parents.$id = %d AND `+"`from`"+` <= "%s" AND `+"`to`"+` >= "%s"`,
		tenant.PeriodGroupID,
		date.Format(time.RFC3339),
		date.Format(time.RFC3339),
	)

	var list objectList
	if err := c.get(ctx, tenant, "/api/1/period", filter, &list); err != nil {
		return accountingdomain.Period{}, err
	}
	if len(list.Objects) != 1 {
		return accountingdomain.Period{}, fmt.Errorf("%w: no accounting period for %s",
			accountingdomain.ErrPeriodNotFound, date.Format(time.RFC3339))
	}

	periodID := list.Objects[0]

	var detail periodDetail
	if err := c.get(ctx, tenant, fmt.Sprintf("/api/1/period/%d", periodID), "", &detail); err != nil {
		return accountingdomain.Period{}, err
	}
	from, err := parseLedgerDate(detail.Properties.From)
	if err != nil {
		return accountingdomain.Period{}, fmt.Errorf("%w: period %d from: %v", domain.ErrInvalidResponse, periodID, err)
	}
	to, err := parseLedgerDate(detail.Properties.To)
	if err != nil {
		return accountingdomain.Period{}, fmt.Errorf("%w: period %d to: %v", domain.ErrInvalidResponse, periodID, err)
	}

	return accountingdomain.Period{
		ID:   periodID,
		From: from,
		// the interval is inclusive; extend day-precision bounds to the
		// end of the day
		To: endOfDay(to),
	}, nil
}

func (c *Client) FindAccount(ctx context.Context, tenant config.Tenant, periodID, templateID int64) (int64, error) {
	filter := fmt.Sprintf(
		`$parents.$parents.$id = %d AND $links.accounttemplate.$id = %d`,
		periodID,
		templateID,
	)

	var list objectList
	if err := c.get(ctx, tenant, "/api/1/account", filter, &list); err != nil {
		return 0, err
	}
	switch len(list.Objects) {
	case 0:
		return 0, fmt.Errorf("%w: period %d template %d", accountingdomain.ErrAccountNotFound, periodID, templateID)
	case 1:
		return list.Objects[0], nil
	default:
		return 0, fmt.Errorf("%w: period %d template %d resolves to %d accounts",
			accountingdomain.ErrAccountAmbiguous, periodID, templateID, len(list.Objects))
	}
}

func (c *Client) EntryExists(ctx context.Context, tenant config.Tenant, transactionID string, periodID int64) (bool, error) {
	filter := fmt.Sprintf(
		`state = "paid" AND $links.payment.receipt = "%s" AND $parents.$id = %d`,
		transactionID,
		periodID,
	)

	var list objectList
	if err := c.get(ctx, tenant, "/api/1/debitor", filter, &list); err != nil {
		return false, err
	}
	return len(list.Objects) > 0, nil
}

// entryGroup is one side of the debtor aggregate: a bookkeeping entry with
// credit/debit account links, nested under the period.
type entryGroup struct {
	Properties entryGroupProps `json:"properties"`
	Parents    []entryParent   `json:"parents"`
	Links      entryLinks      `json:"links"`
}

type entryGroupProps struct {
	Amount  float64 `json:"amount"`
	Receipt string  `json:"receipt"`
}

type entryParent struct {
	Properties struct {
		Date  string `json:"date"`
		Title string `json:"title"`
	} `json:"properties"`
	Parents []int64 `json:"parents"`
}

type entryLinks struct {
	Credit []int64 `json:"credit"`
	Debit  []int64 `json:"debit"`
}

type debtorPayload struct {
	Properties struct {
		Title   string `json:"title"`
		Date    string `json:"date"`
		DueDate string `json:"duedate"`
	} `json:"properties"`
	Parents []int64 `json:"parents"`
	Links   struct {
		Revenue        []entryGroup `json:"revenue"`
		Payment        []entryGroup `json:"payment"`
		Member         []int64      `json:"member"`
		DebtorCategory []int64      `json:"debitorcategory"`
	} `json:"links"`
}

func (c *Client) CreateDebtor(ctx context.Context, tenant config.Tenant, memberID int64, payment paymentdomain.PaymentRecord, cfg accountingdomain.Config) error {
	var payload debtorPayload
	payload.Properties.Title = payment.SourceURL
	payload.Properties.Date = payment.CreatedAt.Format(time.RFC3339)
	payload.Properties.DueDate = payment.CreatedAt.Format(time.RFC3339)
	payload.Parents = []int64{cfg.PeriodID}
	payload.Links.Revenue = []entryGroup{
		newEntryGroup(payment, cfg.PeriodID, cfg.DonationAccountID, cfg.DebtorAccountID),
	}
	payload.Links.Payment = []entryGroup{
		newEntryGroup(payment, cfg.PeriodID, cfg.DebtorAccountID, cfg.BankAccountID),
	}
	payload.Links.Member = []int64{memberID}
	payload.Links.DebtorCategory = []int64{tenant.DebtorCategoryID}

	return c.post(ctx, tenant, "/api/1/debitor", payload)
}

func newEntryGroup(payment paymentdomain.PaymentRecord, periodID, creditAccountID, debitAccountID int64) entryGroup {
	group := entryGroup{
		Properties: entryGroupProps{
			Amount:  float64(payment.Amount) / 100,
			Receipt: payment.TransactionID,
		},
		Links: entryLinks{
			Credit: []int64{creditAccountID},
			Debit:  []int64{debitAccountID},
		},
	}

	parent := entryParent{Parents: []int64{periodID}}
	parent.Properties.Date = payment.CreatedAt.Format(time.RFC3339)
	parent.Properties.Title = payment.SourceURL
	group.Parents = []entryParent{parent}

	return group
}

func (c *Client) get(ctx context.Context, tenant config.Tenant, path string, filter string, out any) error {
	endpoint := strings.TrimRight(tenant.LedgerAPIURL, "/") + path
	if filter != "" {
		endpoint += "?filter=" + url.QueryEscape(filter)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", tenant.LedgerAPIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return upstream.New("ledger", 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return upstream.New("ledger", 0, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return upstream.New("ledger", resp.StatusCode, fmt.Errorf("GET %s failed", path))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidResponse, path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, tenant config.Tenant, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := strings.TrimRight(tenant.LedgerAPIURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", tenant.LedgerAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return upstream.New("ledger", 0, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return upstream.New("ledger", resp.StatusCode, fmt.Errorf("POST %s failed", path))
	}
	return nil
}

func parseLedgerDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func endOfDay(ts time.Time) time.Time {
	if ts.Hour() != 0 || ts.Minute() != 0 || ts.Second() != 0 {
		return ts
	}
	return ts.Add(24*time.Hour - time.Nanosecond)
}

// Module provides the ledger client as the Client boundary.
var Module = fx.Module("ledger.client",
	fx.Provide(
		NewClient,
		func(c *Client) domain.Client { return c },
	),
)
