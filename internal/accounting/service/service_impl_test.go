package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerbridge/internal/accounting/domain"
	"github.com/smallbiznis/ledgerbridge/internal/accounting/repository"
	"github.com/smallbiznis/ledgerbridge/internal/config"
	paymentdomain "github.com/smallbiznis/ledgerbridge/internal/payment/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:memdb_accounting_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&domain.Config{}); err != nil {
		t.Fatal(err)
	}
	return db
}

type countingLedger struct {
	period       domain.Period
	periodErr    error
	accountsByID map[int64]int64

	periodCalls  int
	accountCalls int
}

func (f *countingLedger) FindPeriod(ctx context.Context, tenant config.Tenant, date time.Time) (domain.Period, error) {
	f.periodCalls++
	if f.periodErr != nil {
		return domain.Period{}, f.periodErr
	}
	return f.period, nil
}

func (f *countingLedger) FindAccount(ctx context.Context, tenant config.Tenant, periodID, templateID int64) (int64, error) {
	f.accountCalls++
	id, ok := f.accountsByID[templateID]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	return id, nil
}

func (f *countingLedger) EntryExists(ctx context.Context, tenant config.Tenant, transactionID string, periodID int64) (bool, error) {
	return false, errors.New("unexpected EntryExists call")
}

func (f *countingLedger) CreateDebtor(ctx context.Context, tenant config.Tenant, memberID int64, payment paymentdomain.PaymentRecord, cfg domain.Config) error {
	return errors.New("unexpected CreateDebtor call")
}

func accountingTenant() config.Tenant {
	return config.Tenant{
		Name:               "acme",
		PeriodGroupID:      100,
		DonationTemplateID: 1,
		DebtorTemplateID:   2,
		BankTemplateID:     3,
	}
}

func newAccountingService(t *testing.T, ledger *countingLedger) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatal(err)
	}
	return NewService(Params{
		DB:     newTestDB(t),
		Log:    zap.NewNop(),
		GenID:  node,
		Ledger: ledger,
		Repo:   repository.Provide(),
	})
}

func yearPeriod(id int64, year int) domain.Period {
	return domain.Period{
		ID:   id,
		From: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(year, 12, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestResolveCachesPerPeriod(t *testing.T) {
	ledger := &countingLedger{
		period:       yearPeriod(500, 2026),
		accountsByID: map[int64]int64{1: 11, 2: 22, 3: 33},
	}
	svc := newAccountingService(t, ledger)

	first, err := svc.Resolve(context.Background(), accountingTenant(), time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if first.PeriodID != 500 || first.DonationAccountID != 11 || first.DebtorAccountID != 22 || first.BankAccountID != 33 {
		t.Fatalf("unexpected resolved config: %+v", first)
	}

	// a second date in the same period must come from the cache
	second, err := svc.Resolve(context.Background(), accountingTenant(), time.Date(2026, 11, 2, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if second.PeriodID != first.PeriodID || second.DonationAccountID != first.DonationAccountID {
		t.Fatalf("expected identical cached config, got %+v vs %+v", second, first)
	}
	if ledger.periodCalls != 1 {
		t.Fatalf("expected one period lookup, got %d", ledger.periodCalls)
	}
	if ledger.accountCalls != 3 {
		t.Fatalf("expected three account lookups, got %d", ledger.accountCalls)
	}
}

func TestResolveMissesAcrossPeriods(t *testing.T) {
	ledger := &countingLedger{
		period:       yearPeriod(500, 2026),
		accountsByID: map[int64]int64{1: 11, 2: 22, 3: 33},
	}
	svc := newAccountingService(t, ledger)

	if _, err := svc.Resolve(context.Background(), accountingTenant(), time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}

	ledger.period = yearPeriod(501, 2027)
	next, err := svc.Resolve(context.Background(), accountingTenant(), time.Date(2027, 1, 5, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if next.PeriodID != 501 {
		t.Fatalf("expected new period 501, got %d", next.PeriodID)
	}
	if ledger.periodCalls != 2 {
		t.Fatalf("expected two period lookups, got %d", ledger.periodCalls)
	}
}

func TestResolveMissesWhenTemplatesChange(t *testing.T) {
	ledger := &countingLedger{
		period:       yearPeriod(500, 2026),
		accountsByID: map[int64]int64{1: 11, 2: 22, 3: 33, 4: 44},
	}
	svc := newAccountingService(t, ledger)

	date := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if _, err := svc.Resolve(context.Background(), accountingTenant(), date); err != nil {
		t.Fatal(err)
	}

	// changing a template id rotates the digest and bypasses the cache
	changed := accountingTenant()
	changed.BankTemplateID = 4
	cfg, err := svc.Resolve(context.Background(), changed, date)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BankAccountID != 44 {
		t.Fatalf("expected account from new template, got %d", cfg.BankAccountID)
	}
	if ledger.periodCalls != 2 {
		t.Fatalf("expected a fresh period lookup after template change, got %d", ledger.periodCalls)
	}
}

func TestResolvePeriodNotFound(t *testing.T) {
	ledger := &countingLedger{periodErr: domain.ErrPeriodNotFound}
	svc := newAccountingService(t, ledger)

	_, err := svc.Resolve(context.Background(), accountingTenant(), time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	if !errors.Is(err, domain.ErrPeriodNotFound) {
		t.Fatalf("expected ErrPeriodNotFound, got %v", err)
	}
}

func TestResolveAccountNotFound(t *testing.T) {
	ledger := &countingLedger{
		period:       yearPeriod(500, 2026),
		accountsByID: map[int64]int64{1: 11, 2: 22}, // bank template unmapped
	}
	svc := newAccountingService(t, ledger)

	_, err := svc.Resolve(context.Background(), accountingTenant(), time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
