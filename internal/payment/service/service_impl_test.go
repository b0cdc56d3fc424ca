package service

import (
	"context"
	"errors"
	"testing"
	"time"

	accountingdomain "github.com/smallbiznis/ledgerbridge/internal/accounting/domain"
	"github.com/smallbiznis/ledgerbridge/internal/config"
	"github.com/smallbiznis/ledgerbridge/internal/lock"
	"github.com/smallbiznis/ledgerbridge/internal/payment/domain"
	"go.uber.org/zap"
)

type fakeAccounting struct {
	cfg   accountingdomain.Config
	err   error
	calls int
}

func (f *fakeAccounting) Resolve(ctx context.Context, tenant config.Tenant, paymentDate time.Time) (accountingdomain.Config, error) {
	f.calls++
	return f.cfg, f.err
}

type fakeLedger struct {
	exists    bool
	existsErr error
	createErr error

	existsCalls int
	createCalls int
}

func (f *fakeLedger) FindPeriod(ctx context.Context, tenant config.Tenant, date time.Time) (accountingdomain.Period, error) {
	return accountingdomain.Period{}, errors.New("unexpected FindPeriod call")
}

func (f *fakeLedger) FindAccount(ctx context.Context, tenant config.Tenant, periodID, templateID int64) (int64, error) {
	return 0, errors.New("unexpected FindAccount call")
}

func (f *fakeLedger) EntryExists(ctx context.Context, tenant config.Tenant, transactionID string, periodID int64) (bool, error) {
	f.existsCalls++
	return f.exists, f.existsErr
}

func (f *fakeLedger) CreateDebtor(ctx context.Context, tenant config.Tenant, memberID int64, payment domain.PaymentRecord, cfg accountingdomain.Config) error {
	f.createCalls++
	return f.createErr
}

func newRecorder(ledger *fakeLedger, accounting *fakeAccounting, locker lock.TryLocker) domain.Recorder {
	return NewService(Params{
		Log:        zap.NewNop(),
		Ledger:     ledger,
		Accounting: accounting,
		Locker:     locker,
	})
}

func recorderPayment() domain.PaymentRecord {
	return domain.PaymentRecord{
		TransactionID: "tx-77",
		Amount:        2500,
		CreatedAt:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecordAddsNewPayment(t *testing.T) {
	ledger := &fakeLedger{}
	state, err := newRecorder(ledger, &fakeAccounting{}, lock.NewMemoryLocker()).
		Record(context.Background(), config.Tenant{Name: "acme"}, recorderPayment(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if state != domain.StateAdded {
		t.Fatalf("expected state added, got %s", state)
	}
	if ledger.existsCalls != 1 || ledger.createCalls != 1 {
		t.Fatalf("expected one existence check and one create, got %d/%d", ledger.existsCalls, ledger.createCalls)
	}
}

func TestRecordSkipsExistingPayment(t *testing.T) {
	ledger := &fakeLedger{exists: true}
	state, err := newRecorder(ledger, &fakeAccounting{}, lock.NewMemoryLocker()).
		Record(context.Background(), config.Tenant{Name: "acme"}, recorderPayment(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if state != domain.StateExists {
		t.Fatalf("expected state exists, got %s", state)
	}
	if ledger.createCalls != 0 {
		t.Fatalf("expected no create for an existing payment, got %d", ledger.createCalls)
	}
}

func TestRecordLockedWhileAnotherDeliveryHoldsTheLock(t *testing.T) {
	locker := lock.NewMemoryLocker()
	payment := recorderPayment()

	_, ok, err := locker.TryLock(context.Background(), "payment:acme:"+payment.TransactionID, time.Minute)
	if err != nil || !ok {
		t.Fatalf("could not pre-acquire lock: ok=%t err=%v", ok, err)
	}

	ledger := &fakeLedger{}
	accounting := &fakeAccounting{}
	state, err := newRecorder(ledger, accounting, locker).
		Record(context.Background(), config.Tenant{Name: "acme"}, payment, 42)
	if err != nil {
		t.Fatal(err)
	}
	if state != domain.StateLocked {
		t.Fatalf("expected state locked, got %s", state)
	}
	if accounting.calls != 0 || ledger.existsCalls != 0 || ledger.createCalls != 0 {
		t.Fatal("expected no upstream calls while locked")
	}
}

func TestRecordReleasesLockAfterCompletion(t *testing.T) {
	locker := lock.NewMemoryLocker()
	payment := recorderPayment()
	recorder := newRecorder(&fakeLedger{}, &fakeAccounting{}, locker)

	if _, err := recorder.Record(context.Background(), config.Tenant{Name: "acme"}, payment, 42); err != nil {
		t.Fatal(err)
	}

	// a followup delivery must be able to acquire the lock again
	state, err := recorder.Record(context.Background(), config.Tenant{Name: "acme"}, payment, 42)
	if err != nil {
		t.Fatal(err)
	}
	if state == domain.StateLocked {
		t.Fatal("expected the lock to be released after the first delivery")
	}
}

func TestRecordReleasesLockOnError(t *testing.T) {
	locker := lock.NewMemoryLocker()
	payment := recorderPayment()
	accounting := &fakeAccounting{err: accountingdomain.ErrPeriodNotFound}
	recorder := newRecorder(&fakeLedger{}, accounting, locker)

	_, err := recorder.Record(context.Background(), config.Tenant{Name: "acme"}, payment, 42)
	if !errors.Is(err, accountingdomain.ErrPeriodNotFound) {
		t.Fatalf("expected ErrPeriodNotFound, got %v", err)
	}

	_, ok, err := locker.TryLock(context.Background(), "payment:acme:"+payment.TransactionID, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected the lock to be released after a failed delivery")
	}
}

func TestRecordCreateFailurePropagates(t *testing.T) {
	ledger := &fakeLedger{createErr: errors.New("ledger down")}
	_, err := newRecorder(ledger, &fakeAccounting{}, lock.NewMemoryLocker()).
		Record(context.Background(), config.Tenant{Name: "acme"}, recorderPayment(), 42)
	if err == nil {
		t.Fatal("expected create failure to propagate")
	}
}
