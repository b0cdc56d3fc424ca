package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/ledgerbridge/internal/config"
	"github.com/smallbiznis/ledgerbridge/internal/member/domain"
	paymentdomain "github.com/smallbiznis/ledgerbridge/internal/payment/domain"
	"go.uber.org/zap"
)

type fakeDirectory struct {
	match    domain.MatchResult
	matchErr error

	main    domain.MemberIdentity
	created domain.MemberIdentity
	updated domain.MemberIdentity

	matchCalls     int
	fetchMainCalls int
	createCalls    int
	updateCalls    int
	lastUpdatedID  int64
}

func (f *fakeDirectory) Match(ctx context.Context, tenant config.Tenant, payment paymentdomain.PaymentRecord) (domain.MatchResult, error) {
	f.matchCalls++
	return f.match, f.matchErr
}

func (f *fakeDirectory) FetchMain(ctx context.Context, tenant config.Tenant, candidateID int64) (domain.MemberIdentity, error) {
	f.fetchMainCalls++
	return f.main, nil
}

func (f *fakeDirectory) Create(ctx context.Context, tenant config.Tenant, payment paymentdomain.PaymentRecord) (domain.MemberIdentity, error) {
	f.createCalls++
	return f.created, nil
}

func (f *fakeDirectory) Update(ctx context.Context, tenant config.Tenant, memberID int64, payment paymentdomain.PaymentRecord) (domain.MemberIdentity, error) {
	f.updateCalls++
	f.lastUpdatedID = memberID
	return f.updated, nil
}

func newResolver(dir domain.Directory) domain.Resolver {
	return NewService(Params{Log: zap.NewNop(), Directory: dir})
}

func testPayment() paymentdomain.PaymentRecord {
	return paymentdomain.PaymentRecord{
		TransactionID: "tx-1",
		Amount:        5000,
		CreatedAt:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Language:      "de",
		Salutation:    "ms",
		FirstName:     "Anna",
		LastName:      "Muster",
		Address1:      "Musterweg 7",
		Zip:           "8000",
		City:          "Zurich",
		Country:       "CH",
		Email:         "anna@example.com",
	}
}

func completeMember(id int64) domain.MemberIdentity {
	return domain.MemberIdentity{
		ID:       id,
		Address1: "Musterweg 7",
		Zip:      "8000",
		City:     "Zurich",
	}
}

func TestResolveExactMatchComplete(t *testing.T) {
	dir := &fakeDirectory{
		match: domain.MatchResult{
			Status:     domain.MatchExact,
			Candidates: []domain.MemberIdentity{completeMember(42)},
		},
	}

	id, resolved, err := newResolver(dir).Resolve(context.Background(), config.Tenant{Name: "acme"}, testPayment())
	if err != nil {
		t.Fatal(err)
	}
	if !resolved || id != 42 {
		t.Fatalf("expected member 42 resolved, got id=%d resolved=%t", id, resolved)
	}
	if dir.updateCalls != 0 {
		t.Fatalf("expected no repair of a complete record, got %d updates", dir.updateCalls)
	}
}

func TestResolveExactMatchRepairsIncompleteAddress(t *testing.T) {
	incomplete := completeMember(42)
	incomplete.Address1 = ""
	dir := &fakeDirectory{
		match: domain.MatchResult{
			Status:     domain.MatchExact,
			Candidates: []domain.MemberIdentity{incomplete},
		},
		updated: completeMember(42),
	}

	id, resolved, err := newResolver(dir).Resolve(context.Background(), config.Tenant{Name: "acme"}, testPayment())
	if err != nil {
		t.Fatal(err)
	}
	if !resolved || id != 42 {
		t.Fatalf("expected member 42 resolved, got id=%d resolved=%t", id, resolved)
	}
	if dir.updateCalls != 1 || dir.lastUpdatedID != 42 {
		t.Fatalf("expected one repair of member 42, got %d updates of %d", dir.updateCalls, dir.lastUpdatedID)
	}
}

func TestResolveExactMatchRepairsOnNewsletterOptIn(t *testing.T) {
	dir := &fakeDirectory{
		match: domain.MatchResult{
			Status:     domain.MatchExact,
			Candidates: []domain.MemberIdentity{completeMember(42)},
		},
		updated: completeMember(42),
	}

	payment := testPayment()
	payment.NewsletterOptIn = true

	_, _, err := newResolver(dir).Resolve(context.Background(), config.Tenant{Name: "acme"}, payment)
	if err != nil {
		t.Fatal(err)
	}
	if dir.updateCalls != 1 {
		t.Fatalf("expected opt-in to trigger an update, got %d updates", dir.updateCalls)
	}
}

func TestResolveMultipleMatchUsesMainRecord(t *testing.T) {
	dir := &fakeDirectory{
		match: domain.MatchResult{
			Status:     domain.MatchMultiple,
			Candidates: []domain.MemberIdentity{completeMember(10), completeMember(11)},
		},
		main: completeMember(99),
	}

	id, resolved, err := newResolver(dir).Resolve(context.Background(), config.Tenant{Name: "acme"}, testPayment())
	if err != nil {
		t.Fatal(err)
	}
	if !resolved || id != 99 {
		t.Fatalf("expected main member 99, got id=%d resolved=%t", id, resolved)
	}
	if dir.fetchMainCalls != 1 {
		t.Fatalf("expected one main record fetch, got %d", dir.fetchMainCalls)
	}
}

func TestResolveNoMatchCreatesWithoutRepair(t *testing.T) {
	dir := &fakeDirectory{
		// fresh records start without a complete address in the
		// directory's response; they must still not be repaired
		match:   domain.MatchResult{Status: domain.MatchNone},
		created: domain.MemberIdentity{ID: 7},
	}

	payment := testPayment()
	payment.NewsletterOptIn = true

	id, resolved, err := newResolver(dir).Resolve(context.Background(), config.Tenant{Name: "acme"}, payment)
	if err != nil {
		t.Fatal(err)
	}
	if !resolved || id != 7 {
		t.Fatalf("expected created member 7, got id=%d resolved=%t", id, resolved)
	}
	if dir.createCalls != 1 {
		t.Fatalf("expected one create, got %d", dir.createCalls)
	}
	if dir.updateCalls != 0 {
		t.Fatalf("expected no update after create, got %d", dir.updateCalls)
	}
}

func TestResolveAmbiguousMatchIsNotAnError(t *testing.T) {
	dir := &fakeDirectory{
		match: domain.MatchResult{Status: domain.MatchAmbiguous},
	}

	id, resolved, err := newResolver(dir).Resolve(context.Background(), config.Tenant{Name: "acme"}, testPayment())
	if err != nil {
		t.Fatal(err)
	}
	if resolved || id != 0 {
		t.Fatalf("expected unresolved, got id=%d resolved=%t", id, resolved)
	}
	if dir.fetchMainCalls+dir.createCalls+dir.updateCalls != 0 {
		t.Fatal("expected no directory calls after an ambiguous match")
	}
}

func TestResolveUnknownStatusFails(t *testing.T) {
	dir := &fakeDirectory{
		match: domain.MatchResult{Status: "garbage"},
	}

	_, _, err := newResolver(dir).Resolve(context.Background(), config.Tenant{Name: "acme"}, testPayment())
	if !errors.Is(err, domain.ErrInvalidMatchResponse) {
		t.Fatalf("expected ErrInvalidMatchResponse, got %v", err)
	}
}

func TestResolveExactMatchWithoutCandidatesFails(t *testing.T) {
	dir := &fakeDirectory{
		match: domain.MatchResult{Status: domain.MatchExact},
	}

	_, _, err := newResolver(dir).Resolve(context.Background(), config.Tenant{Name: "acme"}, testPayment())
	if !errors.Is(err, domain.ErrInvalidMatchResponse) {
		t.Fatalf("expected ErrInvalidMatchResponse, got %v", err)
	}
}
