// internal/usecase/entitlement_uc_test.go
package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"billing-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLedger struct {
	payments     []*domain.PaymentRecord
	consumptions []*domain.CreditConsumption
	paymentErr   error
}

func (f *fakeLedger) RecordPayment(_ context.Context, rec *domain.PaymentRecord) error {
	if f.paymentErr != nil {
		return f.paymentErr
	}
	f.payments = append(f.payments, rec)
	return nil
}

func (f *fakeLedger) RecordCreditConsumption(_ context.Context, c *domain.CreditConsumption) error {
	f.consumptions = append(f.consumptions, c)
	return nil
}

type fakeSubsRepo struct {
	active   *domain.Subscription
	created  []*domain.Subscription
	extended map[int64]time.Time
}

func newFakeSubsRepo() *fakeSubsRepo {
	return &fakeSubsRepo{extended: make(map[int64]time.Time)}
}

func (f *fakeSubsRepo) GetActive(context.Context, string, time.Time) (*domain.Subscription, error) {
	return f.active, nil
}

func (f *fakeSubsRepo) Create(_ context.Context, sub *domain.Subscription) error {
	f.created = append(f.created, sub)
	return nil
}

func (f *fakeSubsRepo) ExtendEnd(_ context.Context, id int64, newEnd time.Time) error {
	f.extended[id] = newEnd
	return nil
}

func (f *fakeSubsRepo) ExpireLapsed(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeCredits struct {
	credit decimal.Decimal
	err    error
}

func (f *fakeCredits) GetCredit(context.Context, string) (decimal.Decimal, error) {
	return f.credit, f.err
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, _ string, eventKind string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, eventKind)
	return nil
}

type fakePublisher struct {
	events []*PaymentEvent
}

func (f *fakePublisher) PublishPaymentEvent(_ context.Context, e *PaymentEvent) error {
	f.events = append(f.events, e)
	return nil
}

func completedTx() *domain.Transaction {
	method := "pix"
	return &domain.Transaction{
		ReferenceID:   "ref-1",
		UserID:        "user-1",
		Amount:        decimal.RequireFromString("25.00"),
		Provider:      domain.ProviderBankPix,
		Status:        domain.TxStatusCompleted,
		PaymentMethod: &method,
	}
}

func newEntitlementForTest(ledger *fakeLedger, subs *fakeSubsRepo, credits *fakeCredits, notifier *fakeNotifier, publisher *fakePublisher) *EntitlementUsecase {
	uc := NewEntitlementUsecase(ledger, subs, credits, notifier, publisher,
		"premium", 30, decimal.RequireFromString("35.00"), zap.NewNop())
	uc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return uc
}

func TestApplyCreatesSubscriptionAndLedger(t *testing.T) {
	ledger := &fakeLedger{}
	subs := newFakeSubsRepo()
	credits := &fakeCredits{credit: decimal.RequireFromString("10.00")}
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{}
	uc := newEntitlementForTest(ledger, subs, credits, notifier, publisher)

	require.NoError(t, uc.Apply(context.Background(), completedTx()))

	require.Len(t, ledger.payments, 1)
	require.Equal(t, "ref-1", ledger.payments[0].ReferenceID)
	require.True(t, ledger.payments[0].Amount.Equal(decimal.RequireFromString("25.00")))

	require.Len(t, subs.created, 1)
	sub := subs.created[0]
	require.Equal(t, "premium", sub.PlanID)
	require.Equal(t, 30*24*time.Hour, sub.EndDate.Sub(sub.StartDate))

	// Credit used is capped at what was actually available: 10.00 of the
	// 35.00 base fee.
	require.Len(t, ledger.consumptions, 1)
	require.True(t, ledger.consumptions[0].Amount.Equal(decimal.RequireFromString("10.00")))

	require.Equal(t, []string{"payment_confirmed"}, notifier.sent)
	require.Len(t, publisher.events, 1)
	require.Equal(t, "payment_completed", publisher.events[0].EventType)
}

func TestApplyExtendsActiveSubscription(t *testing.T) {
	end := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	subs := newFakeSubsRepo()
	subs.active = &domain.Subscription{
		ID:      7,
		UserID:  "user-1",
		EndDate: end,
		Status:  domain.SubscriptionActive,
	}
	uc := newEntitlementForTest(&fakeLedger{}, subs, &fakeCredits{credit: decimal.Zero}, &fakeNotifier{}, &fakePublisher{})

	require.NoError(t, uc.Apply(context.Background(), completedTx()))

	require.Empty(t, subs.created)
	require.Equal(t, end.Add(30*24*time.Hour), subs.extended[7])
}

func TestApplyCreditCappedAtBaseFee(t *testing.T) {
	ledger := &fakeLedger{}
	credits := &fakeCredits{credit: decimal.RequireFromString("50.00")}
	uc := newEntitlementForTest(ledger, newFakeSubsRepo(), credits, &fakeNotifier{}, &fakePublisher{})

	require.NoError(t, uc.Apply(context.Background(), completedTx()))

	require.Len(t, ledger.consumptions, 1)
	require.True(t, ledger.consumptions[0].Amount.Equal(decimal.RequireFromString("35.00")))
}

func TestApplyNoConsumptionWithoutCredit(t *testing.T) {
	ledger := &fakeLedger{}
	uc := newEntitlementForTest(ledger, newFakeSubsRepo(), &fakeCredits{credit: decimal.Zero}, &fakeNotifier{}, &fakePublisher{})

	require.NoError(t, uc.Apply(context.Background(), completedTx()))
	require.Empty(t, ledger.consumptions)
}

func TestApplyContinuesWhenLedgerFails(t *testing.T) {
	ledger := &fakeLedger{paymentErr: errors.New("db down")}
	subs := newFakeSubsRepo()
	notifier := &fakeNotifier{}
	uc := newEntitlementForTest(ledger, subs, &fakeCredits{credit: decimal.Zero}, notifier, &fakePublisher{})

	require.NoError(t, uc.Apply(context.Background(), completedTx()))

	// Entitlement was still granted despite the ledger failure.
	require.Len(t, subs.created, 1)
	require.Equal(t, []string{"payment_confirmed"}, notifier.sent)
}

func TestApplyContinuesWhenNotifierFails(t *testing.T) {
	subs := newFakeSubsRepo()
	publisher := &fakePublisher{}
	uc := newEntitlementForTest(&fakeLedger{}, subs, &fakeCredits{credit: decimal.Zero}, &fakeNotifier{err: errors.New("smtp down")}, publisher)

	require.NoError(t, uc.Apply(context.Background(), completedTx()))
	require.Len(t, subs.created, 1)
	require.Len(t, publisher.events, 1)
}
