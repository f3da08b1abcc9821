package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/ledgerbus/ledgerbus/internal/events"
	"github.com/ledgerbus/ledgerbus/internal/logging"
	"github.com/ledgerbus/ledgerbus/internal/profile"
)

type capturePublisher struct {
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, event events.Event) {
	p.events = append(p.events, event)
}

func newTestService(t *testing.T) (*Service, *capturePublisher, *profile.StaticClient) {
	t.Helper()
	store := NewMemoryStore()
	publisher := &capturePublisher{}
	profiles := profile.NewStaticClient()
	svc := NewService(store, NewNumberGenerator(store, 5), publisher, profiles, logging.Discard())
	return svc, publisher, profiles
}

func TestServiceCreateAccountDefaults(t *testing.T) {
	svc, publisher, _ := newTestService(t)
	ctx := context.Background()

	checking, err := svc.CreateAccount(ctx, CreateAccountInput{OwnerID: "owner-1", Type: TypeChecking, InitialDeposit: 500})
	if err != nil {
		t.Fatalf("create checking: %v", err)
	}
	if checking.OverdraftLimit != 0 {
		t.Fatalf("expected default overdraft 0, got %d", checking.OverdraftLimit)
	}
	if checking.Balance != 500 {
		t.Fatalf("expected initial balance 500, got %d", checking.Balance)
	}
	if !checking.Active {
		t.Fatal("expected new account to be active")
	}

	savings, err := svc.CreateAccount(ctx, CreateAccountInput{OwnerID: "owner-1", Type: TypeSavings})
	if err != nil {
		t.Fatalf("create savings: %v", err)
	}
	if savings.InterestRate.String() != "0.01" {
		t.Fatalf("expected default interest rate 0.01, got %s", savings.InterestRate)
	}

	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(publisher.events))
	}
	if publisher.events[0].Kind != events.KindAccountCreated {
		t.Fatalf("unexpected event kind %s", publisher.events[0].Kind)
	}
	if publisher.events[0].AccountNumber != checking.Number {
		t.Fatalf("event carries wrong account number %s", publisher.events[0].AccountNumber)
	}
}

func TestServiceCreateAccountValidation(t *testing.T) {
	svc, publisher, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, CreateAccountInput{Type: TypeChecking}); err == nil {
		t.Fatal("expected error for missing owner")
	}
	if _, err := svc.CreateAccount(ctx, CreateAccountInput{OwnerID: "o", Type: "money-market"}); err == nil {
		t.Fatal("expected error for unknown type")
	}
	if _, err := svc.CreateAccount(ctx, CreateAccountInput{OwnerID: "o", Type: TypeChecking, InitialDeposit: -1}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("events emitted for failed creates: %d", len(publisher.events))
	}
}

func TestServiceDepositRejectsNonPositiveAmounts(t *testing.T) {
	svc, publisher, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountInput{OwnerID: "o", Type: TypeChecking})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	publisher.events = nil

	if _, err := svc.Deposit(ctx, account.Number, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for zero, got %v", err)
	}
	if _, err := svc.Deposit(ctx, account.Number, -50); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for negative, got %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("events emitted for rejected deposits: %d", len(publisher.events))
	}
}

func TestServiceWithdrawEmitsResultingBalance(t *testing.T) {
	svc, publisher, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountInput{OwnerID: "o", Type: TypeSavings, InitialDeposit: 10_000})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	publisher.events = nil

	if _, err := svc.Withdraw(ctx, account.Number, 4_000); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Kind != events.KindWithdrawal {
		t.Fatalf("unexpected kind %s", event.Kind)
	}
	if event.Amount != 4_000 || event.ResultingBalance != 6_000 {
		t.Fatalf("unexpected event amounts: %+v", event)
	}
}

func TestServiceTransferEmitsSingleEvent(t *testing.T) {
	svc, publisher, _ := newTestService(t)
	ctx := context.Background()

	from, err := svc.CreateAccount(ctx, CreateAccountInput{OwnerID: "o", Type: TypeChecking, InitialDeposit: 100_000})
	if err != nil {
		t.Fatalf("create from: %v", err)
	}
	to, err := svc.CreateAccount(ctx, CreateAccountInput{OwnerID: "o", Type: TypeSavings, InitialDeposit: 200_000})
	if err != nil {
		t.Fatalf("create to: %v", err)
	}
	publisher.events = nil

	res, err := svc.Transfer(ctx, from.Number, to.Number, 30_000)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.From.Balance != 70_000 || res.To.Balance != 230_000 {
		t.Fatalf("unexpected balances: %d / %d", res.From.Balance, res.To.Balance)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected exactly 1 transfer event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Kind != events.KindTransfer {
		t.Fatalf("unexpected kind %s", event.Kind)
	}
	if event.AccountNumber != from.Number || event.CounterpartyNumber != to.Number {
		t.Fatalf("event references wrong accounts: %+v", event)
	}
	if event.ResultingBalance != 70_000 {
		t.Fatalf("expected source resulting balance 70000, got %d", event.ResultingBalance)
	}
}

func TestServiceSelfTransferRejected(t *testing.T) {
	svc, publisher, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountInput{OwnerID: "o", Type: TypeChecking, InitialDeposit: 10_000})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	publisher.events = nil

	if _, err := svc.Transfer(ctx, account.Number, account.Number, 100); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected self transfer error, got %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("event emitted for rejected transfer: %d", len(publisher.events))
	}

	got, err := svc.GetByNumber(ctx, account.Number)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Balance != 10_000 {
		t.Fatalf("balance changed on rejected transfer: %d", got.Balance)
	}
}

func TestServiceDeactivateEmitsEventAndBlocksMutations(t *testing.T) {
	svc, publisher, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountInput{OwnerID: "o", Type: TypeChecking, InitialDeposit: 5_000})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	publisher.events = nil

	if _, err := svc.Deactivate(ctx, account.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if len(publisher.events) != 1 || publisher.events[0].Kind != events.KindAccountDeactivated {
		t.Fatalf("expected one deactivation event, got %+v", publisher.events)
	}

	if _, err := svc.Deposit(ctx, account.Number, 100); !errors.Is(err, ErrAccountClosed) {
		t.Fatalf("expected closed account, got %v", err)
	}
}

func TestServiceEnrichmentDegradesGracefully(t *testing.T) {
	svc, _, profiles := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountInput{OwnerID: "owner-9", Type: TypeSavings})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := svc.Get(ctx, account.ID)
	if err != nil {
		t.Fatalf("get without profile: %v", err)
	}
	if view.Owner != nil {
		t.Fatalf("expected nil owner when lookup unavailable, got %+v", view.Owner)
	}

	profiles.Add(profile.Profile{ID: "owner-9", FirstName: "Ada", Email: "ada@example.com"})

	view, err = svc.Get(ctx, account.ID)
	if err != nil {
		t.Fatalf("get with profile: %v", err)
	}
	if view.Owner == nil || view.Owner.Email != "ada@example.com" {
		t.Fatalf("expected enriched owner, got %+v", view.Owner)
	}
}
