//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"

	"course-payments/internal/domain"
	"course-payments/internal/domain/model"
	"course-payments/internal/domain/ports/repository"
)

func seedBuyerAndCourse(t *testing.T) (*model.User, *model.Course) {
	t.Helper()
	cleanup(t)
	ctx := context.Background()

	owner, _ := model.NewUser("", "owner@example.com", "Owner", model.RoleTeacher)
	buyer, _ := model.NewUser("", "buyer@example.com", "Buyer", model.RoleStudent)
	if err := NewUserRepo(testPool).Save(ctx, nil, owner); err != nil {
		t.Fatalf("failed to save owner: %v", err)
	}
	if err := NewUserRepo(testPool).Save(ctx, nil, buyer); err != nil {
		t.Fatalf("failed to save buyer: %v", err)
	}

	course, _ := model.NewCourse("", owner.ID, "Go do Zero", 19900, "BRL")
	course.Published = true
	if err := NewCourseRepo(testPool).Save(ctx, nil, course); err != nil {
		t.Fatalf("failed to save course: %v", err)
	}
	return buyer, course
}

func seedPendingSession(t *testing.T, buyer *model.User, course *model.Course, providerSessionID string) *model.CheckoutSession {
	t.Helper()
	ctx := context.Background()
	p := &model.Purchasable{Type: model.PurchasableCourse, ID: course.ID, Title: course.Title, PriceMinor: course.PriceMinor, Currency: course.Currency}
	s, err := model.NewCheckoutSession(providerSessionID, "stripe", buyer.ID, p, "https://pay.example/"+providerSessionID)
	if err != nil {
		t.Fatalf("failed to build session: %v", err)
	}
	s.Metadata = model.CheckoutMetadata{BuyerID: buyer.ID, PurchasableID: course.ID, PurchasableType: model.PurchasableCourse}.Map()
	if err := NewCheckoutSessionRepo(testPool).Save(ctx, nil, s); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	return s
}

func TestCheckoutSessionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewCheckoutSessionRepo(testPool)

	t.Run("should save and find by provider session id", func(t *testing.T) {
		buyer, course := seedBuyerAndCourse(t)
		s := seedPendingSession(t, buyer, course, "cs_test_find")

		got, err := repo.FindByProviderSessionID(ctx, nil, "cs_test_find")
		if err != nil {
			t.Fatalf("FindByProviderSessionID failed: %v", err)
		}
		if got.ID != s.ID || got.Status != model.CheckoutStatusPending {
			t.Errorf("unexpected session: %+v", got)
		}
		if got.AmountMinor != 19900 || got.Currency != "BRL" {
			t.Errorf("declared price not preserved: %d %s", got.AmountMinor, got.Currency)
		}
	})

	t.Run("should reject duplicate provider session id", func(t *testing.T) {
		buyer, course := seedBuyerAndCourse(t)
		seedPendingSession(t, buyer, course, "cs_test_dup")

		p := &model.Purchasable{Type: model.PurchasableCourse, ID: course.ID, Title: course.Title, PriceMinor: course.PriceMinor, Currency: course.Currency}
		again, _ := model.NewCheckoutSession("cs_test_dup", "stripe", buyer.ID, p, "")
		if err := repo.Save(ctx, nil, again); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("MarkCompleted transitions exactly once", func(t *testing.T) {
		buyer, course := seedBuyerAndCourse(t)
		seedPendingSession(t, buyer, course, "cs_test_once")

		first, err := repo.MarkCompleted(ctx, nil, "cs_test_once")
		if err != nil {
			t.Fatalf("MarkCompleted failed: %v", err)
		}
		second, err := repo.MarkCompleted(ctx, nil, "cs_test_once")
		if err != nil {
			t.Fatalf("MarkCompleted replay failed: %v", err)
		}
		if !first || second {
			t.Errorf("expected (true,false), got (%v,%v)", first, second)
		}
	})

	t.Run("ListPendingOlderThan skips completed sessions", func(t *testing.T) {
		buyer, course := seedBuyerAndCourse(t)
		seedPendingSession(t, buyer, course, "cs_stale")
		done := seedPendingSession(t, buyer, course, "cs_done")
		if _, err := repo.MarkCompleted(ctx, nil, done.ProviderSessionID); err != nil {
			t.Fatalf("MarkCompleted failed: %v", err)
		}

		got, err := repo.ListPendingOlderThan(ctx, nil, time.Now().Add(time.Minute), 10)
		if err != nil {
			t.Fatalf("ListPendingOlderThan failed: %v", err)
		}
		if len(got) != 1 || got[0].ProviderSessionID != "cs_stale" {
			t.Errorf("unexpected pending set: %+v", got)
		}
	})
}

func TestPaymentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewPaymentRepo(testPool)

	t.Run("CreateOrComplete inserts once per session", func(t *testing.T) {
		buyer, course := seedBuyerAndCourse(t)
		s := seedPendingSession(t, buyer, course, "cs_pay_once")

		p1, _ := model.NewCompletedPayment(s, "pi_123", false)
		created, err := repo.CreateOrComplete(ctx, nil, p1)
		if err != nil {
			t.Fatalf("first CreateOrComplete failed: %v", err)
		}
		if !created {
			t.Fatal("expected first call to create the payment")
		}

		p2, _ := model.NewCompletedPayment(s, "pi_123", false)
		created, err = repo.CreateOrComplete(ctx, nil, p2)
		if err != nil {
			t.Fatalf("replayed CreateOrComplete failed: %v", err)
		}
		if created {
			t.Error("replay must not create a second payment")
		}

		got, err := repo.FindByCheckoutSessionID(ctx, nil, s.ID)
		if err != nil {
			t.Fatalf("FindByCheckoutSessionID failed: %v", err)
		}
		if got.ID != p1.ID {
			t.Errorf("surviving payment should be the first insert, got %s", got.ID)
		}
		if got.Status != model.PaymentStatusCompleted {
			t.Errorf("unexpected status %s", got.Status)
		}
	})

	t.Run("same provider ref under second session is a replay", func(t *testing.T) {
		buyer, course := seedBuyerAndCourse(t)
		s1 := seedPendingSession(t, buyer, course, "cs_ref_a")
		s2 := seedPendingSession(t, buyer, course, "cs_ref_b")

		p1, _ := model.NewCompletedPayment(s1, "pi_shared", false)
		if _, err := repo.CreateOrComplete(ctx, nil, p1); err != nil {
			t.Fatalf("first CreateOrComplete failed: %v", err)
		}

		p2, _ := model.NewCompletedPayment(s2, "pi_shared", false)
		created, err := repo.CreateOrComplete(ctx, nil, p2)
		if err != nil {
			t.Fatalf("conflicting provider ref should not error: %v", err)
		}
		if created {
			t.Error("duplicate provider ref must not create a second payment")
		}
	})

	t.Run("conflicting provider ref inside a transaction still commits", func(t *testing.T) {
		buyer, course := seedBuyerAndCourse(t)
		s1 := seedPendingSession(t, buyer, course, "cs_tx_a")
		s2 := seedPendingSession(t, buyer, course, "cs_tx_b")

		p1, _ := model.NewCompletedPayment(s1, "pi_tx_shared", false)
		if _, err := repo.CreateOrComplete(ctx, nil, p1); err != nil {
			t.Fatalf("first CreateOrComplete failed: %v", err)
		}

		sessions := NewCheckoutSessionRepo(testPool)
		tm := NewTxManager(testPool)
		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if _, err := sessions.MarkCompleted(ctx, tx, s2.ProviderSessionID); err != nil {
				return err
			}
			p2, _ := model.NewCompletedPayment(s2, "pi_tx_shared", false)
			created, err := repo.CreateOrComplete(ctx, tx, p2)
			if err != nil {
				return err
			}
			if created {
				t.Error("duplicate provider ref must not create a second payment")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("duplicate provider ref must not abort the transaction: %v", err)
		}

		got, err := sessions.FindByProviderSessionID(ctx, nil, s2.ProviderSessionID)
		if err != nil {
			t.Fatalf("FindByProviderSessionID failed: %v", err)
		}
		if got.Status != model.CheckoutStatusCompleted {
			t.Errorf("writes before the duplicate must commit, session status %s", got.Status)
		}
	})

	t.Run("distinct session and ref records a second payment", func(t *testing.T) {
		buyer, course := seedBuyerAndCourse(t)
		s1 := seedPendingSession(t, buyer, course, "cs_retry_1")
		s2 := seedPendingSession(t, buyer, course, "cs_retry_2")

		p1, _ := model.NewCompletedPayment(s1, "pi_first", false)
		if _, err := repo.CreateOrComplete(ctx, nil, p1); err != nil {
			t.Fatalf("first payment failed: %v", err)
		}
		p2, _ := model.NewCompletedPayment(s2, "pi_second", false)
		created, err := repo.CreateOrComplete(ctx, nil, p2)
		if err != nil {
			t.Fatalf("second payment failed: %v", err)
		}
		if !created {
			t.Error("a genuinely new session and ref must record a new payment")
		}
	})

	t.Run("MarkRefunded only touches completed payments", func(t *testing.T) {
		buyer, course := seedBuyerAndCourse(t)
		s := seedPendingSession(t, buyer, course, "cs_refund")
		p, _ := model.NewCompletedPayment(s, "pi_refund", false)
		if _, err := repo.CreateOrComplete(ctx, nil, p); err != nil {
			t.Fatalf("CreateOrComplete failed: %v", err)
		}

		if err := repo.MarkRefunded(ctx, nil, p.ID); err != nil {
			t.Fatalf("MarkRefunded failed: %v", err)
		}
		got, _ := repo.FindByProviderRef(ctx, nil, "pi_refund")
		if got.Status != model.PaymentStatusRefunded {
			t.Errorf("unexpected status %s", got.Status)
		}
		if err := repo.MarkRefunded(ctx, nil, p.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("double refund should report ErrNotFound, got %v", err)
		}
	})
}
