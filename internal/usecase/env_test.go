//go:build !integration

package usecase_test

import (
	"context"
	"testing"

	"course-payments/internal/domain/model"
	"course-payments/internal/usecase"
)

// testEnv wires every use case over in-memory mocks, the way cmd/app wires
// them over Postgres.
type testEnv struct {
	users        *MockUserRepo
	courses      *MockCourseRepo
	features     *MockFeatureRepo
	sessions     *MockCheckoutSessionRepo
	payments     *MockPaymentRepo
	enrollments  *MockEnrollmentRepo
	grants       *MockFeatureGrantRepo
	certificates *MockCertificateRepo
	auditLog     *MockAuditLogRepo
	gateway      *MockCheckoutGateway
	notifier     *MockNotifier
	tm           *MockTxManager

	eligibility  usecase.EligibilityUseCase
	checkout     usecase.CheckoutUseCase
	reconcile    usecase.ReconcileUseCase
	certificate  usecase.CertificateUseCase
	audit        usecase.AuditUseCase
	notification usecase.NotificationUseCase
	admin        usecase.AdminUseCase
}

func newTestEnv() *testEnv {
	e := &testEnv{
		users:        NewMockUserRepo(),
		courses:      NewMockCourseRepo(),
		features:     NewMockFeatureRepo(),
		sessions:     NewMockCheckoutSessionRepo(),
		payments:     NewMockPaymentRepo(),
		enrollments:  NewMockEnrollmentRepo(),
		grants:       NewMockFeatureGrantRepo(),
		certificates: NewMockCertificateRepo(),
		auditLog:     &MockAuditLogRepo{},
		gateway:      NewMockCheckoutGateway(),
		notifier:     &MockNotifier{},
		tm:           &MockTxManager{},
	}
	e.tm.Snapshots = []func() func(){
		e.users.snapshot, e.sessions.snapshot, e.payments.snapshot,
		e.enrollments.snapshot, e.grants.snapshot, e.certificates.snapshot,
		e.auditLog.snapshot,
	}
	log := newTestLogger()
	e.audit = usecase.NewAuditUseCase(e.auditLog, log)
	e.notification = usecase.NewNotificationUseCase(e.users, e.notifier, log)
	e.eligibility = usecase.NewEligibilityUseCase(e.users, e.courses, e.features, e.enrollments, e.grants, log)
	e.checkout = usecase.NewCheckoutUseCase(e.eligibility, e.sessions, e.gateway, "https://app.example/success", "https://app.example/cancel", log)
	e.reconcile = usecase.NewReconcileUseCase(e.sessions, e.payments, e.enrollments, e.grants, e.users,
		e.eligibility, e.gateway, e.tm, e.audit, e.notification, log)
	e.certificate = usecase.NewCertificateUseCase(e.enrollments, e.certificates, e.tm, e.audit, log)
	e.admin = usecase.NewAdminUseCase(e.users, e.payments, e.tm, e.audit, log)
	return e
}

func (e *testEnv) seedAdmin(t *testing.T) *model.User {
	t.Helper()
	admin, err := model.NewUser("", "root@example.com", "Root", model.RoleAdmin)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := e.users.Save(context.Background(), nil, admin); err != nil {
		t.Fatalf("save admin: %v", err)
	}
	return admin
}

func (e *testEnv) seedBuyer(t *testing.T) *model.User {
	t.Helper()
	buyer, err := model.NewUser("", "ana@example.com", "Ana", model.RoleStudent)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := e.users.Save(context.Background(), nil, buyer); err != nil {
		t.Fatalf("save buyer: %v", err)
	}
	return buyer
}

func (e *testEnv) seedCourse(t *testing.T, published bool) *model.Course {
	t.Helper()
	owner, err := model.NewUser("", "prof@example.com", "Prof", model.RoleTeacher)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := e.users.Save(context.Background(), nil, owner); err != nil {
		t.Fatalf("save owner: %v", err)
	}
	course, err := model.NewCourse("", owner.ID, "Go do Zero", 19900, "BRL")
	if err != nil {
		t.Fatalf("NewCourse: %v", err)
	}
	course.Published = published
	if err := e.courses.Save(context.Background(), nil, course); err != nil {
		t.Fatalf("save course: %v", err)
	}
	return course
}

func (e *testEnv) seedFeature(t *testing.T, active bool) *model.Feature {
	t.Helper()
	f, err := model.NewFeature("", "custom-domain", "Custom Domain", 4900, "BRL")
	if err != nil {
		t.Fatalf("NewFeature: %v", err)
	}
	f.Active = active
	if err := e.features.Save(context.Background(), nil, f); err != nil {
		t.Fatalf("save feature: %v", err)
	}
	return f
}

// initiateAndSettle runs a full checkout initiation and settles the provider
// session, returning the provider session id ready for reconciliation.
func (e *testEnv) initiateAndSettle(t *testing.T, buyerID, purchasableID, paymentRef string) string {
	t.Helper()
	s, _, err := e.checkout.Initiate(context.Background(), buyerID, purchasableID)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	e.gateway.Settle(s.ProviderSessionID, paymentRef, true)
	return s.ProviderSessionID
}
