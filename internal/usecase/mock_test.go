//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-payments/internal/domain"
	"course-payments/internal/domain/model"
	"course-payments/internal/domain/ports/adapter"
	"course-payments/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// =============================
// Repositories
// =============================

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu    sync.Mutex
	Users map[string]*model.User

	FindByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{Users: make(map[string]*model.User)}
}

func (m *MockUserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.Users[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.Users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) FindByEmail(_ context.Context, _ repository.Tx, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) ListAdmins(_ context.Context, _ repository.Tx) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.Users {
		if u.Role == model.RoleAdmin {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockUserRepo) UpdateRole(_ context.Context, _ repository.Tx, id string, role model.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Role = role
	return nil
}

func (m *MockUserRepo) snapshot() func() {
	m.mu.Lock()
	saved := make(map[string]*model.User, len(m.Users))
	for k, v := range m.Users {
		cp := *v
		saved[k] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.Users = saved
		m.mu.Unlock()
	}
}

// ---- Mock CourseRepository / FeatureRepository ----

type MockCourseRepo struct {
	mu      sync.Mutex
	Courses map[string]*model.Course
}

var _ repository.CourseRepository = (*MockCourseRepo)(nil)

func NewMockCourseRepo() *MockCourseRepo {
	return &MockCourseRepo{Courses: make(map[string]*model.Course)}
}

func (m *MockCourseRepo) Save(_ context.Context, _ repository.Tx, c *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.Courses[c.ID] = &cp
	return nil
}

func (m *MockCourseRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.Courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type MockFeatureRepo struct {
	mu       sync.Mutex
	Features map[string]*model.Feature
}

var _ repository.FeatureRepository = (*MockFeatureRepo)(nil)

func NewMockFeatureRepo() *MockFeatureRepo {
	return &MockFeatureRepo{Features: make(map[string]*model.Feature)}
}

func (m *MockFeatureRepo) Save(_ context.Context, _ repository.Tx, f *model.Feature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.Features[f.ID] = &cp
	return nil
}

func (m *MockFeatureRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.Features[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// ---- Mock CheckoutSessionRepository ----

type MockCheckoutSessionRepo struct {
	mu       sync.Mutex
	Sessions map[string]*model.CheckoutSession // keyed by provider session id

	SaveFunc func(ctx context.Context, s *model.CheckoutSession) error
}

var _ repository.CheckoutSessionRepository = (*MockCheckoutSessionRepo)(nil)

func NewMockCheckoutSessionRepo() *MockCheckoutSessionRepo {
	return &MockCheckoutSessionRepo{Sessions: make(map[string]*model.CheckoutSession)}
}

func (m *MockCheckoutSessionRepo) Save(ctx context.Context, _ repository.Tx, s *model.CheckoutSession) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Sessions[s.ProviderSessionID]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *s
	m.Sessions[s.ProviderSessionID] = &cp
	return nil
}

func (m *MockCheckoutSessionRepo) FindByProviderSessionID(_ context.Context, _ repository.Tx, providerSessionID string) (*model.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[providerSessionID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockCheckoutSessionRepo) MarkCompleted(_ context.Context, _ repository.Tx, providerSessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[providerSessionID]
	if !ok {
		return false, nil
	}
	if s.Status != model.CheckoutStatusPending {
		return false, nil
	}
	s.Status = model.CheckoutStatusCompleted
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockCheckoutSessionRepo) snapshot() func() {
	m.mu.Lock()
	saved := make(map[string]*model.CheckoutSession, len(m.Sessions))
	for k, v := range m.Sessions {
		cp := *v
		saved[k] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.Sessions = saved
		m.mu.Unlock()
	}
}

func (m *MockCheckoutSessionRepo) ListPendingOlderThan(_ context.Context, _ repository.Tx, cutoff time.Time, limit int) ([]*model.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.CheckoutSession
	for _, s := range m.Sessions {
		if s.Status == model.CheckoutStatusPending && s.CreatedAt.Before(cutoff) {
			cp := *s
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// ---- Mock PaymentRepository ----

// MockPaymentRepo enforces the same two uniqueness rules as the real
// store: one payment per checkout session, one per provider payment ref.
type MockPaymentRepo struct {
	mu       sync.Mutex
	Payments map[string]*model.Payment // keyed by payment id

	CreateOrCompleteFunc func(ctx context.Context, p *model.Payment) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{Payments: make(map[string]*model.Payment)}
}

func (m *MockPaymentRepo) CreateOrComplete(ctx context.Context, _ repository.Tx, p *model.Payment) (bool, error) {
	if m.CreateOrCompleteFunc != nil {
		return m.CreateOrCompleteFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Payments {
		if existing.CheckoutSessionID == p.CheckoutSessionID {
			if existing.Status != model.PaymentStatusCompleted {
				existing.Status = model.PaymentStatusCompleted
				if existing.ProviderPaymentRef == nil {
					existing.ProviderPaymentRef = p.ProviderPaymentRef
				}
			}
			return false, nil
		}
		if existing.ProviderPaymentRef != nil && p.ProviderPaymentRef != nil &&
			*existing.ProviderPaymentRef == *p.ProviderPaymentRef {
			return false, nil
		}
	}
	cp := *p
	m.Payments[p.ID] = &cp
	return true, nil
}

func (m *MockPaymentRepo) FindByProviderRef(_ context.Context, _ repository.Tx, providerRef string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Payments {
		if p.ProviderPaymentRef != nil && *p.ProviderPaymentRef == providerRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) FindByCheckoutSessionID(_ context.Context, _ repository.Tx, sessionID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Payments {
		if p.CheckoutSessionID == sessionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) MarkRefunded(_ context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Payments[id]
	if !ok || p.Status != model.PaymentStatusCompleted {
		return domain.ErrNotFound
	}
	p.Status = model.PaymentStatusRefunded
	return nil
}

func (m *MockPaymentRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payments)
}

func (m *MockPaymentRepo) snapshot() func() {
	m.mu.Lock()
	saved := make(map[string]*model.Payment, len(m.Payments))
	for k, v := range m.Payments {
		cp := *v
		saved[k] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.Payments = saved
		m.mu.Unlock()
	}
}

// ---- Mock EnrollmentRepository / FeatureGrantRepository ----

type MockEnrollmentRepo struct {
	mu          sync.Mutex
	Enrollments map[string]*model.Enrollment // keyed by user|course

	InsertIfAbsentFunc func(ctx context.Context, e *model.Enrollment) (bool, error)
}

var _ repository.EnrollmentRepository = (*MockEnrollmentRepo)(nil)

func NewMockEnrollmentRepo() *MockEnrollmentRepo {
	return &MockEnrollmentRepo{Enrollments: make(map[string]*model.Enrollment)}
}

func pairKey(userID, courseID string) string { return userID + "|" + courseID }

func (m *MockEnrollmentRepo) InsertIfAbsent(ctx context.Context, _ repository.Tx, e *model.Enrollment) (bool, error) {
	if m.InsertIfAbsentFunc != nil {
		return m.InsertIfAbsentFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(e.UserID, e.CourseID)
	if _, exists := m.Enrollments[k]; exists {
		return false, nil
	}
	cp := *e
	m.Enrollments[k] = &cp
	return true, nil
}

func (m *MockEnrollmentRepo) FindByUserAndCourse(_ context.Context, _ repository.Tx, userID, courseID string) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.Enrollments[pairKey(userID, courseID)]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockEnrollmentRepo) UpdateProgress(_ context.Context, _ repository.Tx, userID, courseID string, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Enrollments[pairKey(userID, courseID)]
	if !ok {
		return domain.ErrNotFound
	}
	if percent > e.ProgressPercent {
		e.ProgressPercent = percent
	}
	return nil
}

func (m *MockEnrollmentRepo) MarkCompleted(_ context.Context, _ repository.Tx, userID, courseID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Enrollments[pairKey(userID, courseID)]
	if !ok || e.Status != model.EnrollmentStatusActive {
		return false, nil
	}
	e.Status = model.EnrollmentStatusCompleted
	e.CompletedAt = &at
	return true, nil
}

func (m *MockEnrollmentRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Enrollments)
}

func (m *MockEnrollmentRepo) snapshot() func() {
	m.mu.Lock()
	saved := make(map[string]*model.Enrollment, len(m.Enrollments))
	for k, v := range m.Enrollments {
		cp := *v
		saved[k] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.Enrollments = saved
		m.mu.Unlock()
	}
}

type MockFeatureGrantRepo struct {
	mu     sync.Mutex
	Grants map[string]*model.FeatureGrant // keyed by user|feature
}

var _ repository.FeatureGrantRepository = (*MockFeatureGrantRepo)(nil)

func NewMockFeatureGrantRepo() *MockFeatureGrantRepo {
	return &MockFeatureGrantRepo{Grants: make(map[string]*model.FeatureGrant)}
}

func (m *MockFeatureGrantRepo) InsertIfAbsent(_ context.Context, _ repository.Tx, g *model.FeatureGrant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(g.UserID, g.FeatureID)
	if _, exists := m.Grants[k]; exists {
		return false, nil
	}
	cp := *g
	m.Grants[k] = &cp
	return true, nil
}

func (m *MockFeatureGrantRepo) snapshot() func() {
	m.mu.Lock()
	saved := make(map[string]*model.FeatureGrant, len(m.Grants))
	for k, v := range m.Grants {
		cp := *v
		saved[k] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.Grants = saved
		m.mu.Unlock()
	}
}

func (m *MockFeatureGrantRepo) Exists(_ context.Context, _ repository.Tx, userID, featureID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Grants[pairKey(userID, featureID)]
	return ok, nil
}

// ---- Mock CertificateRepository ----

type MockCertificateRepo struct {
	mu           sync.Mutex
	Certificates map[string]*model.Certificate // keyed by user|course
}

var _ repository.CertificateRepository = (*MockCertificateRepo)(nil)

func NewMockCertificateRepo() *MockCertificateRepo {
	return &MockCertificateRepo{Certificates: make(map[string]*model.Certificate)}
}

func (m *MockCertificateRepo) InsertIfAbsent(_ context.Context, _ repository.Tx, c *model.Certificate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(c.UserID, c.CourseID)
	if _, exists := m.Certificates[k]; exists {
		return false, nil
	}
	cp := *c
	m.Certificates[k] = &cp
	return true, nil
}

func (m *MockCertificateRepo) snapshot() func() {
	m.mu.Lock()
	saved := make(map[string]*model.Certificate, len(m.Certificates))
	for k, v := range m.Certificates {
		cp := *v
		saved[k] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.Certificates = saved
		m.mu.Unlock()
	}
}

func (m *MockCertificateRepo) FindByUserAndCourse(_ context.Context, _ repository.Tx, userID, courseID string) (*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.Certificates[pairKey(userID, courseID)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// ---- Mock AuditLogRepository ----

type MockAuditLogRepo struct {
	mu      sync.Mutex
	Entries []*model.AuditLogEntry
}

var _ repository.AuditLogRepository = (*MockAuditLogRepo)(nil)

func (m *MockAuditLogRepo) Append(_ context.Context, _ repository.Tx, e *model.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.Entries = append(m.Entries, &cp)
	return nil
}

func (m *MockAuditLogRepo) snapshot() func() {
	m.mu.Lock()
	saved := make([]*model.AuditLogEntry, len(m.Entries))
	copy(saved, m.Entries)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.Entries = saved
		m.mu.Unlock()
	}
}

func (m *MockAuditLogRepo) ByAction(action model.AuditAction) []*model.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AuditLogEntry
	for _, e := range m.Entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// ---- Mock TransactionManager ----

// MockTxManager serializes transactions with a mutex, which mirrors the
// row-lock behavior the real store exhibits when two reconcilers touch the
// same session. Snapshots capture the mock stores at transaction start; a
// failed callback restores them, the way a real rollback would.
type MockTxManager struct {
	mu    sync.Mutex
	Calls int

	Snapshots  []func() func()
	WithTxFunc func(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	restores := make([]func(), 0, len(m.Snapshots))
	for _, snap := range m.Snapshots {
		restores = append(restores, snap())
	}
	if err := fn(ctx, repository.NoTX); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}

// =============================
// Adapters
// =============================

// ---- Mock CheckoutGateway ----

type MockCheckoutGateway struct {
	mu       sync.Mutex
	seq      int
	Sessions map[string]*adapter.ProviderSession

	CreateSessionFunc func(ctx context.Context, in adapter.CreateSessionInput) (*adapter.ProviderSession, error)
	FetchSessionFunc  func(ctx context.Context, providerSessionID string) (*adapter.ProviderSession, error)
}

var _ adapter.CheckoutGateway = (*MockCheckoutGateway)(nil)

func NewMockCheckoutGateway() *MockCheckoutGateway {
	return &MockCheckoutGateway{Sessions: make(map[string]*adapter.ProviderSession)}
}

func (m *MockCheckoutGateway) Name() string { return "mock" }

func (m *MockCheckoutGateway) CreateSession(ctx context.Context, in adapter.CreateSessionInput) (*adapter.ProviderSession, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, in)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("cs_mock_%03d", m.seq)
	md := make(map[string]string, len(in.Metadata))
	for k, v := range in.Metadata {
		md[k] = v
	}
	s := &adapter.ProviderSession{
		ID:          id,
		AmountMinor: in.AmountMinor,
		Currency:    in.Currency,
		RedirectURL: "https://pay.example/" + id,
		Metadata:    md,
	}
	m.Sessions[id] = s
	return s, nil
}

func (m *MockCheckoutGateway) FetchSession(ctx context.Context, providerSessionID string) (*adapter.ProviderSession, error) {
	if m.FetchSessionFunc != nil {
		return m.FetchSessionFunc(ctx, providerSessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[providerSessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// Settle marks the provider-side session paid.
func (m *MockCheckoutGateway) Settle(providerSessionID, paymentRef string, liveMode bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[providerSessionID]; ok {
		s.Settled = true
		s.PaymentRef = paymentRef
		s.LiveMode = liveMode
	}
}

// ---- Mock Notifier ----

type SentNotification struct {
	ChatID int64
	Text   string
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentNotification

	SendFunc func(ctx context.Context, chatID int64, text string) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Name() string { return "mock" }

func (m *MockNotifier) Send(ctx context.Context, chatID int64, text string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, chatID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentNotification{ChatID: chatID, Text: text})
	return nil
}

func (m *MockNotifier) All() []SentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentNotification, len(m.Sent))
	copy(out, m.Sent)
	return out
}
