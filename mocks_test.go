package identity_test

import (
	"context"
	"database/sql"
	"time"

	identity "github.com/goliatone/go-identity"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockRepositoryManager implements identity.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

func (m *MockRepositoryManager) Users() identity.Users {
	args := m.Called()
	return args.Get(0).(identity.Users)
}

func (m *MockRepositoryManager) UserLogins() identity.UserLogins {
	args := m.Called()
	return args.Get(0).(identity.UserLogins)
}

func (m *MockRepositoryManager) VerificationTokens() identity.VerificationTokens {
	args := m.Called()
	return args.Get(0).(identity.VerificationTokens)
}

// MockUsers mocks the methods handlers exercise; the embedded interface
// covers the rest of the repository surface.
type MockUsers struct {
	mock.Mock
	identity.Users
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*identity.User, error) {
	args := m.Called(ctx, id)
	var user *identity.User
	if v := args.Get(0); v != nil {
		user = v.(*identity.User)
	}
	return user, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *identity.User, criteria ...repository.InsertCriteria) (*identity.User, error) {
	args := m.Called(ctx, tx, record)
	var user *identity.User
	if v := args.Get(0); v != nil {
		user = v.(*identity.User)
	}
	return user, args.Error(1)
}

func (m *MockUsers) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, verifiedAt time.Time) error {
	args := m.Called(ctx, tx, id, verifiedAt)
	return args.Error(0)
}

func (m *MockUsers) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockUserLogins mocks the credential repository
type MockUserLogins struct {
	mock.Mock
	identity.UserLogins
}

func (m *MockUserLogins) GetByEmail(ctx context.Context, email string) (*identity.UserLogin, error) {
	args := m.Called(ctx, email)
	var login *identity.UserLogin
	if v := args.Get(0); v != nil {
		login = v.(*identity.UserLogin)
	}
	return login, args.Error(1)
}

func (m *MockUserLogins) GetWithUserByEmail(ctx context.Context, email string) (*identity.UserLogin, error) {
	args := m.Called(ctx, email)
	var login *identity.UserLogin
	if v := args.Get(0); v != nil {
		login = v.(*identity.UserLogin)
	}
	return login, args.Error(1)
}

func (m *MockUserLogins) CreateTx(ctx context.Context, tx bun.IDB, record *identity.UserLogin, criteria ...repository.InsertCriteria) (*identity.UserLogin, error) {
	args := m.Called(ctx, tx, record)
	var login *identity.UserLogin
	if v := args.Get(0); v != nil {
		login = v.(*identity.UserLogin)
	}
	return login, args.Error(1)
}

func (m *MockUserLogins) RecordAttempt(ctx context.Context, id uuid.UUID, state identity.LoginAttemptState) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

func (m *MockUserLogins) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockVerificationTokens mocks the token repository
type MockVerificationTokens struct {
	mock.Mock
	identity.VerificationTokens
}

func (m *MockVerificationTokens) CreateTx(ctx context.Context, tx bun.IDB, record *identity.EmailVerificationToken, criteria ...repository.InsertCriteria) (*identity.EmailVerificationToken, error) {
	args := m.Called(ctx, tx, record)
	var token *identity.EmailVerificationToken
	if v := args.Get(0); v != nil {
		token = v.(*identity.EmailVerificationToken)
	}
	return token, args.Error(1)
}

func (m *MockVerificationTokens) GetUnusedByTokenTx(ctx context.Context, tx bun.IDB, token string) (*identity.EmailVerificationToken, error) {
	args := m.Called(ctx, tx, token)
	var record *identity.EmailVerificationToken
	if v := args.Get(0); v != nil {
		record = v.(*identity.EmailVerificationToken)
	}
	return record, args.Error(1)
}

func (m *MockVerificationTokens) MarkUsedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockVerificationTokens) InvalidateForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVerificationTokens) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockMailer implements identity.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Enqueue(ctx context.Context, msg identity.SendEmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockActivitySink implements identity.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event identity.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTokenService implements identity.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Generate(claims identity.TokenClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(token string) (*identity.JWTClaims, error) {
	args := m.Called(token)
	var claims *identity.JWTClaims
	if v := args.Get(0); v != nil {
		claims = v.(*identity.JWTClaims)
	}
	return claims, args.Error(1)
}

func (m *MockTokenService) Expiration() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

// runTx configures a RunInTx expectation that invokes the callback with a
// zero bun.Tx so the transactional body runs against the repo mocks.
func runTx(repo *MockRepositoryManager, result error) *mock.Call {
	return repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(result).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(context.Context, bun.Tx) error)
			fn(args.Get(0).(context.Context), bun.Tx{})
		})
}
