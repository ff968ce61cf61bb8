package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// recordAttemptSQL persists one attempt outcome in a single write. A raw
// statement is used so that NULL resets (locked_until, last_login fields)
// are applied unconditionally.
var recordAttemptSQL = `UPDATE "user_logins" AS "ul"
SET
	"status" = ?,
	"failed_attempts" = ?,
	"locked_until" = ?,
	"last_login_at" = ?,
	"last_login_ip" = ?,
	"updated_at" = ?
WHERE
	("ul"."id" = ?);`

// UserLogins is the typed data-access layer over credential records.
type UserLogins interface {
	repository.Repository[*UserLogin]

	Create(ctx context.Context, record *UserLogin, criteria ...repository.InsertCriteria) (*UserLogin, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *UserLogin, criteria ...repository.InsertCriteria) (*UserLogin, error)

	GetByEmail(ctx context.Context, email string) (*UserLogin, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*UserLogin, error)

	// GetWithUserByEmail loads the credential record joined with its
	// profile row in one query.
	GetWithUserByEmail(ctx context.Context, email string) (*UserLogin, error)
	GetWithUserByEmailTx(ctx context.Context, tx bun.IDB, email string) (*UserLogin, error)

	// RecordAttempt persists a computed attempt state. Exactly one of
	// these writes happens per login attempt, failure or success.
	RecordAttempt(ctx context.Context, id uuid.UUID, state LoginAttemptState) error
	RecordAttemptTx(ctx context.Context, tx bun.IDB, id uuid.UUID, state LoginAttemptState) error

	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type userLogins struct {
	repository.Repository[*UserLogin]
	db *bun.DB
}

var (
	_ UserLogins                        = (*userLogins)(nil)
	_ repository.Repository[*UserLogin] = (*userLogins)(nil)
)

// NewUserLoginsRepository builds the credential repository
func NewUserLoginsRepository(db *bun.DB) UserLogins {
	repo := repository.NewRepository[*UserLogin](db, repository.ModelHandlers[*UserLogin]{
		NewRecord: func() *UserLogin { return &UserLogin{} },
		GetID: func(l *UserLogin) uuid.UUID {
			if l == nil {
				return uuid.Nil
			}
			return l.ID
		},
		SetID: func(l *UserLogin, id uuid.UUID) {
			if l != nil {
				l.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &userLogins{
		Repository: repo,
		db:         db,
	}
}

func (a *userLogins) Create(ctx context.Context, record *UserLogin, criteria ...repository.InsertCriteria) (*UserLogin, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *userLogins) CreateTx(ctx context.Context, tx bun.IDB, record *UserLogin, criteria ...repository.InsertCriteria) (*UserLogin, error) {
	prepareLoginDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *userLogins) GetByEmail(ctx context.Context, email string) (*UserLogin, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *userLogins) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*UserLogin, error) {
	return a.selectByEmail(ctx, tx, email, false)
}

func (a *userLogins) GetWithUserByEmail(ctx context.Context, email string) (*UserLogin, error) {
	return a.GetWithUserByEmailTx(ctx, a.db, email)
}

func (a *userLogins) GetWithUserByEmailTx(ctx context.Context, tx bun.IDB, email string) (*UserLogin, error) {
	return a.selectByEmail(ctx, tx, email, true)
}

func (a *userLogins) selectByEmail(ctx context.Context, tx bun.IDB, email string, withUser bool) (*UserLogin, error) {
	record := &UserLogin{}
	q := tx.NewSelect().Model(record)

	if withUser {
		q = q.Relation("User")
	}

	err := q.
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isEmptyResult(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *userLogins) RecordAttempt(ctx context.Context, id uuid.UUID, state LoginAttemptState) error {
	return a.RecordAttemptTx(ctx, a.db, id, state)
}

func (a *userLogins) RecordAttemptTx(ctx context.Context, tx bun.IDB, id uuid.UUID, state LoginAttemptState) error {
	ip := sql.NullString{String: state.LastLoginIP, Valid: state.LastLoginIP != ""}

	_, err := tx.NewRaw(
		recordAttemptSQL,
		state.Status,
		state.FailedAttempts,
		state.LockedUntil,
		state.LastLoginAt,
		ip,
		time.Now(),
		id,
	).Exec(ctx)

	return err
}

// DeleteForUserTx removes the credential row for a user. The account
// deletion path calls this before removing the profile row.
func (a *userLogins) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*UserLogin)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	return err
}

func prepareLoginDefaults(record *UserLogin) {
	if record == nil {
		return
	}

	record.EnsureStatus()
	record.Email = normalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isEmptyResult(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
