package identity

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the typed data-access layer over the users table. Callers never
// mutate a User in place; every change goes through an explicit operation.
type Users interface {
	repository.Repository[*User]

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	MarkEmailVerified(ctx context.Context, id uuid.UUID, verifiedAt time.Time) error
	MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, verifiedAt time.Time) error

	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository builds the users repository
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) MarkEmailVerified(ctx context.Context, id uuid.UUID, verifiedAt time.Time) error {
	return a.MarkEmailVerifiedTx(ctx, a.db, id, verifiedAt)
}

// MarkEmailVerifiedTx flips the verified flag and timestamp in one write.
// It runs inside the same transaction that consumes the verification token.
func (a *users) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, verifiedAt time.Time) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("email_verified = ?", true).
		Set("email_verified_at = ?", verifiedAt).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

// DeleteByIDTx hard-deletes a profile row. Only the explicit account
// deletion path calls this, after the dependent login row is gone.
func (a *users) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
