package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerificationTokens is the typed data-access layer over email verification
// tokens. Consumed rows are never deleted; they stay as an audit trail.
type VerificationTokens interface {
	repository.Repository[*EmailVerificationToken]

	Create(ctx context.Context, record *EmailVerificationToken, criteria ...repository.InsertCriteria) (*EmailVerificationToken, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *EmailVerificationToken, criteria ...repository.InsertCriteria) (*EmailVerificationToken, error)

	// GetUnusedByTokenTx fetches the token row filtered to is_used = false.
	GetUnusedByTokenTx(ctx context.Context, tx bun.IDB, token string) (*EmailVerificationToken, error)

	// MarkUsedTx consumes a token. Once used a token never transitions
	// back to unused.
	MarkUsedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	// InvalidateForUserTx marks every unused token of a user as used,
	// keeping at most one logically active token per user.
	InvalidateForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error)

	// DeleteForUserTx removes every token a user owns. Only account
	// deletion uses this; everywhere else tokens are invalidated, not
	// erased.
	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type verificationTokens struct {
	repository.Repository[*EmailVerificationToken]
	db *bun.DB
}

var (
	_ VerificationTokens                            = (*verificationTokens)(nil)
	_ repository.Repository[*EmailVerificationToken] = (*verificationTokens)(nil)
)

// NewVerificationTokensRepository builds the verification token repository
func NewVerificationTokensRepository(db *bun.DB) VerificationTokens {
	repo := repository.NewRepository[*EmailVerificationToken](db, repository.ModelHandlers[*EmailVerificationToken]{
		NewRecord: func() *EmailVerificationToken { return &EmailVerificationToken{} },
		GetID: func(t *EmailVerificationToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *EmailVerificationToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &verificationTokens{
		Repository: repo,
		db:         db,
	}
}

func (a *verificationTokens) Create(ctx context.Context, record *EmailVerificationToken, criteria ...repository.InsertCriteria) (*EmailVerificationToken, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *verificationTokens) CreateTx(ctx context.Context, tx bun.IDB, record *EmailVerificationToken, criteria ...repository.InsertCriteria) (*EmailVerificationToken, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *verificationTokens) GetUnusedByTokenTx(ctx context.Context, tx bun.IDB, token string) (*EmailVerificationToken, error) {
	record := &EmailVerificationToken{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.is_used = ?", false).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (a *verificationTokens) MarkUsedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*EmailVerificationToken)(nil)).
		Set("is_used = ?", true).
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

func (a *verificationTokens) InvalidateForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*EmailVerificationToken)(nil)).
		Set("is_used = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.is_used = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (a *verificationTokens) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*EmailVerificationToken)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	return err
}
