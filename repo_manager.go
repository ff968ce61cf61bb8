package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories plus the scoped transaction
// primitive. A transaction never outlives one logical operation.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	UserLogins() UserLogins
	VerificationTokens() VerificationTokens
}

type mngr struct {
	db     *bun.DB
	users  Users
	logins UserLogins
	tokens VerificationTokens
}

// NewRepositoryManager wires the three repositories over one bun handle
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:     db,
		users:  NewUsersRepository(db),
		logins: NewUserLoginsRepository(db),
		tokens: NewVerificationTokensRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.logins == nil {
		return errors.New("repository userLogins should be initialized")
	}

	if m.tokens == nil {
		return errors.New("repository verificationTokens should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) UserLogins() UserLogins {
	return m.logins
}

func (m mngr) VerificationTokens() VerificationTokens {
	return m.tokens
}
