package identity

import (
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenService mints and validates bearer tokens
type TokenService interface {
	Generate(claims TokenClaims) (string, error)
	Validate(tokenString string) (*JWTClaims, error)
	Expiration() time.Duration
}

// TokenClaims is the payload minted into a bearer token after a successful
// login or registration.
type TokenClaims struct {
	Subject   string
	Email     string
	Role      UserRole
	FirstName string
	LastName  string
}

// PasswordAuthenticator hashes and verifies salted passwords
type PasswordAuthenticator interface {
	GenerateSalt() (string, error)
	HashPassword(password, salt string) (string, error)
	ComparePasswordAndHash(password, salt, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
