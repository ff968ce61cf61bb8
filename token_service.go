package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ErrTokenExpired is returned when a bearer token is past its expiry
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when a bearer token cannot be parsed or its
// signature does not verify
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	expiration time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance. The signing key and
// expiration are fixed at construction and never touched per call.
func NewTokenService(signingKey []byte, expiration time.Duration, issuer string, audience []string, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		expiration: expiration,
		issuer:     issuer,
		audience:   audience,
		logger:     logger,
	}
}

// Expiration returns the configured token TTL
func (ts *TokenServiceImpl) Expiration() time.Duration {
	return ts.expiration
}

// Generate mints a signed bearer token from the claims payload
func (ts *TokenServiceImpl) Generate(claims TokenClaims) (string, error) {
	if claims.Subject == "" {
		return "", goerrors.New("token subject is required", goerrors.CategoryBadInput)
	}

	now := time.Now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	jwtClaims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   claims.Subject,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.expiration)),
		},
		Email:     claims.Email,
		UserRole:  claims.Role,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}

	ensureTokenID(&jwtClaims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Validate parses and verifies a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (*JWTClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode claims")
	return nil, ErrTokenMalformed
}

func newTokenID() string {
	return uuid.NewString()
}
