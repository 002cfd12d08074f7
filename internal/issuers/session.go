package issuers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

const (
	DefaultIssuer     = "bbms-auth"
	DefaultAudience   = "bbms-app"
	DefaultAccessTTL  = 8 * time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour

	// MinSigningKeyLength is the minimum HS256 key size in bytes.
	MinSigningKeyLength = 32

	bearerType = "Bearer"
)

type Config struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SigningKey []byte
}

// sessionClaims is the JWT body. Refresh tokens leave Role and AccessLevel empty.
type sessionClaims struct {
	Email       string         `json:"email,omitempty"`
	Role        string         `json:"role,omitempty"`
	AccessLevel int            `json:"access_level,omitempty"`
	TokenType   core.TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies session tokens. The signing key is read-only after construction.
type TokenIssuer struct {
	cfg    Config
	now    func() time.Time
	parser *jwt.Parser
}

func NewTokenIssuer(cfg Config) (*TokenIssuer, error) {
	if len(cfg.SigningKey) < MinSigningKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinSigningKeyLength, len(cfg.SigningKey))
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}

	i := &TokenIssuer{
		cfg: cfg,
		now: time.Now,
	}
	i.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return i.now() }),
	)
	return i, nil
}

// SetClock overrides the time source. Used by tests.
func (i *TokenIssuer) SetClock(now func() time.Time) {
	i.now = now
}

func (i *TokenIssuer) AccessTTL() time.Duration {
	return i.cfg.AccessTTL
}

// Issue mints a new access/refresh token pair for the identity.
func (i *TokenIssuer) Issue(identity *core.Identity) (*core.SessionTokens, error) {
	if identity == nil || identity.Ref == "" {
		return nil, fmt.Errorf("cannot issue tokens without an identity")
	}
	now := i.now()

	access := sessionClaims{
		Email:            identity.Email,
		Role:             identity.Role,
		AccessLevel:      identity.AccessLevel,
		TokenType:        core.TokenTypeAccess,
		RegisteredClaims: i.registered(identity.Ref, now, i.cfg.AccessTTL),
	}
	accessToken, err := i.sign(access)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	refresh := sessionClaims{
		Email:            identity.Email,
		TokenType:        core.TokenTypeRefresh,
		RegisteredClaims: i.registered(identity.Ref, now, i.cfg.RefreshTTL),
	}
	refreshToken, err := i.sign(refresh)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &core.SessionTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(i.cfg.AccessTTL.Seconds()),
		TokenType:    bearerType,
	}, nil
}

// Verify validates an access token and returns its claims.
// Refresh tokens are rejected.
func (i *TokenIssuer) Verify(token string) (*core.Claims, error) {
	return i.verifyType(token, core.TokenTypeAccess)
}

// VerifyRefresh validates a refresh token and returns its reduced claims.
func (i *TokenIssuer) VerifyRefresh(token string) (*core.Claims, error) {
	return i.verifyType(token, core.TokenTypeRefresh)
}

// Refresh exchanges a refresh token for a new token pair. The identity must be
// the subject of the refresh token.
func (i *TokenIssuer) Refresh(refreshToken string, identity *core.Identity) (*core.SessionTokens, error) {
	claims, err := i.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	if identity == nil || claims.SubjectID != identity.Ref {
		return nil, core.ErrTokenInvalid.Withf("refresh token subject does not match identity")
	}
	return i.Issue(identity)
}

func (i *TokenIssuer) verifyType(token string, want core.TokenType) (*core.Claims, error) {
	if token == "" {
		return nil, core.ErrTokenInvalid.Withf("empty token")
	}

	var claims sessionClaims
	parsed, err := i.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return i.cfg.SigningKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired.Wrap(err)
		}
		return nil, core.ErrTokenInvalid.Wrap(err)
	}
	if !parsed.Valid {
		return nil, core.ErrTokenInvalid
	}
	if claims.TokenType != want {
		return nil, core.ErrTokenInvalid.Withf("expected %s token, got '%s'", want, claims.TokenType)
	}
	if claims.Subject == "" {
		return nil, core.ErrTokenInvalid.Withf("token has no subject")
	}

	out := &core.Claims{
		SubjectID:   claims.Subject,
		Email:       claims.Email,
		Role:        claims.Role,
		AccessLevel: claims.AccessLevel,
		Type:        claims.TokenType,
		Issuer:      claims.Issuer,
		Audience:    claims.Audience,
		ID:          claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (i *TokenIssuer) registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    i.cfg.Issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{i.cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        xid.New().String(),
	}
}

func (i *TokenIssuer) sign(claims sessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.cfg.SigningKey)
}
