package core

import "time"

// TokenType separates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// SessionTokens is the token pair handed out after an accepted verification.
type SessionTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`

	// TokenType is the HTTP auth scheme, always "Bearer".
	TokenType string `json:"tokenType"`
}

// Claims are the verified contents of a session token.
// Refresh tokens leave Role and AccessLevel empty.
type Claims struct {
	SubjectID   string    `json:"sub"`
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role,omitempty"`
	AccessLevel int       `json:"access_level,omitempty"`
	Type        TokenType `json:"token_type"`
	IssuedAt    time.Time `json:"iat"`
	ExpiresAt   time.Time `json:"exp"`
	Issuer      string    `json:"iss"`
	Audience    []string  `json:"aud"`
	ID          string    `json:"jti,omitempty"`
}
