package tokenizer

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/ports"
)

// JWTTokenizer implements the Tokenizer interface using JWT.
// The signing key stays with the backend, so tokens are read without verification.
type JWTTokenizer struct {
	parser *jwt.Parser
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer() ports.Tokenizer {
	return &JWTTokenizer{parser: jwt.NewParser()}
}

// Inspect decodes the session claims of a token
func (j *JWTTokenizer) Inspect(tokenStr string) (*core.SessionToken, error) {
	claims := &SessionClaims{}
	if _, _, err := j.parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	token := &core.SessionToken{
		Subject: claims.Subject,
		Wallet:  claims.Wallet,
	}
	if token.Wallet == "" {
		token.Wallet = claims.Subject
	}
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time
		token.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		token.ExpiresAt = &t
	}
	return token, nil
}
