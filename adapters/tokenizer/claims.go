package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the claims the backend puts in its session tokens
type SessionClaims struct {
	jwt.RegisteredClaims
	Wallet string `json:"walletAddress,omitempty"`
}
