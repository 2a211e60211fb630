package core

import "time"

// Challenge represents a sign-in challenge issued by the backend
type Challenge struct {
	WalletAddress string    `json:"walletAddress"` // Base-58 wallet address the challenge was issued for
	Nonce         string    `json:"nonce"`         // Nonce echoed back on verification
	Message       string    `json:"message"`       // Human-readable message the wallet signs
	ExpiresAt     string    `json:"expiresAt"`     // Expiry as sent by the backend
	IssuedAt      time.Time `json:"-"`             // Local receive time
}

// VerifyRequest is the payload submitted to the verification endpoint
type VerifyRequest struct {
	WalletAddress string `json:"walletAddress"`
	Nonce         string `json:"nonce"`
	Signature     string `json:"signature"`
}

// VerifyResult is the verification response. The session itself is carried by a cookie.
type VerifyResult struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// Session represents the backend-asserted identity. A nil *Session means unauthenticated.
type Session struct {
	Subject   string         `json:"sub,omitempty"`
	Claims    map[string]any `json:"claims"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
}

// SessionToken is what can be read from a session token without verifying it
type SessionToken struct {
	Subject   string
	Wallet    string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// PuroAccount is the custodial deposit account assigned to the signed-in wallet
type PuroAccount struct {
	Wallet            any    `json:"wallet"`
	PuroAccountNumber string `json:"puroAccountNumber"`
}
