package ports

import (
	"context"

	"github.com/layer-3/carbx/core"
)

// Backend is the REST surface of the tokenization backend
type Backend interface {
	// RequestNonce issues a sign-in challenge for the wallet
	RequestNonce(ctx context.Context, walletAddress string) (*core.Challenge, error)

	// VerifySignature submits the signed challenge; the backend sets the session cookie
	VerifySignature(ctx context.Context, req core.VerifyRequest) (*core.VerifyResult, error)

	// FetchAuthMe returns the current session, or nil when the backend answers 401
	FetchAuthMe(ctx context.Context) (*core.Session, error)

	// Logout ends the backend session
	Logout(ctx context.Context) error

	// FetchPuroAccount returns the deposit account assigned to the session wallet
	FetchPuroAccount(ctx context.Context) (*core.PuroAccount, error)

	// FetchGroupedOrders returns the order groups of the session wallet
	FetchGroupedOrders(ctx context.Context) ([]core.GroupedOrder, error)
}
