package ports

import (
	"context"

	"github.com/layer-3/carbx/internal/solana"
)

// Wallet is the connected key holder
type Wallet interface {
	// Connected reports whether the wallet is currently connected
	Connected() bool

	// PublicKey returns the wallet address; ok is false while disconnected
	PublicKey() (pk solana.PublicKey, ok bool)

	// SignTransaction adds the wallet signature to the transaction
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// MessageSigner is implemented by wallets able to sign arbitrary messages
type MessageSigner interface {
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// ConnectivityNotifier is implemented by wallets that report connect/disconnect transitions
type ConnectivityNotifier interface {
	OnConnectivityChange(fn func(connected bool))
}
