package carbx

import (
	"context"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/service"
)

// Client represents the public interface of the CarbX dashboard
type Client interface {
	// WalletStatus reports the connected wallet and what it can sign
	WalletStatus() WalletStatus

	// ConnectWallet connects the configured wallet
	ConnectWallet() error

	// DisconnectWallet disconnects the wallet; the session is cleared before it returns
	DisconnectWallet() error

	// SignIn runs the challenge-response sign-in with the connected wallet
	SignIn(ctx context.Context) (bool, error)

	// EnsureAuthorized signs in unless a session is already cached
	EnsureAuthorized(ctx context.Context) (bool, error)

	// CheckSession refetches the backend session and reports whether it is alive
	CheckSession(ctx context.Context) (bool, error)

	// Session returns the cached session and its derived flags
	Session() SessionStatus

	// PuroAccount fetches the Puro deposit account of the session wallet
	PuroAccount(ctx context.Context) (*core.PuroAccount, error)

	// Orders returns the flattened order rows, newest first
	Orders(ctx context.Context, refresh bool) ([]service.OrderRow, error)

	// Tokens returns the vintage tokens held by the connected wallet
	Tokens(ctx context.Context, refresh bool) ([]core.VintageAsset, error)

	// Redemption returns the state of the redemption dialog
	Redemption() service.RedemptionSnapshot

	// OpenRedemption selects the held token with mint for redemption
	OpenRedemption(ctx context.Context, mint string) error

	// UpdateRedemption changes the amount and/or destination; nil leaves a field as is
	UpdateRedemption(amount, destination *string) error

	// SubmitRedemption burns the selected amount
	SubmitRedemption(ctx context.Context) (*service.RedemptionResult, error)

	// CloseRedemption deselects the token
	CloseRedemption() error

	// Notifications returns the visible notifications in creation order
	Notifications() []core.Notification

	// DismissNotification removes a notification
	DismissNotification(id int64) error
}

// WalletController is implemented by wallets that can be connected and disconnected on demand
type WalletController interface {
	Connect()
	Disconnect()
}
