package carbx

import (
	"context"
	"fmt"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/metrics"
	"github.com/layer-3/carbx/ports"
	"github.com/layer-3/carbx/service"
)

// WalletStatus describes the connected wallet
type WalletStatus struct {
	Connected       bool   `json:"connected"`
	Address         string `json:"address,omitempty"`
	CanSignMessages bool   `json:"canSignMessages"`
}

// SessionStatus is the cached session with its derived flags
type SessionStatus struct {
	Session           *core.Session `json:"session"`
	HasBackendSession bool          `json:"hasBackendSession"`
	IsAuthLoading     bool          `json:"isAuthLoading"`
	AuthError         string        `json:"authError,omitempty"`
}

// Deps are the adapters a Dashboard runs on
type Deps struct {
	Store     ports.QueryStore
	Backend   ports.Backend
	Wallet    ports.Wallet
	Chain     ports.Chain
	Indexer   ports.AssetIndexer
	Program   ports.RegistryProgram
	Tokenizer ports.Tokenizer
	Events    ports.EventPublisher
	Clock     ports.Clock
	Metrics   *metrics.Metrics
}

// Options configure a Dashboard
type Options struct {
	MinterPDA  string
	Redemption service.RedemptionConfig
}

// Dashboard composes the dashboard services behind Client
type Dashboard struct {
	wallet ports.Wallet

	sessions      *service.SessionStore
	auth          *service.Authenticator
	monitor       *service.Monitor
	resolver      *service.RegistryResolver
	assets        *service.AssetService
	orders        *service.OrderService
	puro          *service.PuroAccountService
	notifications *service.NotificationQueue
	redemption    *service.Redemption
}

var _ Client = (*Dashboard)(nil)

// New wires the dashboard services. The session monitor follows the wallet's
// connectivity when the wallet reports it.
func New(deps Deps, opts Options) *Dashboard {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}

	sessions := service.NewSessionStore(deps.Store, deps.Backend)
	resolver := service.NewRegistryResolver(deps.Store, deps.Program)
	assets := service.NewAssetService(deps.Store, deps.Indexer, deps.Wallet, resolver, opts.MinterPDA)
	notifications := service.NewNotificationQueue(deps.Clock)

	monitor := service.NewMonitor(deps.Store, sessions, deps.Backend, deps.Events, deps.Metrics, deps.Wallet.Connected())
	if notifier, ok := deps.Wallet.(ports.ConnectivityNotifier); ok {
		monitor.Watch(notifier, deps.Wallet)
	}
	if pk, ok := deps.Wallet.PublicKey(); ok {
		monitor.Observe(true, pk.String())
	}

	return &Dashboard{
		wallet:        deps.Wallet,
		sessions:      sessions,
		auth:          service.NewAuthenticator(deps.Backend, deps.Wallet, sessions, deps.Tokenizer, deps.Metrics),
		monitor:       monitor,
		resolver:      resolver,
		assets:        assets,
		orders:        service.NewOrderService(deps.Store, deps.Backend, sessions, opts.Redemption.Cluster),
		puro:          service.NewPuroAccountService(deps.Store, deps.Backend),
		notifications: notifications,
		redemption: service.NewRedemption(
			deps.Wallet, deps.Chain, deps.Program, resolver, assets, notifications,
			deps.Events, deps.Metrics, deps.Clock, opts.Redemption,
		),
	}
}

func (d *Dashboard) WalletStatus() WalletStatus {
	status := WalletStatus{Connected: d.wallet.Connected()}
	if pk, ok := d.wallet.PublicKey(); ok {
		status.Address = pk.String()
	}
	_, status.CanSignMessages = d.wallet.(ports.MessageSigner)
	return status
}

func (d *Dashboard) ConnectWallet() error {
	controller, ok := d.wallet.(WalletController)
	if !ok {
		return ErrWalletControlUnsupported
	}
	controller.Connect()
	return nil
}

func (d *Dashboard) DisconnectWallet() error {
	controller, ok := d.wallet.(WalletController)
	if !ok {
		return ErrWalletControlUnsupported
	}
	controller.Disconnect()
	return nil
}

func (d *Dashboard) SignIn(ctx context.Context) (bool, error) {
	return d.auth.SignIn(ctx)
}

func (d *Dashboard) EnsureAuthorized(ctx context.Context) (bool, error) {
	return d.auth.EnsureAuthorized(ctx)
}

func (d *Dashboard) CheckSession(ctx context.Context) (bool, error) {
	return d.auth.CheckSessionAlive(ctx)
}

func (d *Dashboard) Session() SessionStatus {
	status := SessionStatus{
		Session:           d.sessions.Session(),
		HasBackendSession: d.sessions.HasBackendSession(),
		IsAuthLoading:     d.sessions.IsAuthLoading(),
	}
	if err := d.sessions.AuthError(); err != nil {
		status.AuthError = err.Error()
	}
	return status
}

func (d *Dashboard) PuroAccount(ctx context.Context) (*core.PuroAccount, error) {
	return d.puro.Fetch(ctx)
}

func (d *Dashboard) Orders(ctx context.Context, refresh bool) ([]service.OrderRow, error) {
	return d.orders.Rows(ctx, refresh)
}

func (d *Dashboard) Tokens(ctx context.Context, refresh bool) ([]core.VintageAsset, error) {
	return d.assets.List(ctx, refresh)
}

func (d *Dashboard) Redemption() service.RedemptionSnapshot {
	return d.redemption.Snapshot()
}

func (d *Dashboard) OpenRedemption(ctx context.Context, mint string) error {
	asset, err := d.assets.Find(ctx, mint)
	if err != nil {
		return err
	}
	return d.redemption.Open(asset)
}

func (d *Dashboard) UpdateRedemption(amount, destination *string) error {
	if amount != nil {
		if err := d.redemption.SetAmount(*amount); err != nil {
			return err
		}
	}
	if destination != nil {
		if err := d.redemption.SetDestination(*destination); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dashboard) SubmitRedemption(ctx context.Context) (*service.RedemptionResult, error) {
	return d.redemption.Submit(ctx)
}

func (d *Dashboard) CloseRedemption() error {
	return d.redemption.Close()
}

func (d *Dashboard) Notifications() []core.Notification {
	return d.notifications.List()
}

func (d *Dashboard) DismissNotification(id int64) error {
	if !d.notifications.Dismiss(id) {
		return fmt.Errorf("%w: %d", ErrNotificationNotFound, id)
	}
	return nil
}

// Close waits for background logouts to finish
func (d *Dashboard) Close() {
	d.monitor.Wait()
}
