package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/layer-3/carbx/internal/logger"
	"github.com/layer-3/carbx/internal/metrics"
	"github.com/layer-3/carbx/ports"
)

// Monitor invalidates the session and wallet-scoped caches when the wallet disconnects
type Monitor struct {
	store    ports.QueryStore
	sessions *SessionStore
	backend  ports.Backend
	eventPub ports.EventPublisher
	metrics  *metrics.Metrics

	mu       sync.Mutex
	previous bool
	wallet   string
	pending  sync.WaitGroup
}

// NewMonitor creates a monitor whose previous connectivity is connected
func NewMonitor(
	store ports.QueryStore,
	sessions *SessionStore,
	backend ports.Backend,
	eventPub ports.EventPublisher,
	m *metrics.Metrics,
	connected bool,
) *Monitor {
	return &Monitor{
		store:    store,
		sessions: sessions,
		backend:  backend,
		eventPub: eventPub,
		metrics:  m,
		previous: connected,
	}
}

// Watch subscribes the monitor to the notifier's connectivity changes
func (m *Monitor) Watch(notifier ports.ConnectivityNotifier, wallet ports.Wallet) {
	notifier.OnConnectivityChange(func(connected bool) {
		address := ""
		if pk, ok := wallet.PublicKey(); ok {
			address = pk.String()
		}
		m.Observe(connected, address)
	})
}

// Observe records the current connectivity. Only a connected to disconnected edge acts:
// the session and wallet-scoped queries are cleared before Observe returns, then the
// backend logout runs in the background. walletAddress is remembered while connected.
func (m *Monitor) Observe(connected bool, walletAddress string) {
	m.mu.Lock()
	previous := m.previous
	m.previous = connected
	if connected && walletAddress != "" {
		m.wallet = walletAddress
	}
	wallet := m.wallet
	m.mu.Unlock()

	if !previous || connected {
		return
	}

	m.sessions.Clear()
	m.store.Remove(ports.KeyPuroAccount)
	m.store.Remove(ports.KeyOrdersGrouped)
	m.store.RemovePrefix(ports.KeyVintagePrefix)

	logger.Info("wallet disconnected, session cleared", zap.String("wallet", wallet))

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		m.logout(context.Background(), wallet)
	}()
}

func (m *Monitor) logout(ctx context.Context, wallet string) {
	outcome := metrics.OutcomeSuccess
	if err := m.backend.Logout(ctx); err != nil {
		outcome = metrics.OutcomeFailure
		logger.WarnCtx(ctx, "backend logout failed", zap.String("wallet", wallet), zap.Error(err))
	}
	m.metrics.Logouts.WithLabelValues(outcome).Inc()

	if m.eventPub == nil {
		return
	}
	if err := m.eventPub.PublishLogout(ctx, wallet); err != nil {
		logger.WarnCtx(ctx, "failed to publish logout event", zap.String("wallet", wallet), zap.Error(err))
	}
}

// Wait blocks until background logouts finish
func (m *Monitor) Wait() {
	m.pending.Wait()
}
