package service_test

import (
	"testing"
	"time"

	"github.com/layer-3/carbx/adapters/store"
	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/metrics"
	"github.com/layer-3/carbx/internal/solana"
	"github.com/layer-3/carbx/internal/testutil"
	"github.com/layer-3/carbx/ports"
	"github.com/layer-3/carbx/service"
)

const testMinter = "Dccf2hLZmCDsQypSTYab2E4rbDday4SEEYBV8KTiPMX"

type harness struct {
	store         *store.MemoryStore
	backend       *testutil.Backend
	wallet        *testutil.Wallet
	chain         *testutil.Chain
	indexer       *testutil.Indexer
	program       *testutil.RegistryProgram
	events        *testutil.EventPublisher
	clock         *testutil.Clock
	metrics       *metrics.Metrics
	sessions      *service.SessionStore
	auth          *service.Authenticator
	monitor       *service.Monitor
	resolver      *service.RegistryResolver
	assets        *service.AssetService
	orders        *service.OrderService
	notifications *service.NotificationQueue
	redemption    *service.Redemption
	mint          string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:   store.NewMemoryStore(),
		wallet:  testutil.NewWallet(),
		chain:   testutil.NewChain(),
		indexer: &testutil.Indexer{Assets: map[string][]core.IndexedAsset{}},
		program: &testutil.RegistryProgram{},
		events:  &testutil.EventPublisher{},
		clock:   testutil.NewClock(),
		metrics: metrics.NewNop(),
	}
	h.backend = testutil.NewBackend(h.wallet.Address())

	mintKey, err := solana.NewKeypair()
	if err != nil {
		t.Fatal(err)
	}
	h.mint = mintKey.PublicKey().String()

	h.sessions = service.NewSessionStore(h.store, h.backend)
	h.auth = service.NewAuthenticator(h.backend, h.wallet, h.sessions, nil, h.metrics)
	h.monitor = service.NewMonitor(h.store, h.sessions, h.backend, h.events, h.metrics, true)
	h.monitor.Watch(h.wallet, h.wallet)
	h.monitor.Observe(true, h.wallet.Address())
	h.resolver = service.NewRegistryResolver(h.store, h.program)
	h.assets = service.NewAssetService(h.store, h.indexer, h.wallet, h.resolver, testMinter)
	h.orders = service.NewOrderService(h.store, h.backend, h.sessions, solana.ClusterDevnet)
	h.notifications = service.NewNotificationQueue(h.clock)
	h.redemption = service.NewRedemption(
		h.wallet, h.chain, h.program, h.resolver, h.assets, h.notifications, h.events, h.metrics, h.clock,
		service.RedemptionConfig{
			ConfigAccount: solana.MustPublicKeyFromBase58("CLNJGG3sZ8cxuveemDw9D1tk18q3QCWLWAAwpXumPVY8"),
			Cluster:       solana.ClusterDevnet,
			Commitment:    ports.CommitmentConfirmed,
			ValidationTTL: 5 * time.Second,
			RegistryTTL:   7 * time.Second,
			SuccessTTL:    6 * time.Second,
			FailureTTL:    7 * time.Second,
		},
	)
	return h
}

// vintageAsset registers an indexer asset minted by the minter PDA and returns its mapped form
func (h *harness) vintageAsset(t *testing.T) core.VintageAsset {
	t.Helper()

	name, symbol := "Vintage 2021", "V21"
	decimals := 6
	h.indexer.Set(func(i *testutil.Indexer) {
		i.Assets[h.wallet.Address()] = []core.IndexedAsset{{
			ID:          h.mint,
			Authorities: []string{testMinter},
			Name:        &name,
			Symbol:      &symbol,
			TokenInfo:   &core.TokenBalance{Decimals: &decimals},
		}}
	})
	return core.VintageAsset{Mint: h.mint, Name: &name, Symbol: &symbol, TokenInfo: &core.TokenBalance{Decimals: &decimals}}
}

// withRegistry makes the resolver know the harness mint
func (h *harness) withRegistry(t *testing.T) {
	t.Helper()
	h.program.Set(func(p *testutil.RegistryProgram) {
		p.Accounts = []core.RawRegistryAccount{testutil.RegistryAccount(h.mint, "ACME", 2021)}
	})
	if _, err := h.resolver.Refresh(t.Context()); err != nil {
		t.Fatal(err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
