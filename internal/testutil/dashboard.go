package testutil

import (
	"testing"
	"time"

	"github.com/layer-3/carbx"
	"github.com/layer-3/carbx/adapters/store"
	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/metrics"
	"github.com/layer-3/carbx/internal/solana"
	"github.com/layer-3/carbx/ports"
	"github.com/layer-3/carbx/service"
)

const (
	// Minter is the minter PDA the fixture's vintage token is issued under
	Minter = "Dccf2hLZmCDsQypSTYab2E4rbDday4SEEYBV8KTiPMX"
	// ConfigAccount is the registry config account used by the fixture
	ConfigAccount = "CLNJGG3sZ8cxuveemDw9D1tk18q3QCWLWAAwpXumPVY8"
)

// Fixture is a Dashboard wired to fakes. The wallet holds one vintage token
// whose registry record is on chain.
type Fixture struct {
	Wallet    *Wallet
	Backend   *Backend
	Chain     *Chain
	Indexer   *Indexer
	Program   *RegistryProgram
	Events    *EventPublisher
	Clock     *Clock
	Metrics   *metrics.Metrics
	Mint      string
	Dashboard *carbx.Dashboard
}

// NewFixture builds a Dashboard around wallet, which must be a *Wallet or a TxOnlyWallet
func NewFixture(t testing.TB, wallet ports.Wallet) *Fixture {
	t.Helper()

	f := &Fixture{
		Chain:   NewChain(),
		Indexer: &Indexer{Assets: map[string][]core.IndexedAsset{}},
		Program: &RegistryProgram{},
		Events:  &EventPublisher{},
		Clock:   NewClock(),
		Metrics: metrics.NewNop(),
	}
	switch w := wallet.(type) {
	case *Wallet:
		f.Wallet = w
	case TxOnlyWallet:
		f.Wallet = w.Inner
	default:
		t.Fatalf("unsupported wallet %T", wallet)
	}
	f.Backend = NewBackend(f.Wallet.Address())

	mintKey, err := solana.NewKeypair()
	if err != nil {
		t.Fatal(err)
	}
	f.Mint = mintKey.PublicKey().String()

	name := "Vintage 2021"
	decimals := 6
	f.Indexer.Assets[f.Wallet.Address()] = []core.IndexedAsset{{
		ID:          f.Mint,
		Authorities: []string{Minter},
		Name:        &name,
		TokenInfo:   &core.TokenBalance{Decimals: &decimals},
	}}
	f.Program.Accounts = []core.RawRegistryAccount{RegistryAccount(f.Mint, "ACME", 2021)}

	f.Dashboard = carbx.New(carbx.Deps{
		Store:   store.NewMemoryStore(),
		Backend: f.Backend,
		Wallet:  wallet,
		Chain:   f.Chain,
		Indexer: f.Indexer,
		Program: f.Program,
		Events:  f.Events,
		Clock:   f.Clock,
		Metrics: f.Metrics,
	}, carbx.Options{
		MinterPDA: Minter,
		Redemption: service.RedemptionConfig{
			ConfigAccount: solana.MustPublicKeyFromBase58(ConfigAccount),
			Cluster:       solana.ClusterDevnet,
			ValidationTTL: 5 * time.Second,
			RegistryTTL:   7 * time.Second,
			SuccessTTL:    6 * time.Second,
			FailureTTL:    7 * time.Second,
		},
	})
	t.Cleanup(f.Dashboard.Close)
	return f
}
