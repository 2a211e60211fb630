// Package testutil holds hand-written fakes of the ports used across service and transport tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/solana"
	"github.com/layer-3/carbx/ports"
)

// Backend is a scripted ports.Backend
type Backend struct {
	mu sync.Mutex

	Challenge   *core.Challenge
	NonceErr    error
	VerifyErr   error
	Token       string
	Session     *core.Session
	MeErr       error
	LogoutErr   error
	PuroAccount *core.PuroAccount
	PuroErr     error
	Orders      []core.GroupedOrder
	OrdersErr   error

	// LogoutGate, when set, blocks Logout until closed
	LogoutGate chan struct{}
	// OrdersGate, when set, blocks FetchGroupedOrders until closed
	OrdersGate chan struct{}

	Calls         map[string]int
	VerifyRequest core.VerifyRequest
}

// NewBackend returns a backend whose sign-in succeeds for wallet
func NewBackend(wallet string) *Backend {
	return &Backend{
		Challenge: &core.Challenge{
			WalletAddress: wallet,
			Nonce:         "nonce-1",
			Message:       "Sign in to CarbX\nnonce-1",
		},
		Session: &core.Session{Subject: wallet, Claims: map[string]any{"sub": wallet}},
		Calls:   map[string]int{},
	}
}

func (b *Backend) record(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Calls == nil {
		b.Calls = map[string]int{}
	}
	b.Calls[name]++
}

// CallCount returns how many times name was called
func (b *Backend) CallCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Calls[name]
}

// Set applies fn under the backend lock
func (b *Backend) Set(fn func(b *Backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *Backend) RequestNonce(_ context.Context, _ string) (*core.Challenge, error) {
	b.record("RequestNonce")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NonceErr != nil {
		return nil, b.NonceErr
	}
	challenge := *b.Challenge
	return &challenge, nil
}

func (b *Backend) VerifySignature(_ context.Context, req core.VerifyRequest) (*core.VerifyResult, error) {
	b.record("VerifySignature")
	b.mu.Lock()
	defer b.mu.Unlock()
	b.VerifyRequest = req
	if b.VerifyErr != nil {
		return nil, b.VerifyErr
	}
	return &core.VerifyResult{Token: b.Token}, nil
}

func (b *Backend) FetchAuthMe(_ context.Context) (*core.Session, error) {
	b.record("FetchAuthMe")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.MeErr != nil {
		return nil, b.MeErr
	}
	return b.Session, nil
}

func (b *Backend) Logout(_ context.Context) error {
	b.mu.Lock()
	gate := b.LogoutGate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b.record("Logout")
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.LogoutErr
}

func (b *Backend) FetchPuroAccount(_ context.Context) (*core.PuroAccount, error) {
	b.record("FetchPuroAccount")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PuroErr != nil {
		return nil, b.PuroErr
	}
	return b.PuroAccount, nil
}

func (b *Backend) FetchGroupedOrders(_ context.Context) ([]core.GroupedOrder, error) {
	b.record("FetchGroupedOrders")
	b.mu.Lock()
	gate := b.OrdersGate
	orders, err := b.Orders, b.OrdersErr
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Wallet is an in-memory ports.Wallet that can also sign messages
type Wallet struct {
	mu        sync.Mutex
	keypair   *solana.Keypair
	connected bool
	SignErr   error
	TxErr     error
	listeners []func(bool)
}

// NewWallet returns a connected wallet with a fresh keypair
func NewWallet() *Wallet {
	kp, err := solana.NewKeypair()
	if err != nil {
		panic(err)
	}
	return &Wallet{keypair: kp, connected: true}
}

// Address returns the wallet address
func (w *Wallet) Address() string {
	return w.keypair.PublicKey().String()
}

// Keypair returns the wallet keypair
func (w *Wallet) Keypair() *solana.Keypair {
	return w.keypair
}

// SetConnected changes connectivity and notifies listeners on a transition
func (w *Wallet) SetConnected(connected bool) {
	w.mu.Lock()
	changed := w.connected != connected
	w.connected = connected
	listeners := append([]func(bool){}, w.listeners...)
	w.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(connected)
		}
	}
}

func (w *Wallet) Connect() { w.SetConnected(true) }

func (w *Wallet) Disconnect() { w.SetConnected(false) }

// Set applies fn under the wallet lock
func (w *Wallet) Set(fn func(w *Wallet)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w)
}

func (w *Wallet) OnConnectivityChange(fn func(bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

func (w *Wallet) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

func (w *Wallet) PublicKey() (solana.PublicKey, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return solana.PublicKey{}, false
	}
	return w.keypair.PublicKey(), true
}

func (w *Wallet) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.SignErr != nil {
		return nil, w.SignErr
	}
	return w.keypair.SignMessage(message), nil
}

func (w *Wallet) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return core.ErrWalletNotConnected
	}
	if w.TxErr != nil {
		return w.TxErr
	}
	return tx.Sign(w.keypair)
}

// TxOnlyWallet is a wallet that cannot sign arbitrary messages
type TxOnlyWallet struct {
	Inner *Wallet
}

func (w TxOnlyWallet) Connected() bool { return w.Inner.Connected() }

func (w TxOnlyWallet) PublicKey() (solana.PublicKey, bool) { return w.Inner.PublicKey() }

func (w TxOnlyWallet) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	return w.Inner.SignTransaction(ctx, tx)
}

// Chain is a scripted ports.Chain
type Chain struct {
	mu sync.Mutex

	Ref        ports.BlockReference
	BlockErr   error
	Signature  string
	SendErr    error
	ConfirmErr error

	// ConfirmGate, when set, blocks ConfirmTransaction until closed
	ConfirmGate chan struct{}

	Sent       []*solana.Transaction
	SendOpts   []ports.SendOptions
	Confirmed  []string
	Commitment ports.Commitment
	Calls      int
}

// NewChain returns a chain that confirms everything
func NewChain() *Chain {
	return &Chain{
		Ref:       ports.BlockReference{Blockhash: solana.Hash{1, 2, 3}, LastValidBlockHeight: 500, ContextSlot: 42},
		Signature: "5ignature",
	}
}

// Set applies fn under the chain lock
func (c *Chain) Set(fn func(c *Chain)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

// CallCount returns how many chain calls were made
func (c *Chain) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls
}

func (c *Chain) LatestBlockhash(_ context.Context) (*ports.BlockReference, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	if c.BlockErr != nil {
		return nil, c.BlockErr
	}
	ref := c.Ref
	return &ref, nil
}

func (c *Chain) SendTransaction(_ context.Context, tx *solana.Transaction, opts ports.SendOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, tx)
	c.SendOpts = append(c.SendOpts, opts)
	return c.Signature, nil
}

func (c *Chain) ConfirmTransaction(_ context.Context, signature string, _ ports.BlockReference, commitment ports.Commitment) error {
	c.mu.Lock()
	gate := c.ConfirmGate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	c.Commitment = commitment
	if c.ConfirmErr != nil {
		return c.ConfirmErr
	}
	c.Confirmed = append(c.Confirmed, signature)
	return nil
}

// Indexer is a scripted ports.AssetIndexer
type Indexer struct {
	mu     sync.Mutex
	Assets map[string][]core.IndexedAsset
	Err    error
	Calls  int
}

// Set applies fn under the indexer lock
func (i *Indexer) Set(fn func(i *Indexer)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	fn(i)
}

// CallCount returns how many times assets were listed
func (i *Indexer) CallCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.Calls
}

func (i *Indexer) AssetsByOwner(_ context.Context, owner string) ([]core.IndexedAsset, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Calls++
	if i.Err != nil {
		return nil, i.Err
	}
	return i.Assets[owner], nil
}

// RegistryProgram is a scripted ports.RegistryProgram
type RegistryProgram struct {
	mu sync.Mutex

	Accounts   []core.RawRegistryAccount
	FetchErr   error
	Registry   solana.PublicKey
	FindErr    error
	Result     *ports.BurnResult
	BurnErr    error
	FetchCalls int
	BurnCalls  int
	BurnArgs   ports.BurnArgs
	BurnAccts  ports.BurnAccounts
}

// Set applies fn under the program lock
func (p *RegistryProgram) Set(fn func(p *RegistryProgram)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

// Counts returns the fetch and burn call counts
func (p *RegistryProgram) Counts() (fetches, burns int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.FetchCalls, p.BurnCalls
}

func (p *RegistryProgram) FetchRegistryAccounts(_ context.Context) ([]core.RawRegistryAccount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FetchCalls++
	if p.FetchErr != nil {
		return nil, p.FetchErr
	}
	return p.Accounts, nil
}

func (p *RegistryProgram) FindRegistryAddress(_ solana.PublicKey, _ string, _ int) (solana.PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Registry, p.FindErr
}

func (p *RegistryProgram) BuildBurn(_ context.Context, accounts ports.BurnAccounts, args ports.BurnArgs) (*ports.BurnResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.BurnCalls++
	p.BurnAccts = accounts
	p.BurnArgs = args
	if p.BurnErr != nil {
		return nil, p.BurnErr
	}
	if p.Result != nil {
		return p.Result, nil
	}
	return &ports.BurnResult{Instructions: []solana.Instruction{{
		ProgramID: solana.SystemProgramID,
		Accounts: []solana.AccountMeta{
			{PublicKey: accounts.User, IsSigner: true, IsWritable: true},
			{PublicKey: accounts.Mint, IsWritable: true},
		},
		Data: []byte{9},
	}}}, nil
}

func (p *RegistryProgram) DecodeCompanyID(raw []byte) string {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b != 0 {
			out = append(out, b)
		}
	}
	return string(out)
}

// RegistryAccount builds a well-formed raw registry account
func RegistryAccount(mint, companyID string, year int) core.RawRegistryAccount {
	company := make([]byte, 16)
	copy(company, companyID)
	return core.RawRegistryAccount{Address: mint, TokenMint: &mint, CompanyID: company, Year: &year}
}

// EventPublisher records published events
type EventPublisher struct {
	mu          sync.Mutex
	Err         error
	Logouts     []string
	Redemptions []ports.RedemptionEvent
}

func (e *EventPublisher) PublishLogout(_ context.Context, walletAddress string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Logouts = append(e.Logouts, walletAddress)
	return e.Err
}

func (e *EventPublisher) PublishRedemption(_ context.Context, event ports.RedemptionEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Redemptions = append(e.Redemptions, event)
	return e.Err
}

// Snapshot returns copies of the recorded events
func (e *EventPublisher) Snapshot() ([]string, []ports.RedemptionEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.Logouts...), append([]ports.RedemptionEvent(nil), e.Redemptions...)
}

// Clock is a manual ports.Clock; timers fire on Advance
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *Clock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewClock returns a clock frozen at a fixed instant
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) ports.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Pending returns the number of timers not yet fired or stopped
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves time forward and runs due timers in deadline order
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// ErrUserRejected mimics a wallet refusing to sign
var ErrUserRejected = errors.New("user rejected the request")
