package wallet

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/logger"
	"github.com/layer-3/carbx/internal/solana"
	"github.com/layer-3/carbx/ports"
)

// KeypairWallet is a wallet backed by a local ed25519 keypair
type KeypairWallet struct {
	mu        sync.RWMutex
	keypair   *solana.Keypair
	connected bool
	listeners []func(connected bool)
}

var (
	_ ports.Wallet               = (*KeypairWallet)(nil)
	_ ports.MessageSigner        = (*KeypairWallet)(nil)
	_ ports.ConnectivityNotifier = (*KeypairWallet)(nil)
)

// NewKeypairWallet creates a disconnected wallet for keypair
func NewKeypairWallet(keypair *solana.Keypair) *KeypairWallet {
	return &KeypairWallet{keypair: keypair}
}

// LoadKeypairWallet reads a keypair file and creates a disconnected wallet for it
func LoadKeypairWallet(path string) (*KeypairWallet, error) {
	keypair, err := solana.LoadKeypairFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet keypair: %w", err)
	}
	return NewKeypairWallet(keypair), nil
}

// Connect marks the wallet connected and notifies listeners on a transition
func (w *KeypairWallet) Connect() {
	w.setConnected(true)
}

// Disconnect marks the wallet disconnected and notifies listeners on a transition
func (w *KeypairWallet) Disconnect() {
	w.setConnected(false)
}

func (w *KeypairWallet) setConnected(connected bool) {
	w.mu.Lock()
	if w.connected == connected {
		w.mu.Unlock()
		return
	}
	w.connected = connected
	listeners := append([]func(bool){}, w.listeners...)
	w.mu.Unlock()

	logger.Info("wallet connectivity changed",
		zap.String("wallet", w.keypair.PublicKey().String()),
		zap.Bool("connected", connected),
	)
	for _, fn := range listeners {
		fn(connected)
	}
}

// OnConnectivityChange registers fn to be called after every connect/disconnect transition
func (w *KeypairWallet) OnConnectivityChange(fn func(connected bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Connected reports whether the wallet is connected
func (w *KeypairWallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// PublicKey returns the wallet address while connected
func (w *KeypairWallet) PublicKey() (solana.PublicKey, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.connected {
		return solana.PublicKey{}, false
	}
	return w.keypair.PublicKey(), true
}

// SignMessage signs arbitrary bytes with the wallet key
func (w *KeypairWallet) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	if !w.Connected() {
		return nil, core.ErrWalletNotConnected
	}
	return w.keypair.SignMessage(message), nil
}

// SignTransaction adds the wallet signature to tx
func (w *KeypairWallet) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	if !w.Connected() {
		return core.ErrWalletNotConnected
	}
	if err := tx.Sign(w.keypair); err != nil {
		return fmt.Errorf("%w: %v", core.ErrWalletSigning, err)
	}
	return nil
}
