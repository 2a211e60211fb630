package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
)

// Keypair is an ed25519 signing key
type Keypair struct {
	private ed25519.PrivateKey
	public  PublicKey
}

// NewKeypair generates a random keypair
func NewKeypair() (*Keypair, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return KeypairFromPrivateKey(private)
}

// KeypairFromPrivateKey wraps a 64-byte ed25519 private key
func KeypairFromPrivateKey(private ed25519.PrivateKey) (*Keypair, error) {
	if len(private) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length %d", len(private))
	}
	public, err := PublicKeyFromBytes(private.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &Keypair{private: private, public: public}, nil
}

// LoadKeypairFile reads a keypair stored as a JSON array of 64 bytes, the format written by solana-keygen
func LoadKeypairFile(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file: %w", err)
	}

	var values []byte
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("failed to decode keypair file: %w", err)
	}
	for _, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair file contains out of range byte %d", v)
		}
		values = append(values, byte(v))
	}

	return KeypairFromPrivateKey(ed25519.PrivateKey(values))
}

// PublicKey returns the public half of the keypair
func (k *Keypair) PublicKey() PublicKey {
	return k.public
}

// Sign signs a transaction message
func (k *Keypair) Sign(message []byte) (Signature, error) {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.private, message))
	return sig, nil
}

// SignMessage signs arbitrary bytes and returns the raw signature
func (k *Keypair) SignMessage(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}
