package solana

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of an account address in bytes
const PublicKeyLength = 32

const (
	maxSeeds      = 16
	maxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

var (
	// ErrInvalidPublicKey is returned when a string does not decode to a 32-byte key
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrMaxSeedLengthExceeded is returned when a seed is longer than 32 bytes
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	// ErrOnCurve is returned when a candidate program address lies on the ed25519 curve
	ErrOnCurve = errors.New("program address is on curve")

	// ErrNoViableBump is returned when no bump seed yields an off-curve address
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
)

// Well-known program ids
var (
	SystemProgramID                 = MustPublicKeyFromBase58("11111111111111111111111111111111")
	TokenProgramID                  = MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenAccountProgramID = MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// PublicKey is an ed25519 public key or program-derived account address
type PublicKey [PublicKeyLength]byte

// PublicKeyFromBase58 decodes a base-58 address
func PublicKeyFromBase58(s string) (PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return PublicKeyFromBytes(raw)
}

// PublicKeyFromBytes copies a 32-byte slice into a PublicKey
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, PublicKeyLength, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// MustPublicKeyFromBase58 decodes a base-58 address and panics on failure
func MustPublicKeyFromBase58(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// String returns the base-58 encoding of the key
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the key bytes
func (pk PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeyLength)
	copy(b, pk[:])
	return b
}

// IsZero reports whether the key is all zeroes
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// Equals reports whether two keys are identical
func (pk PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(pk[:], other[:])
}

// MarshalText encodes the key as base-58
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText decodes a base-58 key
func (pk *PublicKey) UnmarshalText(text []byte) error {
	decoded, err := PublicKeyFromBase58(string(text))
	if err != nil {
		return err
	}
	*pk = decoded
	return nil
}

// IsOnCurve reports whether the bytes decode to a point on the ed25519 curve
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// CreateProgramAddress derives a program address from seeds that already include the bump
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > maxSeeds {
		return PublicKey{}, ErrMaxSeedLengthExceeded
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return PublicKey{}, ErrMaxSeedLengthExceeded
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))
	hash := h.Sum(nil)

	if IsOnCurve(hash) {
		return PublicKey{}, ErrOnCurve
	}
	return PublicKeyFromBytes(hash)
}

// FindProgramAddress searches bump seeds from 255 down for the first off-curve address
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		address, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return address, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

// FindAssociatedTokenAddress derives the associated token account of owner for mint
func FindAssociatedTokenAddress(owner, mint PublicKey) (PublicKey, error) {
	address, _, err := FindProgramAddress(
		[][]byte{owner[:], TokenProgramID[:], mint[:]},
		AssociatedTokenAccountProgramID,
	)
	return address, err
}
