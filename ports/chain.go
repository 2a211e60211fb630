package ports

import (
	"context"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/solana"
)

// BlockReference is the recent blockhash a transaction is built against
type BlockReference struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	ContextSlot          uint64
}

// SendOptions controls transaction submission
type SendOptions struct {
	SkipPreflight  bool
	MinContextSlot uint64
}

// Commitment is the confirmation level waited for
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Chain is the Solana RPC connection
type Chain interface {
	// LatestBlockhash fetches the latest blockhash with its context slot
	LatestBlockhash(ctx context.Context) (*BlockReference, error)

	// SendTransaction submits a signed transaction and returns its signature
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts SendOptions) (string, error)

	// ConfirmTransaction waits until the signature reaches the commitment or the blockhash expires
	ConfirmTransaction(ctx context.Context, signature string, ref BlockReference, commitment Commitment) error
}

// AssetIndexer lists assets held by an owner
type AssetIndexer interface {
	AssetsByOwner(ctx context.Context, owner string) ([]core.IndexedAsset, error)
}
