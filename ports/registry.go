package ports

import (
	"context"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/solana"
	"github.com/shopspring/decimal"
)

// BurnAccounts are the accounts a burn instruction operates on
type BurnAccounts struct {
	User     solana.PublicKey
	Config   solana.PublicKey
	Registry solana.PublicKey
	Mint     solana.PublicKey
}

// BurnArgs are the burn instruction arguments
type BurnArgs struct {
	Amount       decimal.Decimal
	Decimals     int
	PuroUserUUID string
}

// BurnResult carries the instructions and any extra signers they require
type BurnResult struct {
	Instructions []solana.Instruction
	Signers      []solana.Signer
}

// RegistryProgram is the vintage registry program helper
type RegistryProgram interface {
	// FetchRegistryAccounts returns every vintage registry account, leniently decoded
	FetchRegistryAccounts(ctx context.Context) ([]core.RawRegistryAccount, error)

	// FindRegistryAddress derives the registry account for a company and vintage year
	FindRegistryAddress(config solana.PublicKey, companyID string, year int) (solana.PublicKey, error)

	// BuildBurn builds the instructions burning vintage tokens for redemption
	BuildBurn(ctx context.Context, accounts BurnAccounts, args BurnArgs) (*BurnResult, error)

	// DecodeCompanyID decodes a fixed 16-byte company id field
	DecodeCompanyID(raw []byte) string
}
