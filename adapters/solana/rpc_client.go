package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/logger"
	sol "github.com/layer-3/carbx/internal/solana"
	"github.com/layer-3/carbx/ports"
)

// ProgramAccount is a raw account owned by a program
type ProgramAccount struct {
	Address sol.PublicKey
	Data    []byte
}

// MemcmpFilter selects accounts whose data matches bytes at offset
type MemcmpFilter struct {
	Offset uint64
	Bytes  []byte
}

// RPCClient talks JSON-RPC 2.0 to a Solana node
type RPCClient struct {
	rpc          *rpc.Client
	commitment   ports.Commitment
	pollInterval time.Duration
}

// NewRPCClient dials the node at endpoint
func NewRPCClient(ctx context.Context, endpoint string, commitment ports.Commitment, pollInterval time.Duration) (*RPCClient, error) {
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial solana rpc: %w", err)
	}
	if commitment == "" {
		commitment = ports.CommitmentConfirmed
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &RPCClient{
		rpc:          client,
		commitment:   commitment,
		pollInterval: pollInterval,
	}, nil
}

type commitmentConfig struct {
	Commitment ports.Commitment `json:"commitment,omitempty"`
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

type latestBlockhashResult struct {
	Context rpcContext `json:"context"`
	Value   struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}

// LatestBlockhash fetches the latest blockhash with its context slot
func (c *RPCClient) LatestBlockhash(ctx context.Context) (*ports.BlockReference, error) {
	var result latestBlockhashResult
	if err := c.rpc.CallContext(ctx, &result, "getLatestBlockhash", commitmentConfig{Commitment: c.commitment}); err != nil {
		return nil, fmt.Errorf("getLatestBlockhash: %w", err)
	}

	hash, err := sol.HashFromBase58(result.Value.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("getLatestBlockhash: %w", err)
	}

	return &ports.BlockReference{
		Blockhash:            hash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
		ContextSlot:          result.Context.Slot,
	}, nil
}

type sendTransactionConfig struct {
	Encoding            string           `json:"encoding"`
	SkipPreflight       bool             `json:"skipPreflight"`
	PreflightCommitment ports.Commitment `json:"preflightCommitment,omitempty"`
	MinContextSlot      uint64           `json:"minContextSlot,omitempty"`
}

// SendTransaction submits a signed transaction
func (c *RPCClient) SendTransaction(ctx context.Context, tx *sol.Transaction, opts ports.SendOptions) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(tx.Serialize())

	var signature string
	err := c.rpc.CallContext(ctx, &signature, "sendTransaction", encoded, sendTransactionConfig{
		Encoding:            "base64",
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: c.commitment,
		MinContextSlot:      opts.MinContextSlot,
	})
	if err != nil {
		return "", fmt.Errorf("sendTransaction: %w", err)
	}
	return signature, nil
}

type signatureStatus struct {
	Slot               uint64          `json:"slot"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

type signatureStatusesResult struct {
	Value []*signatureStatus `json:"value"`
}

// ConfirmTransaction polls the signature status until it reaches commitment, fails on chain,
// or the block height passes the blockhash validity window.
func (c *RPCClient) ConfirmTransaction(ctx context.Context, signature string, ref ports.BlockReference, commitment ports.Commitment) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.signatureStatus(ctx, signature)
		if err != nil {
			return err
		}

		if status != nil {
			if len(status.Err) > 0 && string(status.Err) != "null" {
				return fmt.Errorf("%w: %s", core.ErrTransactionFailed, string(status.Err))
			}
			if commitmentReached(status.ConfirmationStatus, commitment) {
				logger.DebugCtx(ctx, "transaction confirmed",
					zap.String("signature", signature),
					zap.Uint64("slot", status.Slot),
					zap.String("status", status.ConfirmationStatus),
				)
				return nil
			}
		}

		var height uint64
		if err := c.rpc.CallContext(ctx, &height, "getBlockHeight", commitmentConfig{Commitment: c.commitment}); err != nil {
			return fmt.Errorf("getBlockHeight: %w", err)
		}
		if height > ref.LastValidBlockHeight {
			return fmt.Errorf("%w: signature %s", core.ErrBlockhashExpired, signature)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *RPCClient) signatureStatus(ctx context.Context, signature string) (*signatureStatus, error) {
	var result signatureStatusesResult
	err := c.rpc.CallContext(ctx, &result, "getSignatureStatuses", []string{signature}, map[string]bool{
		"searchTransactionHistory": false,
	})
	if err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}

func commitmentReached(status string, want ports.Commitment) bool {
	rank := map[string]int{
		string(ports.CommitmentProcessed): 1,
		string(ports.CommitmentConfirmed): 2,
		string(ports.CommitmentFinalized): 3,
	}
	return rank[status] > 0 && rank[status] >= rank[string(want)]
}

type memcmp struct {
	Offset uint64 `json:"offset"`
	Bytes  string `json:"bytes"`
}

type programAccountsFilter struct {
	Memcmp memcmp `json:"memcmp"`
}

type programAccountsConfig struct {
	Encoding   string                  `json:"encoding"`
	Commitment ports.Commitment        `json:"commitment,omitempty"`
	Filters    []programAccountsFilter `json:"filters,omitempty"`
}

type keyedAccount struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Data []string `json:"data"`
	} `json:"account"`
}

// ProgramAccounts returns the accounts owned by program matching every filter
func (c *RPCClient) ProgramAccounts(ctx context.Context, program sol.PublicKey, filters ...MemcmpFilter) ([]ProgramAccount, error) {
	cfg := programAccountsConfig{Encoding: "base64", Commitment: c.commitment}
	for _, f := range filters {
		cfg.Filters = append(cfg.Filters, programAccountsFilter{Memcmp: memcmp{
			Offset: f.Offset,
			Bytes:  base58.Encode(f.Bytes),
		}})
	}

	var result []keyedAccount
	if err := c.rpc.CallContext(ctx, &result, "getProgramAccounts", program.String(), cfg); err != nil {
		return nil, fmt.Errorf("getProgramAccounts: %w", err)
	}

	accounts := make([]ProgramAccount, 0, len(result))
	for _, item := range result {
		address, err := sol.PublicKeyFromBase58(item.Pubkey)
		if err != nil {
			logger.Warn("skipping program account with invalid address", zap.String("pubkey", item.Pubkey))
			continue
		}
		var data []byte
		if len(item.Account.Data) > 0 {
			data, err = base64.StdEncoding.DecodeString(item.Account.Data[0])
			if err != nil {
				logger.Warn("skipping program account with undecodable data", zap.String("pubkey", item.Pubkey))
				continue
			}
		}
		accounts = append(accounts, ProgramAccount{Address: address, Data: data})
	}
	return accounts, nil
}

// Close closes the underlying connection
func (c *RPCClient) Close() {
	c.rpc.Close()
}
