package service

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

// RegistryResolver maps token mints to their registry records
type RegistryResolver struct {
	store   ports.QueryStore
	program ports.RegistryProgram

	mu     sync.RWMutex
	byMint map[string]core.RegistryRecord
}

// NewRegistryResolver creates a resolver with an empty cache
func NewRegistryResolver(store ports.QueryStore, program ports.RegistryProgram) *RegistryResolver {
	return &RegistryResolver{
		store:   store,
		program: program,
		byMint:  make(map[string]core.RegistryRecord),
	}
}

// Refresh fetches every registry account and replaces the cached records.
// Malformed accounts are dropped.
func (r *RegistryResolver) Refresh(ctx context.Context) ([]core.RegistryRecord, error) {
	data, err := r.store.Fetch(ctx, ports.KeyVintageRegistry, func(ctx context.Context) (any, error) {
		accounts, err := r.program.FetchRegistryAccounts(ctx)
		if err != nil {
			return nil, err
		}
		return r.decode(accounts), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve registry: %w", err)
	}

	records, _ := data.([]core.RegistryRecord)
	byMint := make(map[string]core.RegistryRecord, len(records))
	for _, record := range records {
		byMint[record.TokenMint] = record
	}

	r.mu.Lock()
	r.byMint = byMint
	r.mu.Unlock()

	return records, nil
}

func (r *RegistryResolver) decode(accounts []core.RawRegistryAccount) []core.RegistryRecord {
	records := make([]core.RegistryRecord, 0, len(accounts))
	for _, account := range accounts {
		record, ok := r.decodeOne(account)
		if !ok {
			logger.Debug("dropping malformed registry account", zap.String("address", account.Address))
			continue
		}
		records = append(records, record)
	}
	return records
}

func (r *RegistryResolver) decodeOne(account core.RawRegistryAccount) (core.RegistryRecord, bool) {
	if account.TokenMint == nil || account.CompanyID == nil || account.Year == nil || *account.Year == 0 {
		return core.RegistryRecord{}, false
	}
	if _, err := solana.PublicKeyFromBase58(*account.TokenMint); err != nil {
		return core.RegistryRecord{}, false
	}
	companyID := r.program.DecodeCompanyID(account.CompanyID)
	if companyID == "" {
		return core.RegistryRecord{}, false
	}
	return core.RegistryRecord{
		TokenMint: *account.TokenMint,
		CompanyID: companyID,
		Year:      *account.Year,
	}, true
}

// Lookup returns the cached record of mint without touching the network
func (r *RegistryResolver) Lookup(mint string) (core.RegistryRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.byMint[mint]
	return record, ok
}

// Records returns the cached records
func (r *RegistryResolver) Records() []core.RegistryRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]core.RegistryRecord, 0, len(r.byMint))
	for _, record := range r.byMint {
		records = append(records, record)
	}
	return records
}
