package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/logger"
	"github.com/layer-3/carbx/ports"
)

// AssetService lists the vintage tokens held by the connected wallet
type AssetService struct {
	store     ports.QueryStore
	indexer   ports.AssetIndexer
	wallet    ports.Wallet
	resolver  *RegistryResolver
	minterPDA string
}

// NewAssetService creates a new asset service. Only assets whose authorities include
// minterPDA are vintage tokens.
func NewAssetService(
	store ports.QueryStore,
	indexer ports.AssetIndexer,
	wallet ports.Wallet,
	resolver *RegistryResolver,
	minterPDA string,
) *AssetService {
	return &AssetService{
		store:     store,
		indexer:   indexer,
		wallet:    wallet,
		resolver:  resolver,
		minterPDA: minterPDA,
	}
}

// List returns the cached assets of the connected wallet, loading them on first use.
// refresh forces a reload. Registry records are refreshed alongside every load.
func (s *AssetService) List(ctx context.Context, refresh bool) ([]core.VintageAsset, error) {
	pk, ok := s.wallet.PublicKey()
	if !ok {
		return nil, core.ErrWalletNotConnected
	}
	owner := pk.String()
	key := ports.VintageKey(owner)

	if !refresh {
		if entry, ok := s.store.Get(key); ok && entry.Status == ports.QuerySuccess {
			assets, _ := entry.Data.([]core.VintageAsset)
			return assets, nil
		}
	}

	return s.load(ctx, owner)
}

// Refresh reloads the assets of the connected wallet
func (s *AssetService) Refresh(ctx context.Context) ([]core.VintageAsset, error) {
	return s.List(ctx, true)
}

// Find returns the asset with mint from the connected wallet's holdings
func (s *AssetService) Find(ctx context.Context, mint string) (core.VintageAsset, error) {
	assets, err := s.List(ctx, false)
	if err != nil {
		return core.VintageAsset{}, err
	}
	for _, asset := range assets {
		if asset.Mint == mint {
			return asset, nil
		}
	}
	return core.VintageAsset{}, fmt.Errorf("%w: %s", core.ErrAssetNotFound, mint)
}

func (s *AssetService) load(ctx context.Context, owner string) ([]core.VintageAsset, error) {
	if s.resolver != nil {
		if _, err := s.resolver.Refresh(ctx); err != nil {
			logger.WarnCtx(ctx, "registry refresh failed", zap.Error(err))
		}
	}

	data, err := s.store.Fetch(ctx, ports.VintageKey(owner), func(ctx context.Context) (any, error) {
		indexed, err := s.indexer.AssetsByOwner(ctx, owner)
		if err != nil {
			return nil, err
		}
		return FilterVintageAssets(indexed, s.minterPDA), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vintage tokens: %w", err)
	}

	assets, _ := data.([]core.VintageAsset)
	return assets, nil
}

// FilterVintageAssets keeps assets minted under minterPDA and maps them to vintage assets.
// A missing name falls back to the metadata symbol, a missing symbol to the token symbol.
func FilterVintageAssets(indexed []core.IndexedAsset, minterPDA string) []core.VintageAsset {
	assets := make([]core.VintageAsset, 0, len(indexed))
	for _, item := range indexed {
		if !hasAuthority(item.Authorities, minterPDA) {
			continue
		}

		symbol := item.Symbol
		if symbol == nil && item.TokenInfo != nil {
			symbol = item.TokenInfo.Symbol
		}
		name := item.Name
		if name == nil {
			name = item.Symbol
		}
		mint := item.ID
		if mint == "" {
			mint = "-"
		}

		assets = append(assets, core.VintageAsset{
			Mint:      mint,
			Name:      name,
			Symbol:    symbol,
			URI:       item.JSONURI,
			TokenInfo: item.TokenInfo,
		})
	}
	return assets
}

func hasAuthority(authorities []string, address string) bool {
	for _, authority := range authorities {
		if authority == address {
			return true
		}
	}
	return false
}
