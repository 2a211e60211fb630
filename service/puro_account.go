package service

import (
	"context"
	"fmt"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/ports"
)

// PuroAccountService fetches the Puro deposit account of the signed-in wallet
type PuroAccountService struct {
	store   ports.QueryStore
	backend ports.Backend
}

// NewPuroAccountService creates a new Puro account service
func NewPuroAccountService(store ports.QueryStore, backend ports.Backend) *PuroAccountService {
	return &PuroAccountService{store: store, backend: backend}
}

// Fetch loads the account from the backend. It is only ever called on explicit request.
func (s *PuroAccountService) Fetch(ctx context.Context) (*core.PuroAccount, error) {
	data, err := s.store.Fetch(ctx, ports.KeyPuroAccount, func(ctx context.Context) (any, error) {
		return s.backend.FetchPuroAccount(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load puro account: %w", err)
	}
	account, _ := data.(*core.PuroAccount)
	return account, nil
}

// Cached returns the last fetched account, nil when none is cached
func (s *PuroAccountService) Cached() *core.PuroAccount {
	entry, ok := s.store.Get(ports.KeyPuroAccount)
	if !ok {
		return nil
	}
	account, _ := entry.Data.(*core.PuroAccount)
	return account
}
