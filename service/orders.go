package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/solana"
	"github.com/layer-3/carbx/ports"
)

// OrderRow is a flattened order with its display classification
type OrderRow struct {
	core.Order
	StatusClass     core.StatusClass `json:"statusClass"`
	MintExplorerURL string           `json:"mintExplorerUrl,omitempty"`
}

// OrderService loads the order history of the signed-in wallet
type OrderService struct {
	store    ports.QueryStore
	backend  ports.Backend
	sessions *SessionStore
	cluster  solana.Cluster
}

// NewOrderService creates a new order service
func NewOrderService(store ports.QueryStore, backend ports.Backend, sessions *SessionStore, cluster solana.Cluster) *OrderService {
	return &OrderService{
		store:    store,
		backend:  backend,
		sessions: sessions,
		cluster:  cluster,
	}
}

// Grouped returns the order groups, loading them on first use. It requires a backend session.
func (s *OrderService) Grouped(ctx context.Context, refresh bool) ([]core.GroupedOrder, error) {
	if !s.sessions.HasBackendSession() {
		return nil, core.ErrNoSession
	}

	if !refresh {
		if entry, ok := s.store.Get(ports.KeyOrdersGrouped); ok && entry.Status == ports.QuerySuccess {
			groups, _ := entry.Data.([]core.GroupedOrder)
			return groups, nil
		}
	}

	data, err := s.store.Fetch(ctx, ports.KeyOrdersGrouped, func(ctx context.Context) (any, error) {
		return s.backend.FetchGroupedOrders(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	groups, _ := data.([]core.GroupedOrder)
	return groups, nil
}

// Rows returns every order of every group, newest first
func (s *OrderService) Rows(ctx context.Context, refresh bool) ([]OrderRow, error) {
	groups, err := s.Grouped(ctx, refresh)
	if err != nil {
		return nil, err
	}

	orders := FlattenOrders(groups)
	rows := make([]OrderRow, 0, len(orders))
	for _, order := range orders {
		row := OrderRow{Order: order, StatusClass: core.ClassifyStatus(order.Status)}
		if order.MintSignature != nil && *order.MintSignature != "" {
			row.MintExplorerURL = solana.ExplorerTxURL(s.cluster, *order.MintSignature)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FlattenOrders concatenates the items of all groups and sorts them by createdAt, newest
// first. Missing or unparseable timestamps sort as the Unix epoch; ties keep input order.
func FlattenOrders(groups []core.GroupedOrder) []core.Order {
	var orders []core.Order
	for _, group := range groups {
		orders = append(orders, group.Items...)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return createdAt(orders[i]) > createdAt(orders[j])
	})
	return orders
}

func createdAt(order core.Order) int64 {
	if order.CreatedAt == nil {
		return 0
	}
	t, err := time.Parse(time.RFC3339Nano, *order.CreatedAt)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
