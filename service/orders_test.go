package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/testutil"
	"github.com/layer-3/carbx/service"
)

func order(id, status string, createdAt *string) core.Order {
	return core.Order{OrderID: id, OrderType: "tokenize", Wallet: "W", Status: status, CreatedAt: createdAt}
}

func TestFlattenOrders(t *testing.T) {
	groupA := core.GroupedOrder{Items: core.OrderItems{
		order("a-old", "completed", ptr("2026-01-01T00:00:00Z")),
		order("a-none", "pending", nil),
	}}
	groupB := core.GroupedOrder{Items: core.OrderItems{
		order("b-new", "failed", ptr("2026-03-01T10:00:00.5Z")),
		order("b-garbage", "pending", ptr("yesterday")),
		order("b-mid", "success", ptr("2026-02-01T00:00:00+02:00")),
	}}

	ids := func(orders []core.Order) []string {
		out := make([]string, 0, len(orders))
		for _, o := range orders {
			out = append(out, o.OrderID)
		}
		return out
	}

	want := []string{"b-new", "b-mid", "a-old", "a-none", "b-garbage"}
	assert.Equal(t, want, ids(service.FlattenOrders([]core.GroupedOrder{groupA, groupB})))

	// grouping does not change the order of the flattened rows
	merged := core.GroupedOrder{Items: append(append(core.OrderItems{}, groupA.Items...), groupB.Items...)}
	assert.Equal(t, want, ids(service.FlattenOrders([]core.GroupedOrder{merged})))

	assert.Empty(t, service.FlattenOrders(nil))
}

func TestOrderService_RequiresSession(t *testing.T) {
	h := newHarness(t)

	_, err := h.orders.Rows(context.Background(), false)
	assert.ErrorIs(t, err, core.ErrNoSession)
	assert.Equal(t, 0, h.backend.CallCount("FetchGroupedOrders"))
}

func TestOrderService_Rows(t *testing.T) {
	h := newHarness(t)
	_, err := h.sessions.Refresh(context.Background())
	require.NoError(t, err)

	withSig := order("o1", "Completed", ptr("2026-01-02T00:00:00Z"))
	withSig.MintSignature = ptr("5ig")
	h.backend.Set(func(b *testutil.Backend) {
		b.Orders = []core.GroupedOrder{{Items: core.OrderItems{
			order("o2", "ERROR", ptr("2026-01-01T00:00:00Z")),
			withSig,
			order("o3", "queued", nil),
		}}}
	})

	rows, err := h.orders.Rows(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "o1", rows[0].OrderID)
	assert.Equal(t, core.StatusClassSuccess, rows[0].StatusClass)
	assert.Equal(t, "https://solscan.io/tx/5ig?cluster=devnet", rows[0].MintExplorerURL)
	assert.Equal(t, core.StatusClassFailure, rows[1].StatusClass)
	assert.Equal(t, core.StatusClassOther, rows[2].StatusClass)
	assert.Empty(t, rows[2].MintExplorerURL)

	_, err = h.orders.Rows(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, h.backend.CallCount("FetchGroupedOrders"))

	_, err = h.orders.Rows(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, h.backend.CallCount("FetchGroupedOrders"))
}
