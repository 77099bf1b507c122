package payments_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/payments"
	"github.com/nodecore/node/internal/store"
)

type fakeBalances struct{ balances map[string]string }

func (f fakeBalances) WalletBalances(context.Context) (map[string]string, error) {
	return f.balances, nil
}

type fakeRequester struct{ uniqueID string }

func (f fakeRequester) RequestInvoice(context.Context, string, string, string) (string, error) {
	return f.uniqueID, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	widgets []payments.Widget
}

func (f *fakePublisher) Publish(_ context.Context, w payments.Widget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.widgets = append(f.widgets, w)
	return nil
}

func (f *fakePublisher) snapshot() []payments.Widget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]payments.Widget(nil), f.widgets...)
}

func TestRunNetworkToolHappyPath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backend := store.NewMemStore()
	ws := &fakePublisher{}
	broker := payments.NewBroker(backend, fakeBalances{balances: map[string]string{"KAI": "10"}}, fakeRequester{uniqueID: "inv-1"}, ws)

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = broker.RecordInvoiceUpdate(ctx, payments.Invoice{UniqueID: "inv-1", Status: payments.StatusPending})
		time.Sleep(5 * time.Millisecond)
		_ = broker.RecordInvoiceUpdate(ctx, payments.Invoice{UniqueID: "inv-1", Status: payments.StatusProcessed, ResultStr: `{"data":"done"}`})
	}()

	result, err := broker.RunNetworkTool(ctx, "provider", "usage", "1", map[string]any{"arg": 1})
	require.NoError(t, err)
	require.Equal(t, `"done"`, result)
	require.Len(t, ws.snapshot(), 1)
	require.Equal(t, "PaymentRequest", ws.snapshot()[0].Type)
}

func TestRunNetworkToolSurfacesNetworkError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backend := store.NewMemStore()
	broker := payments.NewBroker(backend, fakeBalances{}, fakeRequester{uniqueID: "inv-2"}, nil)

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = broker.RecordNetworkError(ctx, "inv-2", "provider rejected request")
	}()

	_, err := broker.RunNetworkTool(ctx, "provider", "usage", "1", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "provider rejected request")
}

func TestParseResultFallsBackToRawString(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backend := store.NewMemStore()
	ws := &fakePublisher{}
	broker := payments.NewBroker(backend, fakeBalances{}, fakeRequester{uniqueID: "inv-3"}, ws)

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = broker.RecordInvoiceUpdate(ctx, payments.Invoice{UniqueID: "inv-3", Status: payments.StatusPending})
		time.Sleep(5 * time.Millisecond)
		_ = broker.RecordInvoiceUpdate(ctx, payments.Invoice{UniqueID: "inv-3", Status: payments.StatusProcessed, ResultStr: "plain result"})
	}()

	result, err := broker.RunNetworkTool(ctx, "provider", "usage", "1", nil)
	require.NoError(t, err)
	require.Equal(t, "plain result", result)
}
