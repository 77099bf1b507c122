// Package payments implements the network-tool invoice request/pay
// lifecycle (C8, spec.md §4.4(d) and §4.8's concurrency discipline: no
// mutex is ever held across a polling loop). Grounded on the same
// store-batch/column-family conventions as internal/inbox and internal/job
// since the teacher has no payment-broker analog of its own.
package payments

import (
	"context"
	"time"

	"github.com/nodecore/node/internal/config"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
)

const (
	cfInvoices      = "tool_micropayments_tool_invoice"
	cfNetworkErrors = "tool_micropayments_network_error"
)

// Status is the closed invoice lifecycle (spec.md §3).
type Status string

const (
	StatusPending      Status = "pending"
	StatusProcessed    Status = "processed"
	StatusNetworkError Status = "network_error"
)

// Invoice is a network-tool payment record (spec.md §3).
type Invoice struct {
	UniqueID  string
	Provider  string
	Payer     string
	Usage     string
	Amount    string
	Status    Status
	ResultStr string
}

// Widget is a WS payload published to the client so it can render a payment
// prompt or a terminal error (spec.md §4.4(d) steps e/f).
type Widget struct {
	Type         string // "PaymentRequest" or "Error"
	Invoice      Invoice
	Arguments    map[string]any
	Balances     map[string]string
	ErrorMessage string
}

// Publisher enqueues a widget for the client. Acquired only for the
// duration of the enqueue (spec.md §5: "WS Publisher: exclusive mutex but
// only held for the duration of a queue-enqueue").
type Publisher interface {
	Publish(ctx context.Context, w Widget) error
}

// BalanceFetcher returns the current wallet balances used to populate a
// PaymentRequest widget.
type BalanceFetcher interface {
	WalletBalances(ctx context.Context) (map[string]string, error)
}

// InvoiceRequester sends an invoice request to a provider node and returns
// the unique_id the broker then polls the invoice table for (spec.md
// §4.4(d) step c). Concrete implementations live with the network
// dispatcher (C11): DispatchInvoiceRequester generates that id locally and
// sends it with the request; it does not wait for the provider to return an
// id of its own.
type InvoiceRequester interface {
	RequestInvoice(ctx context.Context, provider, usage, amount string) (uniqueID string, err error)
}

// Broker is the C8 payment broker.
type Broker struct {
	backend  store.Store
	balances BalanceFetcher
	requests InvoiceRequester
	ws       Publisher

	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewBroker constructs a Broker with the spec-mandated 100ms/5min polling
// cadence (internal/config.InvoicePollInterval / InvoicePollTimeout).
func NewBroker(backend store.Store, balances BalanceFetcher, requests InvoiceRequester, ws Publisher) *Broker {
	return &Broker{
		backend:      backend,
		balances:     balances,
		requests:     requests,
		ws:           ws,
		pollInterval: config.InvoicePollInterval,
		pollTimeout:  config.InvoicePollTimeout,
	}
}

func invoiceKey(uniqueID string) []byte {
	return []byte(uniqueID)
}

func networkErrorKey(uniqueID string) []byte {
	return []byte(uniqueID)
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if err == store.ErrNotFound {
		return nodeerr.Wrap(nodeerr.NotFound, "", err)
	}
	return nodeerr.Wrap(nodeerr.Retryable, "payments store operation failed", err)
}
