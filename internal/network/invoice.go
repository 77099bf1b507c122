package network

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/nodecore/node/internal/nodeerr"
)

// invoiceRequestBody is the plain payload sent to a provider node asking it
// to price a network-tool call (spec.md §4.4(d) step c). The provider's
// eventual reply is delivered back through the same dispatcher's inbound
// path and recorded via payments.Broker.RecordInvoiceUpdate — RequestInvoice
// itself only fires the request and returns the id the caller should poll
// for.
type invoiceRequestBody struct {
	UniqueID string `json:"unique_id"`
	Usage    string `json:"usage"`
	Amount   string `json:"amount"`
}

// DispatchInvoiceRequester implements payments.InvoiceRequester over a
// Dispatcher, giving the payment broker (C8) a concrete network-backed
// implementation instead of a bare interface.
type DispatchInvoiceRequester struct {
	dispatcher *Dispatcher
}

// NewDispatchInvoiceRequester constructs a DispatchInvoiceRequester.
func NewDispatchInvoiceRequester(dispatcher *Dispatcher) *DispatchInvoiceRequester {
	return &DispatchInvoiceRequester{dispatcher: dispatcher}
}

// RequestInvoice implements payments.InvoiceRequester.
func (r *DispatchInvoiceRequester) RequestInvoice(ctx context.Context, provider, usage, amount string) (string, error) {
	uniqueID := uuid.NewString()
	body, err := json.Marshal(invoiceRequestBody{UniqueID: uniqueID, Usage: usage, Amount: amount})
	if err != nil {
		return "", nodeerr.Wrap(nodeerr.BadRequest, "marshal invoice request", err)
	}
	if err := r.dispatcher.Send(ctx, provider, body, nil); err != nil {
		return "", err
	}
	return uniqueID, nil
}
