package payments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
)

// RecordInvoiceUpdate persists an invoice (insert or status transition).
// Called by the network dispatcher (C11) when a provider node responds with
// pricing (→ Pending) or a settlement result (→ Processed).
func (b *Broker) RecordInvoiceUpdate(ctx context.Context, inv Invoice) error {
	record, err := json.Marshal(inv)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal invoice", err)
	}
	if err := b.backend.Put(ctx, cfInvoices, invoiceKey(inv.UniqueID), record); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// RecordNetworkError records a provider-supplied failure message for an
// invoice request that never produced a valid invoice (spec.md §4.4(d)
// step d: "also check the network-error table").
func (b *Broker) RecordNetworkError(ctx context.Context, uniqueID, message string) error {
	if err := b.backend.Put(ctx, cfNetworkErrors, networkErrorKey(uniqueID), []byte(message)); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// GetInvoice fetches an invoice by its unique id.
func (b *Broker) GetInvoice(ctx context.Context, uniqueID string) (*Invoice, error) {
	raw, err := b.backend.Get(ctx, cfInvoices, invoiceKey(uniqueID))
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	var inv Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, nodeerr.Wrap(nodeerr.Retryable, "decode invoice", err)
	}
	return &inv, nil
}

func (b *Broker) networkError(ctx context.Context, uniqueID string) (string, bool, error) {
	raw, err := b.backend.Get(ctx, cfNetworkErrors, networkErrorKey(uniqueID))
	if err != nil {
		if err == store.ErrNotFound {
			return "", false, nil
		}
		return "", false, wrapStoreErr(err)
	}
	return string(raw), true, nil
}

// pollUntil polls the invoice table every b.pollInterval, up to
// b.pollTimeout, until the invoice reaches want or a network error is
// recorded for uniqueID. A wait for Pending is also satisfied by an invoice
// that has already moved on to Processed between two polls. It never holds
// a lock across the loop (spec.md
// §4.4(d) invariant) — each iteration is a short independent store read.
func (b *Broker) pollUntil(ctx context.Context, uniqueID string, want Status) (*Invoice, error) {
	deadline := time.Now().Add(b.pollTimeout)
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		if msg, has, err := b.networkError(ctx, uniqueID); err != nil {
			return nil, err
		} else if has {
			return nil, nodeerr.Errorf(nodeerr.Retryable, "%s", msg)
		}
		inv, err := b.GetInvoice(ctx, uniqueID)
		if err != nil && !nodeerr.Is(err, nodeerr.NotFound) {
			return nil, err
		}
		if err == nil && (inv.Status == want || (want == StatusPending && inv.Status == StatusProcessed)) {
			return inv, nil
		}
		if time.Now().After(deadline) {
			return nil, nodeerr.New(nodeerr.Retryable, "timeout while waiting for invoice payment")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunNetworkTool executes the full network-tool payment flow (spec.md
// §4.4(d)): fetch balances, request an invoice, poll for Pending, publish a
// PaymentRequest widget, poll for Processed, and return the parsed result.
// On timeout waiting for Pending, it fails without publishing a widget (no
// invoice exists yet for the client to act on); on timeout waiting for
// Processed, it publishes an Error widget before returning, matching S5.
func (b *Broker) RunNetworkTool(ctx context.Context, provider, usage, amount string, arguments map[string]any) (string, error) {
	balances, err := b.balances.WalletBalances(ctx)
	if err != nil {
		return "", nodeerr.Wrap(nodeerr.Retryable, "fetch wallet balances", err)
	}

	uniqueID, err := b.requests.RequestInvoice(ctx, provider, usage, amount)
	if err != nil {
		return "", nodeerr.Wrap(nodeerr.Retryable, "send invoice request", err)
	}

	pending, err := b.pollUntil(ctx, uniqueID, StatusPending)
	if err != nil {
		return "", err
	}

	if b.ws != nil {
		if err := b.ws.Publish(ctx, Widget{
			Type:      "PaymentRequest",
			Invoice:   *pending,
			Arguments: arguments,
			Balances:  balances,
		}); err != nil {
			return "", nodeerr.Wrap(nodeerr.Retryable, "publish payment request widget", err)
		}
	}

	processed, err := b.pollUntil(ctx, uniqueID, StatusProcessed)
	if err != nil {
		if b.ws != nil {
			_ = b.ws.Publish(ctx, Widget{
				Type:         "Error",
				Invoice:      *pending,
				ErrorMessage: "Timeout while waiting for invoice payment",
			})
		}
		return "", err
	}

	return parseResult(processed.ResultStr), nil
}

// parseResult implements spec.md §4.4(d) step g: if the provider's
// result_str parses as JSON with a top-level "data" field, return that
// field's raw JSON text; otherwise return the raw string unchanged.
func parseResult(resultStr string) string {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(resultStr), &wrapper); err != nil || wrapper.Data == nil {
		return resultStr
	}
	return strings.TrimSpace(string(wrapper.Data))
}
