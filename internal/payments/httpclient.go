package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nodecore/node/internal/nodeerr"
)

// HTTPBalanceFetcher implements BalanceFetcher over the wallet/settlement
// service's HTTP API — wallet and payment settlement are an external
// collaborator (spec.md §1), so this deployment talks to it as a plain
// net/http client rather than embedding a ledger of its own.
type HTTPBalanceFetcher struct {
	client  *http.Client
	baseURL string
}

// NewHTTPBalanceFetcher constructs an HTTPBalanceFetcher against baseURL. A
// nil client uses http.DefaultClient.
func NewHTTPBalanceFetcher(baseURL string, client *http.Client) *HTTPBalanceFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBalanceFetcher{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

var _ BalanceFetcher = (*HTTPBalanceFetcher)(nil)

// WalletBalances implements BalanceFetcher.
func (f *HTTPBalanceFetcher) WalletBalances(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/balances", nil)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Retryable, "build wallet balances request", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Retryable, "fetch wallet balances", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nodeerr.Errorf(nodeerr.Retryable, "wallet service returned status %d", resp.StatusCode)
	}
	var balances map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&balances); err != nil {
		return nil, nodeerr.Wrap(nodeerr.Retryable, "decode wallet balances response", err)
	}
	return balances, nil
}
