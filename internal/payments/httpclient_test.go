package payments_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/payments"
)

func TestHTTPBalanceFetcherDecodesBalances(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/balances", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"shinkai":"100"}`))
	}))
	defer srv.Close()

	f := payments.NewHTTPBalanceFetcher(srv.URL, nil)
	balances, err := f.WalletBalances(context.Background())
	require.NoError(t, err)
	require.Equal(t, "100", balances["shinkai"])
}

func TestHTTPBalanceFetcherPropagatesNonOKStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := payments.NewHTTPBalanceFetcher(srv.URL, nil)
	_, err := f.WalletBalances(context.Background())
	require.Error(t, err)
}
