package registration

import (
	"context"

	"github.com/nodecore/node/internal/api"
	"github.com/nodecore/node/internal/nodeerr"
)

var errUnknownToken = nodeerr.New(nodeerr.Unauthorized, "unknown bearer token")

// BearerTokens maps opaque v2 bearer tokens to the full name of the local
// sub-identity they authenticate as. Token issuance itself (e.g. an
// admin-only "create API token" endpoint) is outside spec.md's scope; this
// type only closes the loop the v2 HTTP routes need.
type BearerTokens struct {
	store  *Store
	tokens map[string]string // token -> full name
}

// NewBearerTokens constructs a BearerTokens authenticator backed by store.
func NewBearerTokens(store *Store, tokens map[string]string) *BearerTokens {
	if tokens == nil {
		tokens = make(map[string]string)
	}
	return &BearerTokens{store: store, tokens: tokens}
}

// Authenticate implements api.BearerAuthenticator.
func (b *BearerTokens) Authenticate(ctx context.Context, token string) (api.Validated, error) {
	fullName, ok := b.tokens[token]
	if !ok {
		return api.Validated{}, errUnknownToken
	}
	id, err := b.store.Lookup(ctx, fullName)
	if err != nil {
		return api.Validated{}, err
	}
	return api.Validated{SenderFullName: fullName, Sender: id}, nil
}
