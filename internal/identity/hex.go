package identity

import (
	"encoding/hex"
	"fmt"
)

// decodeHexKey decodes a hex-encoded key, optionally requiring an exact
// byte length (pass 0 to skip the length check).
func decodeHexKey(s string, wantLen int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	if wantLen > 0 && len(b) != wantLen {
		return nil, fmt.Errorf("expected %d bytes, got %d", wantLen, len(b))
	}
	return b, nil
}
