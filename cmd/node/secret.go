package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/nodecore/node/internal/crypto"
)

// nodeSecret is the on-disk shape of the single node-secret file spec.md
// §6 describes: node name plus the long-lived node keypairs. Key material
// is stored raw in this reference implementation; a production deployment
// would encrypt the file at rest or defer to an OS keychain.
type nodeSecret struct {
	NodeName      string `json:"node_name"`
	EncPrivateKey []byte `json:"enc_private_key"`
	EncPublicKey  []byte `json:"enc_public_key"`
	SigPrivateKey []byte `json:"sig_private_key"`
	SigPublicKey  []byte `json:"sig_public_key"`
}

// fileSecretStore implements registration.SecretFile against a single JSON
// file on disk, and also owns first-run keypair generation for serve/
// rotate-name.
type fileSecretStore struct {
	path string
}

func newFileSecretStore(path string) *fileSecretStore {
	return &fileSecretStore{path: path}
}

// loadOrCreate reads the secret file, generating a fresh node identity
// (random X25519/Ed25519 keypairs under nodeName) the first time the node
// starts.
func (f *fileSecretStore) loadOrCreate(nodeName string) (nodeSecret, error) {
	raw, err := os.ReadFile(f.path)
	if err == nil {
		var s nodeSecret
		if jsonErr := json.Unmarshal(raw, &s); jsonErr != nil {
			return nodeSecret{}, jsonErr
		}
		return s, nil
	}
	if !os.IsNotExist(err) {
		return nodeSecret{}, err
	}

	encKP, err := crypto.GenerateEncryptionKeyPair()
	if err != nil {
		return nodeSecret{}, err
	}
	sigKP, err := crypto.GenerateSignatureKeyPair()
	if err != nil {
		return nodeSecret{}, err
	}
	s := nodeSecret{
		NodeName:      nodeName,
		EncPrivateKey: encKP.Private[:],
		EncPublicKey:  encKP.Public[:],
		SigPrivateKey: sigKP.Private,
		SigPublicKey:  sigKP.Public,
	}
	if err := f.write(s); err != nil {
		return nodeSecret{}, err
	}
	return s, nil
}

func (f *fileSecretStore) write(s nodeSecret) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, raw, 0o600)
}

// UpdateNodeName implements registration.SecretFile.
func (f *fileSecretStore) UpdateNodeName(_ context.Context, newName string) error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	var s nodeSecret
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	s.NodeName = newName
	return f.write(s)
}

// processTerminator implements registration.Terminator by exiting the
// process outright (spec.md §4.7: "the design explicitly chooses
// crash-restart over live swap" — a supervisor is expected to restart the
// node under its new identity).
type processTerminator struct{}

func (processTerminator) Terminate() {
	os.Exit(0)
}
