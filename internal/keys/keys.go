// Package keys provisions the asymmetric keypair every project owns.
// Upload clients wrap per-file encryption keys against the project
// public key; the private key stays server-side so the facility can
// re-wrap without a long-term shared secret.
package keys

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// ProjectKeys is a freshly generated X25519 keypair, hex-encoded for
// storage on the project row.
type ProjectKeys struct {
	PublicKey  string
	PrivateKey string
}

// GenerateProjectKeys creates a keypair for a new project. The project
// id is accepted as context for error reporting only; it never feeds
// the key material, which comes from the system CSPRNG. A failure here
// must abort project creation.
func GenerateProjectKeys(projectID string) (ProjectKeys, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return ProjectKeys{}, fmt.Errorf("generating keypair for project %s: %v", projectID, err)
	}
	return ProjectKeys{
		PublicKey:  hex.EncodeToString(pub[:]),
		PrivateKey: hex.EncodeToString(priv[:]),
	}, nil
}
