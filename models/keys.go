package models

import (
	"crypto"

	keys "github.com/davecheney/asap/internal/crypto"
)

// A SigningKey is a public key an actor signs its requests with.
type SigningKey struct {
	// KeyID is the IRI of the key, usually the owner's IRI with a fragment.
	KeyID string
	// Owner is the IRI of the actor the key belongs to.
	Owner string
	// PublicKey is the PEM encoded key, exactly as it was published.
	PublicKey []byte
}

// Parse decodes the PEM encoded public key.
func (k *SigningKey) Parse() (crypto.PublicKey, error) {
	return keys.ParsePublicKey(k.PublicKey)
}
