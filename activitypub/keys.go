package activitypub

import (
	"fmt"

	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/models"
)

// Key translates a published public key. The PEM text is kept byte for byte;
// it is not parsed here.
func Key(k *streams.PublicKey) (models.SigningKey, error) {
	if k.PublicKeyPem == "" {
		return models.SigningKey{}, fmt.Errorf("key %q: %w", k.ID, ErrMissingKeyMaterial)
	}
	return models.SigningKey{
		KeyID:     k.ID,
		Owner:     k.Owner,
		PublicKey: []byte(k.PublicKeyPem),
	}, nil
}

// Keys translates each key in order.
func Keys(ks []streams.PublicKey) ([]models.SigningKey, error) {
	if len(ks) == 0 {
		return nil, nil
	}
	keys := make([]models.SigningKey, 0, len(ks))
	for i := range ks {
		k, err := Key(&ks[i])
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
