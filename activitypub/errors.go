package activitypub

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedType is matched by every *UnsupportedTypeError.
	ErrUnsupportedType = errors.New("unsupported object type")

	// ErrMissingKeyMaterial is returned for a public key without publicKeyPem.
	ErrMissingKeyMaterial = errors.New("missing public key material")
)

// UnsupportedTypeError is returned when the type of a wire object is not one
// that can be translated into the requested domain type.
type UnsupportedTypeError struct {
	// Type is the type exactly as it appeared on the wire.
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported object type %q", e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}
