package activitypub

import (
	"fmt"

	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/models"
)

// baseRef maps the fields every resolvable shares: the IRI, and the authority
// derived from it. typ becomes the reference's type tag. The local id is never
// set here; only persistence assigns it.
func baseRef(src streams.Resolvable, typ string) (models.ObjectRef, error) {
	ref, err := models.NewObjectRef(src.IRI(), typ)
	if err != nil {
		return models.ObjectRef{}, fmt.Errorf("%s: %w", describe(src), err)
	}
	return ref, nil
}

// describe names src in error messages.
func describe(src streams.Resolvable) string {
	switch {
	case src.IRI() != "":
		return src.IRI()
	case src.TypeName() != "":
		return "anonymous " + src.TypeName()
	default:
		return "anonymous object"
	}
}

// Ref translates a link into a plain reference.
func (m *Mapper) Ref(l *streams.Link) (*models.ObjectRef, error) {
	if l == nil {
		return nil, fmt.Errorf("link: %w", models.ErrMissingIdentifier)
	}
	ref, err := baseRef(l, l.Type)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}
