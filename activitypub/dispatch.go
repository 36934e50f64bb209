package activitypub

import (
	"fmt"

	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/models"
)

// Object translates o into the domain type named by its type property.
// Only the types models.ParseObjectType accepts are translated; every other
// type, including "Unknown", fails with an *UnsupportedTypeError.
func (m *Mapper) Object(o *streams.Object) (models.Reference, error) {
	if o == nil {
		return nil, fmt.Errorf("object: %w", models.ErrMissingIdentifier)
	}
	typ, ok := models.ParseObjectType(o.Type)
	if !ok {
		return nil, &UnsupportedTypeError{Type: o.Type}
	}
	switch typ {
	case models.NoteType:
		note, err := m.Note(o)
		if err != nil {
			return nil, err
		}
		return note, nil
	case models.ImageType:
		img, err := m.Image(o)
		if err != nil {
			return nil, err
		}
		return img, nil
	default:
		return nil, &UnsupportedTypeError{Type: o.Type}
	}
}
