// Package activitypub translates ActivityStreams wire objects into the domain
// model.
//
// Translation never performs I/O. A reference which has not been dereferenced
// translates into a partial result which carries only its identity; fetching
// the full object is the caller's job.
package activitypub

import (
	"fmt"
	"time"

	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/models"
)

// Mapper translates wire objects into domain objects.
// A Mapper holds no mutable state and is safe for concurrent use.
type Mapper struct {
	now func() time.Time
}

// NewMapper returns a Mapper that stamps profiles with the current time.
func NewMapper(opts ...func(*Mapper)) *Mapper {
	m := &Mapper{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithClock sets the clock used to stamp profiles as updated.
func WithClock(now func() time.Time) func(*Mapper) {
	return func(m *Mapper) {
		m.now = now
	}
}

// Reference translates any resolvable into the matching domain type.
func (m *Mapper) Reference(r streams.Resolvable) (models.Reference, error) {
	switch r := r.(type) {
	case *streams.Actor:
		p, err := m.Profile(r)
		if err != nil {
			return nil, err
		}
		return p, nil
	case *streams.Object:
		return m.Object(r)
	case *streams.Link:
		ref, err := m.Ref(r)
		if err != nil {
			return nil, err
		}
		return ref, nil
	case nil:
		return nil, fmt.Errorf("reference: %w", models.ErrMissingIdentifier)
	default:
		return nil, &UnsupportedTypeError{Type: r.TypeName()}
	}
}
