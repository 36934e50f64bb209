// Package streams decodes ActivityStreams 2.0 JSON documents.
//
// Any property that refers to another object may be given as a bare IRI, an
// embedded object, or a list of either. Decode and the list types in this
// package accept all three forms.
package streams

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-json-experiment/json"
)

// A Resolvable is an ActivityStreams entity addressed by an IRI. It may be a
// stub that carries nothing but its IRI.
type Resolvable interface {
	// IRI returns the identifier of the entity, or "" if it has none.
	IRI() string
	// TypeName returns the ActivityStreams type of the entity.
	TypeName() string
}

// Base holds the properties every resolvable carries.
type Base struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (b *Base) IRI() string { return b.ID }

func (b *Base) TypeName() string { return b.Type }

var (
	actorTypes = set("Person", "Group", "Organization", "Application", "Service")

	linkTypes = set("Link", "Mention", "Hashtag")

	collectionTypes = set("Collection", "OrderedCollection", "CollectionPage", "OrderedCollectionPage")

	keyTypes = set("Key", "CryptographicKey")

	activityTypes = set(
		"Accept", "Add", "Announce", "Block", "Create", "Delete", "Dislike", "Flag",
		"Follow", "Ignore", "Invite", "Join", "Leave", "Like", "Move", "Reject",
		"Remove", "TentativeAccept", "TentativeReject", "Undo", "Update", "View",
	)
)

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// ErrEmpty is returned by Decode when there is no document to decode.
var ErrEmpty = errors.New("streams: empty document")

// ErrMalformed is returned by Decode when the document is not an
// ActivityStreams value.
var ErrMalformed = errors.New("streams: malformed document")

// Decode decodes a single ActivityStreams value. A bare IRI decodes as a *Link
// stub. Objects decode as *Actor, *Link, *Collection, *PublicKey, *Activity or
// *Object depending on their type.
func Decode(b []byte) (Resolvable, error) {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return nil, ErrEmpty
	}
	iri, ok, err := stub(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if ok {
		return &Link{Base: Base{ID: iri}, Href: iri}, nil
	}
	if b[0] != '{' {
		return nil, fmt.Errorf("%w: expected object or IRI, found %q", ErrMalformed, b[0])
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var r Resolvable
	switch t := probe.Type; {
	case actorTypes[t]:
		r = new(Actor)
	case linkTypes[t]:
		r = new(Link)
	case collectionTypes[t]:
		r = new(Collection)
	case keyTypes[t]:
		r = new(PublicKey)
	case activityTypes[t]:
		r = new(Activity)
	default:
		r = new(Object)
	}
	if err := json.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrMalformed, probe.Type, err)
	}
	return r, nil
}

// raw captures an undecoded JSON value.
type raw []byte

func (r *raw) UnmarshalJSON(b []byte) error {
	*r = append((*r)[:0], b...)
	return nil
}

func isNull(b []byte) bool {
	return len(b) == 0 || string(b) == "null"
}

// stub reports whether b is a bare IRI and returns it.
func stub(b []byte) (string, bool, error) {
	if len(b) == 0 || b[0] != '"' {
		return "", false, nil
	}
	var iri string
	err := json.Unmarshal(b, &iri)
	return iri, true, err
}

// oneOrMany calls fn for b, or for each element if b is an array.
func oneOrMany(b []byte, fn func([]byte) error) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return nil
	}
	if b[0] != '[' {
		return fn(b)
	}
	var elems []raw
	if err := json.Unmarshal(b, &elems); err != nil {
		return err
	}
	for _, elem := range elems {
		if err := fn(elem); err != nil {
			return err
		}
	}
	return nil
}
