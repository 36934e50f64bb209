// Package models contains the domain model ActivityPub objects are translated into.
package models

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/idna"
)

var (
	// ErrMissingIdentifier is returned when an object has no IRI, so no
	// authority can be derived for it.
	ErrMissingIdentifier = errors.New("missing identifier")

	// ErrInvalidIdentifier is returned when an IRI has no host component.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// A Reference is anything addressed by an IRI.
type Reference interface {
	// ID returns the IRI of the object.
	ID() string
	// Authority returns the host component of ID. It partitions objects by
	// the server that federates them.
	Authority() string
	// Type returns the ActivityStreams type, or "" if it is not known.
	Type() string
	// LocalID returns the identifier this server assigned to the object, if any.
	LocalID() (uuid.UUID, bool)
}

// ObjectRef is the identity shared by every domain object.
// The authority is always derived from the IRI; there is no way to set it
// independently.
type ObjectRef struct {
	id        string
	authority string
	typ       string
	localID   uuid.UUID
}

// NewObjectRef returns a reference to the object identified by id.
// typ may be empty when the type of the object is not yet known.
func NewObjectRef(id, typ string) (ObjectRef, error) {
	if id == "" {
		return ObjectRef{}, ErrMissingIdentifier
	}
	authority, err := authorityOf(id)
	if err != nil {
		return ObjectRef{}, err
	}
	return ObjectRef{
		id:        id,
		authority: authority,
		typ:       typ,
	}, nil
}

func (r ObjectRef) ID() string { return r.id }

func (r ObjectRef) Authority() string { return r.authority }

func (r ObjectRef) Type() string { return r.typ }

func (r ObjectRef) LocalID() (uuid.UUID, bool) {
	return r.localID, r.localID != uuid.Nil
}

// WithLocalID returns a copy of r carrying the local id assigned by persistence.
func (r ObjectRef) WithLocalID(id uuid.UUID) ObjectRef {
	r.localID = id
	return r
}

// IsZero reports whether r is the unset reference.
func (r ObjectRef) IsZero() bool {
	return r.id == ""
}

func (r ObjectRef) String() string {
	return r.id
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// authorityOf returns the lower cased, ASCII host of iri. Non default ports
// are retained as they name a different server.
func authorityOf(iri string) (string, error) {
	u, err := url.Parse(iri)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidIdentifier, iri, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w %q: no host", ErrInvalidIdentifier, iri)
	}
	host, err = idna.Punycode.ToASCII(strings.ToLower(host))
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidIdentifier, iri, err)
	}
	if port := u.Port(); port != "" && port != defaultPorts[u.Scheme] {
		return net.JoinHostPort(host, port), nil
	}
	return host, nil
}
