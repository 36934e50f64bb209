package ingest

import (
	"github.com/davecheney/asap/models"
)

// Origin returns the authority of iri, the server which publishes the
// document with that id. It returns "" if iri has no authority.
func Origin(iri string) string {
	ref, err := models.NewObjectRef(iri, "")
	if err != nil {
		return ""
	}
	return ref.Authority()
}

// trusts reports whether a document published by origin may describe the
// object identified by iri. A server speaks only for its own objects.
func trusts(origin, iri string) bool {
	return origin != "" && Origin(iri) == origin
}

// ownsKey reports whether k may be published by p: the key must belong to p's
// server and, when it names an owner, be owned by p.
func ownsKey(p *models.Profile, k models.SigningKey) bool {
	if Origin(k.KeyID) != p.Authority() {
		return false
	}
	return k.Owner == "" || k.Owner == p.ID()
}

// identity returns a partial profile with the identity of p and nothing else.
func identity(p *models.Profile) (*models.Profile, error) {
	ref, err := models.NewObjectRef(p.ID(), "")
	if err != nil {
		return nil, err
	}
	return &models.Profile{ObjectRef: ref}, nil
}
