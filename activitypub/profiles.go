package activitypub

import (
	"fmt"

	"github.com/davecheney/asap/internal/algorithms"
	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/models"
)

// Profile translates an actor into a Profile.
//
// Handle is left unset; it must be resolved against known accounts by the
// caller. RelatedAccounts and OwnedBy belong to persistence.
// Updated is stamped with the mapper's clock once translation has finished.
func (m *Mapper) Profile(a *streams.Actor) (*models.Profile, error) {
	if a == nil {
		return nil, fmt.Errorf("actor: %w", models.ErrMissingIdentifier)
	}
	p, err := m.profileFields(a)
	if err != nil {
		return nil, err
	}
	m.touch(p)
	return p, nil
}

// profileFields is the field by field translation of an actor.
func (m *Mapper) profileFields(a *streams.Actor) (*models.Profile, error) {
	ref, err := baseRef(a, a.Type)
	if err != nil {
		return nil, err
	}
	if _, ok := models.ParseProfileType(a.Type); !ok {
		return nil, &UnsupportedTypeError{Type: a.Type}
	}
	keys, err := Keys(a.PublicKey)
	if err != nil {
		return nil, err
	}

	p := &models.Profile{
		ObjectRef:    ref,
		DisplayName:  a.Name,
		Description:  description(a),
		CustomFields: customFields(a.Attachment),
		Inbox:        collectionIRI(a.Inbox),
		Outbox:       collectionIRI(a.Outbox),
		SharedInbox:  a.Endpoints.SharedInbox,
		Keys:         keys,
	}
	if p.FollowersCollection, err = m.followers(a.Followers, p); err != nil {
		return nil, err
	}
	if p.FollowingCollection, err = m.following(a.Following, p); err != nil {
		return nil, err
	}
	return p, nil
}

// touch stamps p as updated. It is the only part of translating a profile
// which is not a function of the actor alone.
func (m *Mapper) touch(p *models.Profile) {
	p.Updated = m.now().UTC()
}

// ProfileFrom translates a resolvable found where an actor was expected.
// An *streams.Actor is translated in full. An object or link is a reference to
// an actor that has not been dereferenced; the result has only its identity
// set and reports Partial.
func (m *Mapper) ProfileFrom(r streams.Resolvable) (*models.Profile, error) {
	switch r := r.(type) {
	case *streams.Actor:
		return m.Profile(r)
	case *streams.Object:
		if r == nil {
			return nil, fmt.Errorf("profile: %w", models.ErrMissingIdentifier)
		}
		return partialProfile(r)
	case *streams.Link:
		if r == nil {
			return nil, fmt.Errorf("profile: %w", models.ErrMissingIdentifier)
		}
		return partialProfile(r)
	default:
		return nil, &UnsupportedTypeError{Type: typeName(r)}
	}
}

// partialProfile maps the identity of r and nothing else. Type, Handle,
// DisplayName, Description, CustomFields, Inbox, Outbox, SharedInbox, Keys and
// both collections stay unset, as does Updated.
func partialProfile(r streams.Resolvable) (*models.Profile, error) {
	ref, err := baseRef(r, "")
	if err != nil {
		return nil, err
	}
	return &models.Profile{ObjectRef: ref}, nil
}

// description prefers content, falling back to summary where Mastodon
// publishes the bio.
func description(a *streams.Actor) string {
	if a.Content != "" {
		return a.Content
	}
	return a.Summary
}

// customFields keeps the literal name/value attachments. Attachments which
// are objects in their own right are not profile metadata and are dropped.
func customFields(attachments []streams.Attachment) []models.CustomField {
	return algorithms.Map(
		algorithms.Filter(attachments, func(a streams.Attachment) bool {
			return a.Literal()
		}),
		func(a streams.Attachment) models.CustomField {
			return models.CustomField{
				Name:  a.Name,
				Value: a.Value,
			}
		},
	)
}

func collectionIRI(c *streams.Collection) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func typeName(r streams.Resolvable) string {
	if r == nil {
		return ""
	}
	return r.TypeName()
}
