package models

import (
	"time"

	"github.com/google/uuid"
)

// ProfileType is the ActivityStreams actor type of a Profile.
type ProfileType string

const (
	PersonProfile       ProfileType = "Person"
	GroupProfile        ProfileType = "Group"
	OrganizationProfile ProfileType = "Organization"
	ApplicationProfile  ProfileType = "Application"
	ServiceProfile      ProfileType = "Service"
)

// ParseProfileType reports whether s names a supported actor type.
func ParseProfileType(s string) (ProfileType, bool) {
	switch t := ProfileType(s); t {
	case PersonProfile, GroupProfile, OrganizationProfile, ApplicationProfile, ServiceProfile:
		return t, true
	default:
		return "", false
	}
}

// A Profile is the public face of an actor, local or remote.
type Profile struct {
	ObjectRef

	// Handle is resolved by this server, it is never taken from the wire.
	Handle      string
	DisplayName string
	Description string

	CustomFields []CustomField

	Inbox       string
	Outbox      string
	SharedInbox string

	Keys []SigningKey

	FollowersCollection ObjectCollection[FollowerRelation]
	FollowingCollection ObjectCollection[FollowerRelation]

	// Updated is when this profile was last translated from its wire form.
	Updated time.Time

	// RelatedAccounts and OwnedBy are maintained by persistence.
	RelatedAccounts []*Account
	OwnedBy         *Account
}

// Partial reports whether p is only a reference to a profile which has not been
// resolved yet. Everything but the identity of a partial profile is unset.
func (p *Profile) Partial() bool {
	return p.Type() == ""
}

// IsLocal reports whether the profile is owned by an account on this server.
func (p *Profile) IsLocal() bool {
	return p.OwnedBy != nil
}

// A CustomField is a name/value pair shown on a profile.
type CustomField struct {
	Name  string
	Value string
}

// A FollowerRelation records that Follower follows Follows.
type FollowerRelation struct {
	Follower *Profile
	Follows  *Profile
}

// An Account is a login on this server. An Account owns a Profile.
type Account struct {
	ID    uuid.UUID
	Email string
}
