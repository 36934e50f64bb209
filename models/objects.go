package models

import "time"

// ObjectType is the closed set of ActivityStreams object types this server
// translates.
type ObjectType string

const (
	// ObjectTypeUnknown is never a valid object type.
	ObjectTypeUnknown ObjectType = "Unknown"

	NoteType  ObjectType = "Note"
	ImageType ObjectType = "Image"
)

// ParseObjectType reports whether s names a supported object type.
// ObjectTypeUnknown is returned when it does not.
func ParseObjectType(s string) (ObjectType, bool) {
	switch t := ObjectType(s); t {
	case NoteType, ImageType:
		return t, true
	default:
		return ObjectTypeUnknown, false
	}
}

// Visibility is the audience a Post is addressed to.
type Visibility int

const (
	// VisibilityUnset means no audience has been decided yet.
	VisibilityUnset Visibility = iota
	VisibilityPublic
	VisibilityUnlisted
	VisibilityFollowersOnly
	VisibilityDirect
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityUnlisted:
		return "unlisted"
	case VisibilityFollowersOnly:
		return "private"
	case VisibilityDirect:
		return "direct"
	default:
		return "unset"
	}
}

// Post holds the fields shared by Notes and Images.
//
// InReplyTo, Replies, LikedBy, BoostedBy, Mentions, Client and Visibility
// depend on other objects, the enclosing activity or policy. Translation leaves
// them unset; they are filled in by a later enrichment step.
type Post struct {
	Creators    []*Profile
	CreatedDate time.Time

	InReplyTo  *ObjectRef
	Replies    []ObjectRef
	LikedBy    []*Profile
	BoostedBy  []*Profile
	Mentions   []*Profile
	Client     string
	Visibility Visibility
}

// A Note is a short piece of text.
type Note struct {
	ObjectRef
	Post

	Content   string
	Summary   string
	Sensitive bool
}

// An Image is a picture, referenced by URL.
type Image struct {
	ObjectRef
	Post

	// Name is the alternative text for the image.
	Name      string
	MediaType string
	URL       string
}
