package ingest

import (
	"github.com/davecheney/asap/internal/algorithms"
	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/models"
	"golang.org/x/exp/slices"
)

// Public is the special collection addressing an object to everyone.
const Public = "https://www.w3.org/ns/activitystreams#Public"

func isPublic(iri string) bool {
	switch iri {
	case Public, "as:Public", "Public":
		return true
	default:
		return false
	}
}

// Visibility decides the audience of obj from its addressing.
//
// Addressed to Public is public, copied to Public is unlisted, addressed to
// the followers collection of a creator is followers only, and anything else
// that is addressed is direct. followers lists the followers collections of
// the creators. Without them the Mastodon convention of appending /followers
// to the creator's IRI is assumed.
func Visibility(obj *streams.Object, followers ...string) models.Visibility {
	switch {
	case algorithms.Any(obj.To, isPublic):
		return models.VisibilityPublic
	case algorithms.Any(obj.CC, isPublic):
		return models.VisibilityUnlisted
	}
	if len(followers) == 0 {
		for _, r := range obj.AttributedTo {
			if r.IRI() != "" {
				followers = append(followers, r.IRI()+"/followers")
			}
		}
	}
	isFollowers := func(iri string) bool {
		return slices.Contains(followers, iri)
	}
	switch {
	case algorithms.Any(obj.To, isFollowers), algorithms.Any(obj.CC, isFollowers):
		return models.VisibilityFollowersOnly
	case len(obj.To) > 0 || len(obj.CC) > 0:
		return models.VisibilityDirect
	default:
		return models.VisibilityUnset
	}
}

// EnrichPost fills in the fields of post that translation leaves unset and
// which can be derived without dereferencing anything: the visibility, a
// reference to the object replied to, the mentioned profiles as partial
// profiles, and the client which generated the enclosing activity.
// activity may be nil.
func EnrichPost(post *models.Post, obj *streams.Object, activity *streams.Activity) error {
	var followers []string
	for _, c := range post.Creators {
		if c.FollowersCollection.ID != "" {
			followers = append(followers, c.FollowersCollection.ID)
		}
	}
	post.Visibility = Visibility(obj, followers...)

	if len(obj.InReplyTo) > 0 {
		r := obj.InReplyTo[0]
		ref, err := models.NewObjectRef(r.IRI(), r.TypeName())
		if err != nil {
			return err
		}
		post.InReplyTo = &ref
	}

	post.Mentions = nil
	for _, tag := range obj.Tag {
		if tag.Type != "Mention" {
			continue
		}
		ref, err := models.NewObjectRef(tag.IRI(), "")
		if err != nil {
			return err
		}
		post.Mentions = append(post.Mentions, &models.Profile{ObjectRef: ref})
	}

	if activity != nil && len(activity.Generator) > 0 {
		post.Client = clientName(activity.Generator[0])
	}
	return nil
}

// clientName returns the name of a generator, falling back to its IRI.
func clientName(r streams.Resolvable) string {
	switch g := r.(type) {
	case *streams.Object:
		if g.Name != "" {
			return g.Name
		}
	case *streams.Actor:
		if g.Name != "" {
			return g.Name
		}
	case *streams.Link:
		if g.Name != "" {
			return g.Name
		}
	}
	return r.IRI()
}
