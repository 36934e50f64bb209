package activitypub

import (
	"fmt"
	"time"

	"github.com/davecheney/asap/internal/algorithms"
	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/models"
)

// Note translates a Note object.
//
// Only the creators and creation date of the embedded Post are set. InReplyTo,
// Replies, LikedBy, BoostedBy, Mentions, Client and Visibility are left at
// their zero values; see ingest.EnrichPost.
func (m *Mapper) Note(o *streams.Object) (*models.Note, error) {
	if o == nil {
		return nil, fmt.Errorf("note: %w", models.ErrMissingIdentifier)
	}
	ref, err := baseRef(o, string(models.NoteType))
	if err != nil {
		return nil, err
	}
	post, err := m.postFields(o)
	if err != nil {
		return nil, err
	}
	return &models.Note{
		ObjectRef: ref,
		Post:      post,
		Content:   o.Content,
		Summary:   o.Summary,
		Sensitive: o.Sensitive,
	}, nil
}

// Image translates an Image object. The same Post fields as Note are left
// unset.
func (m *Mapper) Image(o *streams.Object) (*models.Image, error) {
	if o == nil {
		return nil, fmt.Errorf("image: %w", models.ErrMissingIdentifier)
	}
	ref, err := baseRef(o, string(models.ImageType))
	if err != nil {
		return nil, err
	}
	post, err := m.postFields(o)
	if err != nil {
		return nil, err
	}
	img := &models.Image{
		ObjectRef: ref,
		Post:      post,
		Name:      o.Name,
		MediaType: o.MediaType,
	}
	if len(o.URL) > 0 {
		img.URL = o.URL[0].Href
		if img.MediaType == "" {
			img.MediaType = o.URL[0].MediaType
		}
	}
	return img, nil
}

func (m *Mapper) postFields(o *streams.Object) (models.Post, error) {
	creators, err := algorithms.TryMap(o.AttributedTo, m.ProfileFrom)
	if err != nil {
		return models.Post{}, fmt.Errorf("%s: attributedTo: %w", describe(o), err)
	}
	created, err := published(o.Published)
	if err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", describe(o), err)
	}
	return models.Post{
		Creators:    creators,
		CreatedDate: created,
	}, nil
}

// published parses an xsd:dateTime. An absent timestamp is the zero time.
func published(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("published: %w", err)
	}
	return t.UTC(), nil
}
