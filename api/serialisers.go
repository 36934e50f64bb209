package api

import (
	"time"

	"github.com/davecheney/asap/models"
	"github.com/google/uuid"
)

// serialisers for translated and stored references.

// Reference is the serialised form of a models.Reference.
type Reference struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Authority string     `json:"authority"`
	LocalID   *uuid.UUID `json:"local_id,omitempty"`
}

type Profile struct {
	Reference
	Handle         string     `json:"handle,omitempty"`
	DisplayName    string     `json:"display_name"`
	Description    string     `json:"description"`
	Fields         []Field    `json:"fields"`
	Inbox          string     `json:"inbox,omitempty"`
	Outbox         string     `json:"outbox,omitempty"`
	SharedInbox    string     `json:"shared_inbox,omitempty"`
	Keys           []Key      `json:"keys"`
	Followers      Collection `json:"followers"`
	Following      Collection `json:"following"`
	Updated        string     `json:"updated,omitempty"`
	Local          bool       `json:"local"`
	RelatedAccount []string   `json:"related_accounts,omitempty"`
}

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Key struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"`
	PublicKey string `json:"public_key_pem"`
}

// Collection holds the IRIs of the profiles in a relation collection,
// rather than the profiles themselves, so that profiles which follow each
// other serialise.
type Collection struct {
	ID         string   `json:"id,omitempty"`
	TotalItems int      `json:"total_items"`
	Items      []string `json:"items"`
}

type Post struct {
	Creators   []string `json:"creators"`
	CreatedAt  string   `json:"created_at,omitempty"`
	InReplyTo  string   `json:"in_reply_to,omitempty"`
	Mentions   []string `json:"mentions"`
	Client     string   `json:"client,omitempty"`
	Visibility string   `json:"visibility"`
}

type Note struct {
	Reference
	Post
	Content   string `json:"content"`
	Summary   string `json:"summary,omitempty"`
	Sensitive bool   `json:"sensitive"`
}

type Image struct {
	Reference
	Post
	Name      string `json:"name,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	URL       string `json:"url"`
}

// Serialise returns the serialised form of ref.
func Serialise(ref models.Reference) any {
	switch ref := ref.(type) {
	case *models.Profile:
		return serialiseProfile(ref)
	case *models.Note:
		return &Note{
			Reference: serialiseReference(ref),
			Post:      serialisePost(&ref.Post),
			Content:   ref.Content,
			Summary:   ref.Summary,
			Sensitive: ref.Sensitive,
		}
	case *models.Image:
		return &Image{
			Reference: serialiseReference(ref),
			Post:      serialisePost(&ref.Post),
			Name:      ref.Name,
			MediaType: ref.MediaType,
			URL:       ref.URL,
		}
	default:
		r := serialiseReference(ref)
		return &r
	}
}

func serialiseReference(ref models.Reference) Reference {
	r := Reference{
		ID:        ref.ID(),
		Type:      ref.Type(),
		Authority: ref.Authority(),
	}
	if id, ok := ref.LocalID(); ok {
		r.LocalID = &id
	}
	return r
}

func serialiseProfile(p *models.Profile) *Profile {
	s := &Profile{
		Reference:   serialiseReference(p),
		Handle:      p.Handle,
		DisplayName: p.DisplayName,
		Description: p.Description,
		Inbox:       p.Inbox,
		Outbox:      p.Outbox,
		SharedInbox: p.SharedInbox,
		Followers:   serialiseRelations(p.FollowersCollection, func(r models.FollowerRelation) *models.Profile { return r.Follower }),
		Following:   serialiseRelations(p.FollowingCollection, func(r models.FollowerRelation) *models.Profile { return r.Follows }),
		Local:       p.IsLocal(),
	}
	if !p.Updated.IsZero() {
		s.Updated = p.Updated.UTC().Format(time.RFC3339)
	}
	for _, f := range p.CustomFields {
		s.Fields = append(s.Fields, Field{Name: f.Name, Value: f.Value})
	}
	for _, k := range p.Keys {
		s.Keys = append(s.Keys, Key{ID: k.KeyID, Owner: k.Owner, PublicKey: string(k.PublicKey)})
	}
	for _, a := range p.RelatedAccounts {
		s.RelatedAccount = append(s.RelatedAccount, a.ID.String())
	}
	return s
}

// serialiseRelations serialises c, naming each relation by the profile other
// returns.
func serialiseRelations(c models.ObjectCollection[models.FollowerRelation], other func(models.FollowerRelation) *models.Profile) Collection {
	s := Collection{
		ID:         c.ID,
		TotalItems: c.TotalItems,
	}
	for _, r := range c.Items {
		if p := other(r); p != nil {
			s.Items = append(s.Items, p.ID())
		}
	}
	return s
}

func serialisePost(p *models.Post) Post {
	s := Post{
		Client:     p.Client,
		Visibility: p.Visibility.String(),
	}
	if !p.CreatedDate.IsZero() {
		s.CreatedAt = p.CreatedDate.UTC().Format(time.RFC3339)
	}
	if p.InReplyTo != nil {
		s.InReplyTo = p.InReplyTo.ID()
	}
	for _, c := range p.Creators {
		s.Creators = append(s.Creators, c.ID())
	}
	for _, m := range p.Mentions {
		s.Mentions = append(s.Mentions, m.ID())
	}
	return s
}
