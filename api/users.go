package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/davecheney/asap/internal/httpx"
	"github.com/davecheney/asap/models"
	"github.com/davecheney/asap/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-json-experiment/json"
	"gorm.io/gorm"
)

// UsersShow returns the actor document of a local profile, which servers
// fetch to verify the requests it signs.
func UsersShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	iri := fmt.Sprintf("https://%s/users/%s", r.Host, chi.URLParam(r, "name"))
	p, err := store.NewProfiles(env.DB.WithContext(r.Context())).LookupByURI(iri)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return httpx.Error(http.StatusNotFound, err)
	case err != nil:
		return err
	case !p.IsLocal():
		return httpx.Error(http.StatusNotFound, errors.New("not a local profile: "+iri))
	}
	w.Header().Set("Content-Type", "application/activity+json")
	return json.MarshalFull(w, actorDocument(p))
}

// actorDocument renders p as an ActivityStreams actor.
func actorDocument(p *models.Profile) map[string]any {
	username, _, _ := strings.Cut(p.Handle, "@")
	doc := map[string]any{
		"@context": []any{
			"https://www.w3.org/ns/activitystreams",
			"https://w3id.org/security/v1",
		},
		"id":                p.ID(),
		"type":              p.Type(),
		"preferredUsername": username,
		"name":              p.DisplayName,
		"summary":           p.Description,
		"inbox":             p.Inbox,
		"outbox":            p.Outbox,
		"followers":         p.FollowersCollection.ID,
		"following":         p.FollowingCollection.ID,
	}
	if p.SharedInbox != "" {
		doc["endpoints"] = map[string]any{
			"sharedInbox": p.SharedInbox,
		}
	}
	var keys []any
	for _, k := range p.Keys {
		keys = append(keys, map[string]any{
			"id":           k.KeyID,
			"owner":        k.Owner,
			"publicKeyPem": string(k.PublicKey),
		})
	}
	switch len(keys) {
	case 0:
	case 1:
		doc["publicKey"] = keys[0]
	default:
		doc["publicKey"] = keys
	}
	var attachments []any
	for _, f := range p.CustomFields {
		attachments = append(attachments, map[string]any{
			"type":  "PropertyValue",
			"name":  f.Name,
			"value": f.Value,
		})
	}
	if len(attachments) > 0 {
		doc["attachment"] = attachments
	}
	return doc
}
