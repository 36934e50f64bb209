// Package api serves the HTTP interface: the shared inbox ActivityPub
// servers deliver to, and queries over the profiles recorded.
package api

import (
	"context"
	"crypto"
	"errors"
	"strings"

	"github.com/davecheney/asap/internal/httpx"
	"github.com/davecheney/asap/models"
	"github.com/davecheney/asap/store"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

// An Ingester records ActivityPub documents. *ingest.Service is an Ingester.
type Ingester interface {
	IngestActivity(ctx context.Context, body []byte) ([]models.Reference, error)
	IngestActor(ctx context.Context, iri string) (*models.Profile, error)
}

// Env is the environment the handlers run in.
type Env struct {
	DB       *gorm.DB
	Ingester Ingester
	Logger   *slog.Logger

	// VerifySignatures rejects inbox deliveries which do not carry a valid
	// HTTP signature.
	VerifySignatures bool
}

func (e *Env) Log() *slog.Logger { return e.Logger }

// GetKey returns the public key with id keyID. Keys of profiles which have not
// been recorded are found by ingesting the key's owner.
func (e *Env) GetKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	profiles := store.NewProfiles(e.DB.WithContext(ctx))
	key, err := profiles.LookupKey(keyID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		owner, _, _ := strings.Cut(keyID, "#")
		if _, err := e.Ingester.IngestActor(ctx, owner); err != nil {
			return nil, err
		}
		key, err = profiles.LookupKey(keyID)
	}
	if err != nil {
		return nil, err
	}
	return key.Parse()
}

// Routes mounts the handlers on r.
func Routes(env *Env) func(r chi.Router) {
	return func(r chi.Router) {
		r.Post("/inbox", httpx.HandlerFunc(env, InboxCreate))
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", httpx.HandlerFunc(env, ProfilesIndex))
			r.Get("/{id}", httpx.HandlerFunc(env, ProfilesShow))
		})
		r.Get("/users/{name}", httpx.HandlerFunc(env, UsersShow))
	}
}
