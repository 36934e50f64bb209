package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/davecheney/asap/internal/webfinger"
	"github.com/davecheney/asap/models"
	"github.com/davecheney/asap/store"
	"gorm.io/gorm"
)

// ErrHandleMismatch is returned when WebFinger resolves a handle to a
// different actor than the one claiming it.
var ErrHandleMismatch = errors.New("handle does not resolve to profile")

// A HandleResolver decides the handle, user@authority, of a profile.
// Translation never sets Profile.Handle because the preferredUsername an actor
// publishes is only a claim.
type HandleResolver interface {
	// ResolveHandle returns the handle of profile, which claims
	// preferredUsername. It returns "" if the profile has no handle.
	ResolveHandle(ctx context.Context, profile *models.Profile, preferredUsername string) (string, error)
}

// WebfingerResolver confirms handles with WebFinger. Handles already
// confirmed are taken from the store.
type WebfingerResolver struct {
	db     *gorm.DB
	client *http.Client
}

// NewWebfingerResolver returns a WebfingerResolver which looks up confirmed
// handles in db and fetches WebFinger documents with client.
func NewWebfingerResolver(db *gorm.DB, client *http.Client) *WebfingerResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebfingerResolver{db: db, client: client}
}

func (r *WebfingerResolver) ResolveHandle(ctx context.Context, profile *models.Profile, preferredUsername string) (string, error) {
	if preferredUsername == "" {
		return "", nil
	}
	handle := preferredUsername + "@" + profile.Authority()

	stored, err := store.NewProfiles(r.db.WithContext(ctx)).LookupByURI(profile.ID())
	switch {
	case err == nil && strings.EqualFold(stored.Handle, handle):
		return stored.Handle, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return "", err
	}

	acct := &webfinger.Acct{User: preferredUsername, Host: profile.Authority()}
	wf, err := webfinger.Fetch(ctx, r.client, acct)
	if err != nil {
		return "", err
	}
	href, err := wf.ActivityPub()
	if err != nil {
		return "", fmt.Errorf("%s: %w", acct, err)
	}
	if href != profile.ID() {
		return "", fmt.Errorf("%s: %w: %s is not %s", acct, ErrHandleMismatch, href, profile.ID())
	}
	return handle, nil
}
