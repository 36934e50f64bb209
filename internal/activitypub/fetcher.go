package activitypub

import (
	"context"
	"errors"
	"fmt"

	"github.com/davecheney/asap/internal/cache"
	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/models"
	"golang.org/x/exp/slog"
)

// ErrIdentityMismatch is returned for a document which claims an id that the
// server it was fetched from cannot speak for.
var ErrIdentityMismatch = errors.New("document id does not match the IRI it was fetched from")

// CheckIdentity reports whether r may be the document found at iri. The id of
// r must have the authority of iri; the id of an actor must be iri exactly.
func CheckIdentity(iri string, r streams.Resolvable) error {
	want, err := models.NewObjectRef(iri, "")
	if err != nil {
		return err
	}
	got, err := models.NewObjectRef(r.IRI(), "")
	if err != nil || got.Authority() != want.Authority() {
		return fmt.Errorf("%s: id %q: %w", iri, r.IRI(), ErrIdentityMismatch)
	}
	if _, ok := r.(*streams.Actor); ok && r.IRI() != iri {
		return fmt.Errorf("%s: actor id %q: %w", iri, r.IRI(), ErrIdentityMismatch)
	}
	return nil
}

// Getter fetches raw documents. *Client is a Getter.
type Getter interface {
	Get(ctx context.Context, uri string) ([]byte, error)
}

// Fetcher dereferences IRIs into wire objects, consulting a cache of raw
// documents first.
type Fetcher struct {
	getter Getter
	cache  cache.Cache
	logger *slog.Logger
}

// NewFetcher returns a Fetcher which fetches with getter and caches in c.
func NewFetcher(getter Getter, c cache.Cache, logger *slog.Logger) *Fetcher {
	if c == nil {
		c = cache.Nop{}
	}
	return &Fetcher{
		getter: getter,
		cache:  c,
		logger: logger,
	}
}

// Fetch dereferences iri and decodes the document found there. Documents
// which fail CheckIdentity are rejected and not cached.
func (f *Fetcher) Fetch(ctx context.Context, iri string) (streams.Resolvable, error) {
	body, ok, err := f.cache.Get(ctx, iri)
	if err != nil {
		// a broken cache is not fatal
		f.logger.Warn("cache get", "iri", iri, "err", err)
	}
	if !ok {
		f.logger.Debug("fetch", "iri", iri)
		body, err = f.getter.Get(ctx, iri)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", iri, err)
		}
	}
	r, err := streams.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", iri, err)
	}
	if err := CheckIdentity(iri, r); err != nil {
		return nil, fmt.Errorf("fetch %w", err)
	}
	if !ok {
		if err := f.cache.Set(ctx, iri, body); err != nil {
			f.logger.Warn("cache set", "iri", iri, "err", err)
		}
	}
	return r, nil
}
