// Package ingest records ActivityPub objects received or fetched from other
// servers.
//
// Translation into the domain model is done by package activitypub, which
// never performs I/O. This package supplies what translation leaves out: it
// dereferences IRIs, resolves handles, enriches posts and records profiles.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davecheney/asap/activitypub"
	client "github.com/davecheney/asap/internal/activitypub"
	"github.com/davecheney/asap/internal/algorithms"
	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/models"
	"github.com/davecheney/asap/store"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

// A Fetcher dereferences IRIs. *activitypub.Fetcher from internal/activitypub
// is a Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, iri string) (streams.Resolvable, error)
}

// Service ingests wire objects.
type Service struct {
	db      *gorm.DB
	fetcher Fetcher
	mapper  *activitypub.Mapper
	handles HandleResolver
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Service)

// WithMapper sets the mapper objects are translated with.
func WithMapper(m *activitypub.Mapper) Option {
	return func(s *Service) { s.mapper = m }
}

// WithHandleResolver sets the resolver profile handles are decided by.
func WithHandleResolver(h HandleResolver) Option {
	return func(s *Service) { s.handles = h }
}

// WithMetrics sets the metrics the service reports to.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService returns a Service which records into db and dereferences with
// fetcher.
func NewService(db *gorm.DB, fetcher Fetcher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		db:      db,
		fetcher: fetcher,
		mapper:  activitypub.NewMapper(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.handles == nil {
		s.handles = NewWebfingerResolver(db, nil)
	}
	return s
}

// IngestActor dereferences the actor at iri, translates it, resolves its handle
// and records it. The document found must have iri as its id.
func (s *Service) IngestActor(ctx context.Context, iri string) (*models.Profile, error) {
	r, err := s.fetch(ctx, iri)
	if err != nil {
		s.metrics.IncrementIngested("profile", "error")
		return nil, err
	}
	a, ok := r.(*streams.Actor)
	if !ok {
		s.metrics.IncrementIngested("profile", "unsupported")
		return nil, fmt.Errorf("%s: %w", iri, &activitypub.UnsupportedTypeError{Type: r.TypeName()})
	}
	p, err := s.recordActor(ctx, a)
	s.metrics.IncrementIngested("profile", result(err))
	return p, err
}

// Hydrate returns p if it is resolved; otherwise it ingests the actor p
// refers to.
func (s *Service) Hydrate(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if !p.Partial() {
		return p, nil
	}
	return s.IngestActor(ctx, p.ID())
}

// IngestActivity decodes body and ingests each object of the activity. A body
// which is not an activity is ingested as a single object. The references
// ingested are returned along with any errors, which do not stop the
// remaining objects from being ingested.
//
// Actors embedded in the activity are only recorded in full when they share
// the authority of the activity's id. Callers which authenticate deliveries
// must check that id against the sender.
func (s *Service) IngestActivity(ctx context.Context, body []byte) ([]models.Reference, error) {
	r, err := streams.Decode(body)
	if err != nil {
		s.metrics.IncrementIngested("activity", "error")
		return nil, err
	}
	act, ok := r.(*streams.Activity)
	if !ok {
		ref, err := s.IngestObject(ctx, r, nil)
		if err != nil {
			return nil, err
		}
		return []models.Reference{ref}, nil
	}
	s.logger.Debug("ingest activity", "id", act.ID, "type", act.Type)

	origin := Origin(act.ID)
	var errs []error
	for _, a := range act.Actor {
		if err := s.notice(ctx, a, origin); err != nil {
			errs = append(errs, err)
		}
	}
	var refs []models.Reference
	for _, obj := range act.Object {
		ref, err := s.ingestObject(ctx, obj, act, origin)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		refs = append(refs, ref)
	}
	err = errors.Join(errs...)
	s.metrics.IncrementIngested("activity", result(err))
	return refs, err
}

// IngestObject translates r and records the profiles it carries. activity is
// the activity r arrived in; it may be nil, in which case r speaks for its
// own authority. A reference which has not been dereferenced is fetched
// first.
func (s *Service) IngestObject(ctx context.Context, r streams.Resolvable, activity *streams.Activity) (models.Reference, error) {
	origin := ""
	switch {
	case activity != nil:
		origin = Origin(activity.ID)
	case r != nil:
		origin = Origin(r.IRI())
	}
	return s.ingestObject(ctx, r, activity, origin)
}

// ingestObject is IngestObject for r found in a document published by origin.
func (s *Service) ingestObject(ctx context.Context, r streams.Resolvable, activity *streams.Activity, origin string) (models.Reference, error) {
	switch r := r.(type) {
	case *streams.Actor:
		p, err := s.ingestActor(ctx, r, origin)
		s.metrics.IncrementIngested("profile", result(err))
		if err != nil {
			return nil, err
		}
		return p, nil
	case *streams.Link:
		fetched, err := s.fetch(ctx, r.IRI())
		if err != nil {
			s.metrics.IncrementIngested("ref", "error")
			return nil, err
		}
		if _, ok := fetched.(*streams.Link); ok {
			// a link to a link; stop here.
			ref, err := s.mapper.Ref(r)
			s.metrics.IncrementIngested("ref", result(err))
			if err != nil {
				return nil, err
			}
			return ref, nil
		}
		// the fetched document speaks for the server it came from
		return s.ingestObject(ctx, fetched, activity, Origin(r.IRI()))
	case *streams.Object:
		ref, err := s.mapper.Object(r)
		if err != nil {
			s.metrics.IncrementIngested(kindOf(r.Type), result(err))
			return nil, err
		}
		switch v := ref.(type) {
		case *models.Note:
			err = s.recordPost(ctx, &v.Post, r, activity, origin)
		case *models.Image:
			err = s.recordPost(ctx, &v.Post, r, activity, origin)
		}
		s.metrics.IncrementIngested(kindOf(r.Type), result(err))
		if err != nil {
			return nil, err
		}
		return ref, nil
	default:
		err := &activitypub.UnsupportedTypeError{Type: typeName(r)}
		s.metrics.IncrementIngested("other", result(err))
		return nil, err
	}
}

// fetch dereferences iri, rejecting documents which claim an id iri's server
// cannot speak for.
func (s *Service) fetch(ctx context.Context, iri string) (streams.Resolvable, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveFetchLatency(time.Since(start)) }()
	r, err := s.fetcher.Fetch(ctx, iri)
	if err != nil {
		return nil, err
	}
	if err := client.CheckIdentity(iri, r); err != nil {
		return nil, err
	}
	return r, nil
}

// recordActor translates a, which was published by its own server, resolves
// its handle and records it.
func (s *Service) recordActor(ctx context.Context, a *streams.Actor) (*models.Profile, error) {
	p, err := s.mapper.Profile(a)
	if err != nil {
		return nil, err
	}
	handle, err := s.handles.ResolveHandle(ctx, p, a.PreferredUsername)
	if err != nil {
		// the profile is still worth recording without a handle
		s.logger.Warn("resolve handle", "id", p.ID(), "preferredUsername", a.PreferredUsername, "err", err)
	}
	p.Handle = handle
	return s.record(store.NewProfiles(s.db.WithContext(ctx)), p)
}

// ingestActor records an actor found in a document published by origin.
func (s *Service) ingestActor(ctx context.Context, a *streams.Actor, origin string) (*models.Profile, error) {
	if trusts(origin, a.IRI()) {
		return s.recordActor(ctx, a)
	}
	p, err := s.mapper.Profile(a)
	if err != nil {
		return nil, err
	}
	return s.admit(store.NewProfiles(s.db.WithContext(ctx)), p, origin)
}

// recordPost enriches post and records its creators. Creators which are not
// resolved, or which origin cannot speak for, are recorded as partial
// profiles and queued for refresh.
func (s *Service) recordPost(ctx context.Context, post *models.Post, obj *streams.Object, activity *streams.Activity, origin string) error {
	profiles := store.NewProfiles(s.db.WithContext(ctx))
	for i, c := range post.Creators {
		stored, err := s.admit(profiles, c, origin)
		if err != nil {
			return err
		}
		post.Creators[i] = stored
	}
	return EnrichPost(post, obj, activity)
}

// notice records the actor of an activity published by origin.
func (s *Service) notice(ctx context.Context, r streams.Resolvable, origin string) error {
	p, err := s.mapper.ProfileFrom(r)
	if err != nil {
		return err
	}
	_, err = s.admit(store.NewProfiles(s.db.WithContext(ctx)), p, origin)
	return err
}

// admit records p, found in a document published by origin. A resolved
// profile is recorded in full only when origin speaks for it. Any other
// profile is recorded by its identity alone and queued for refresh, so that
// what is stored about it comes from its own server.
func (s *Service) admit(profiles *store.Profiles, p *models.Profile, origin string) (*models.Profile, error) {
	if !p.Partial() && trusts(origin, p.ID()) {
		return s.record(profiles, p)
	}
	if !p.Partial() {
		s.logger.Debug("record identity only", "id", p.ID(), "origin", origin)
		var err error
		if p, err = identity(p); err != nil {
			return nil, err
		}
		stored, err := s.resolve(profiles, p)
		if err != nil {
			return nil, err
		}
		if !stored.Partial() && !stored.IsLocal() {
			// the embedded copy may be newer than ours
			if err := profiles.Refresh(stored.ID()); err != nil {
				return nil, err
			}
		}
		return stored, nil
	}
	return s.resolve(profiles, p)
}

// record stores p, which was published by its own server. Keys which p's
// server cannot speak for are dropped. Profiles owned by local accounts are
// never overwritten; the stored profile is returned instead.
func (s *Service) record(profiles *store.Profiles, p *models.Profile) (*models.Profile, error) {
	p.Keys = algorithms.Filter(p.Keys, func(k models.SigningKey) bool {
		if ownsKey(p, k) {
			return true
		}
		s.logger.Warn("drop foreign key", "id", p.ID(), "keyId", k.KeyID, "owner", k.Owner)
		return false
	})
	err := profiles.Record(p)
	if errors.Is(err, store.ErrLocalProfile) {
		s.logger.Warn("ignore remote copy of local profile", "id", p.ID())
		return profiles.LookupByURI(p.ID())
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// resolve returns the stored profile for the partial profile p, recording p
// and queueing it for refresh if no resolved profile is stored.
func (s *Service) resolve(profiles *store.Profiles, p *models.Profile) (*models.Profile, error) {
	if err := profiles.Record(p); err != nil {
		return nil, err
	}
	stored, err := profiles.LookupByURI(p.ID())
	if err != nil {
		return nil, err
	}
	if stored.Partial() {
		s.logger.Debug("queue refresh", "id", p.ID())
		if err := profiles.Refresh(p.ID()); err != nil {
			return nil, err
		}
	}
	return stored, nil
}

func kindOf(typ string) string {
	switch t, _ := models.ParseObjectType(typ); t {
	case models.NoteType:
		return "note"
	case models.ImageType:
		return "image"
	default:
		return "other"
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, activitypub.ErrUnsupportedType):
		return "unsupported"
	default:
		return "error"
	}
}

func typeName(r streams.Resolvable) string {
	if r == nil {
		return ""
	}
	return r.TypeName()
}
