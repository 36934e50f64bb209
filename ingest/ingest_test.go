package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/davecheney/asap/activitypub"
	client "github.com/davecheney/asap/internal/activitypub"
	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/models"
	"github.com/davecheney/asap/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger: logger.Default.LogMode(func() logger.LogLevel {
			return logger.Warn
		}()),
	})
	require.NoError(err)

	err = db.AutoMigrate(store.AllTables()...)
	require.NoError(err)

	// enable foreign key constraints
	err = db.Exec("PRAGMA foreign_keys = ON").Error
	require.NoError(err)
	return db
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard))
}

// fakeFetcher serves documents from a map.
type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, iri string) (streams.Resolvable, error) {
	doc, ok := f[iri]
	if !ok {
		return nil, fmt.Errorf("%s: not found", iri)
	}
	return streams.Decode([]byte(doc))
}

// usernameResolver trusts the preferredUsername.
type usernameResolver struct{}

func (usernameResolver) ResolveHandle(_ context.Context, p *models.Profile, preferredUsername string) (string, error) {
	return preferredUsername + "@" + p.Authority(), nil
}

const bob = `{
	"id": "https://remote.example/users/bob",
	"type": "Person",
	"preferredUsername": "bob",
	"name": "Bob",
	"followers": "https://remote.example/users/bob/followers",
	"publicKey": {"id": "https://remote.example/users/bob#main-key", "owner": "https://remote.example/users/bob", "publicKeyPem": "pem"}
}`

func newTestService(t *testing.T, tx *gorm.DB, docs fakeFetcher) (*Service, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewService(tx, docs, discard(), WithHandleResolver(usernameResolver{}), WithMetrics(metrics)), metrics
}

func TestIngestActor(t *testing.T) {
	db := setupTestDB(t)

	t.Run("records the actor", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, metrics := newTestService(t, tx, fakeFetcher{"https://remote.example/users/bob": bob})
		p, err := svc.IngestActor(context.Background(), "https://remote.example/users/bob")
		require.NoError(err)
		require.Equal("bob@remote.example", p.Handle)
		_, ok := p.LocalID()
		require.True(ok)

		stored, err := store.NewProfiles(tx).LookupByURI("https://remote.example/users/bob")
		require.NoError(err)
		require.Equal("Bob", stored.DisplayName)
		require.Equal("bob@remote.example", stored.Handle)
		require.Len(stored.Keys, 1)

		require.Equal(1.0, testutil.ToFloat64(metrics.Ingested.WithLabelValues("profile", "ok")))
	})
	t.Run("not an actor", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, metrics := newTestService(t, tx, fakeFetcher{"https://remote.example/notes/1": `{"id":"https://remote.example/notes/1","type":"Note"}`})
		_, err := svc.IngestActor(context.Background(), "https://remote.example/notes/1")
		require.ErrorIs(err, activitypub.ErrUnsupportedType)
		require.Equal(1.0, testutil.ToFloat64(metrics.Ingested.WithLabelValues("profile", "unsupported")))
	})
	t.Run("fetch fails", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, metrics := newTestService(t, tx, fakeFetcher{})
		_, err := svc.IngestActor(context.Background(), "https://remote.example/users/nobody")
		require.Error(err)
		require.Equal(1.0, testutil.ToFloat64(metrics.Ingested.WithLabelValues("profile", "error")))
	})
}

func TestHydrate(t *testing.T) {
	require := require.New(t)
	db := setupTestDB(t)
	tx := db.Begin()
	defer tx.Rollback()

	svc, _ := newTestService(t, tx, fakeFetcher{"https://remote.example/users/bob": bob})
	partial, err := svc.mapper.ProfileFrom(&streams.Link{Href: "https://remote.example/users/bob"})
	require.NoError(err)
	require.True(partial.Partial())

	p, err := svc.Hydrate(context.Background(), partial)
	require.NoError(err)
	require.False(p.Partial())
	require.Equal("Bob", p.DisplayName)

	same, err := svc.Hydrate(context.Background(), p)
	require.NoError(err)
	require.Same(p, same)
}

func TestIngestActivity(t *testing.T) {
	db := setupTestDB(t)

	const create = `{
		"id": "https://remote.example/users/bob/statuses/1/activity",
		"type": "Create",
		"actor": "https://remote.example/users/bob",
		"generator": {"type": "Application", "name": "Web"},
		"object": {
			"id": "https://remote.example/users/bob/statuses/1",
			"type": "Note",
			"attributedTo": "https://remote.example/users/bob",
			"content": "<p>hello @alice</p>",
			"published": "2023-04-01T12:00:00Z",
			"inReplyTo": "https://example.social/users/alice/statuses/9",
			"to": ["https://www.w3.org/ns/activitystreams#Public"],
			"cc": ["https://remote.example/users/bob/followers"],
			"tag": [{"type": "Mention", "href": "https://example.social/users/alice", "name": "@alice@example.social"}]
		}
	}`

	t.Run("note from an unknown actor", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, metrics := newTestService(t, tx, fakeFetcher{})
		refs, err := svc.IngestActivity(context.Background(), []byte(create))
		require.NoError(err)
		require.Len(refs, 1)
		note, ok := refs[0].(*models.Note)
		require.True(ok)

		require.Equal(models.VisibilityPublic, note.Visibility)
		require.Equal("Web", note.Client)
		require.NotNil(note.InReplyTo)
		require.Equal("https://example.social/users/alice/statuses/9", note.InReplyTo.ID())
		require.Len(note.Mentions, 1)
		require.Equal("https://example.social/users/alice", note.Mentions[0].ID())
		require.Len(note.Creators, 1)
		require.True(note.Creators[0].Partial())
		_, ok = note.Creators[0].LocalID()
		require.True(ok)

		var reqs []store.ProfileRefreshRequest
		require.NoError(tx.Preload("Profile").Find(&reqs).Error)
		require.Len(reqs, 1)
		require.Equal("https://remote.example/users/bob", reqs[0].Profile.URI)

		require.Equal(1.0, testutil.ToFloat64(metrics.Ingested.WithLabelValues("note", "ok")))
		require.Equal(1.0, testutil.ToFloat64(metrics.Ingested.WithLabelValues("activity", "ok")))
	})
	t.Run("note from a known actor", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, _ := newTestService(t, tx, fakeFetcher{"https://remote.example/users/bob": bob})
		_, err := svc.IngestActor(context.Background(), "https://remote.example/users/bob")
		require.NoError(err)

		refs, err := svc.IngestActivity(context.Background(), []byte(create))
		require.NoError(err)
		note := refs[0].(*models.Note)
		require.False(note.Creators[0].Partial())
		require.Equal("bob@remote.example", note.Creators[0].Handle)

		var count int64
		require.NoError(tx.Model(&store.ProfileRefreshRequest{}).Count(&count).Error)
		require.Zero(count)
	})
	t.Run("object by reference", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, _ := newTestService(t, tx, fakeFetcher{
			"https://remote.example/media/1": `{"id":"https://remote.example/media/1","type":"Image","url":"https://cdn.remote.example/1.png","cc":["https://remote.example/users/bob/followers"],"attributedTo":"https://remote.example/users/bob"}`,
		})
		refs, err := svc.IngestActivity(context.Background(), []byte(`{"id":"https://remote.example/a/2","type":"Announce","actor":"https://remote.example/users/bob","object":"https://remote.example/media/1"}`))
		require.NoError(err)
		require.Len(refs, 1)
		img, ok := refs[0].(*models.Image)
		require.True(ok)
		require.Equal("https://cdn.remote.example/1.png", img.URL)
		require.Equal(models.VisibilityFollowersOnly, img.Visibility)
	})
	t.Run("unsupported object", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, metrics := newTestService(t, tx, fakeFetcher{})
		refs, err := svc.IngestActivity(context.Background(), []byte(`{"id":"https://remote.example/a/3","type":"Delete","actor":"https://remote.example/users/bob","object":{"id":"https://remote.example/users/bob/statuses/1","type":"Tombstone"}}`))
		require.ErrorIs(err, activitypub.ErrUnsupportedType)
		require.Empty(refs)
		require.Equal(1.0, testutil.ToFloat64(metrics.Ingested.WithLabelValues("other", "unsupported")))
		require.Equal(1.0, testutil.ToFloat64(metrics.Ingested.WithLabelValues("activity", "unsupported")))
	})
	t.Run("bare object", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, _ := newTestService(t, tx, fakeFetcher{})
		refs, err := svc.IngestActivity(context.Background(), []byte(bob))
		require.NoError(err)
		require.Len(refs, 1)
		require.IsType(&models.Profile{}, refs[0])
	})
	t.Run("malformed", func(t *testing.T) {
		svc, _ := newTestService(t, db, fakeFetcher{})
		_, err := svc.IngestActivity(context.Background(), []byte(`{"type":`))
		require.Error(t, err)
	})
}

func storedKey(t *testing.T, tx *gorm.DB, keyID string) string {
	t.Helper()
	key, err := store.NewProfiles(tx).LookupKey(keyID)
	require.NoError(t, err)
	return string(key.PublicKey)
}

func TestIngestAuthority(t *testing.T) {
	db := setupTestDB(t)

	const forgedBob = `{
		"id": "https://remote.example/users/bob",
		"type": "Person",
		"preferredUsername": "bob",
		"name": "Not Bob",
		"publicKey": {"id": "https://remote.example/users/bob#main-key", "owner": "https://remote.example/users/bob", "publicKeyPem": "ATTACKER"}
	}`

	t.Run("embedded actor from another server", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, _ := newTestService(t, tx, fakeFetcher{"https://remote.example/users/bob": bob})
		_, err := svc.IngestActor(context.Background(), "https://remote.example/users/bob")
		require.NoError(err)

		for _, doc := range []string{
			`{"type":"Update","actor":` + forgedBob + `,"object":{"id":"https://attacker.example/n/1","type":"Note"}}`,
			`{"id":"https://attacker.example/a/1","type":"Update","actor":` + forgedBob + `,"object":{"id":"https://attacker.example/n/1","type":"Note"}}`,
			`{"id":"https://attacker.example/a/2","type":"Update","actor":"https://attacker.example/users/mallory","object":` + forgedBob + `}`,
			`{"id":"https://attacker.example/a/3","type":"Create","actor":"https://attacker.example/users/mallory","object":{"id":"https://attacker.example/n/2","type":"Note","attributedTo":` + forgedBob + `}}`,
		} {
			_, err := svc.IngestActivity(context.Background(), []byte(doc))
			require.NoError(err)
		}

		require.Equal("pem", storedKey(t, tx, "https://remote.example/users/bob#main-key"))
		stored, err := store.NewProfiles(tx).LookupByURI("https://remote.example/users/bob")
		require.NoError(err)
		require.Equal("Bob", stored.DisplayName)

		// bob is refreshed from his own server instead
		var reqs []store.ProfileRefreshRequest
		require.NoError(tx.Preload("Profile").Where("profile_id IN (?)", tx.Model(&store.Profile{}).Select("id").Where("uri = ?", "https://remote.example/users/bob")).Find(&reqs).Error)
		require.Len(reqs, 1)
	})
	t.Run("embedded actor from its own server", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, _ := newTestService(t, tx, fakeFetcher{"https://remote.example/users/bob": bob})
		_, err := svc.IngestActor(context.Background(), "https://remote.example/users/bob")
		require.NoError(err)

		updated := strings.Replace(bob, `"pem"`, `"pem2"`, 1)
		_, err = svc.IngestActivity(context.Background(), []byte(`{"id":"https://remote.example/a/1","type":"Update","actor":"https://remote.example/users/bob","object":`+updated+`}`))
		require.NoError(err)
		require.Equal("pem2", storedKey(t, tx, "https://remote.example/users/bob#main-key"))
	})
	t.Run("fetched document claims another id", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, metrics := newTestService(t, tx, fakeFetcher{"https://attacker.example/users/mallory": forgedBob})
		_, err := svc.IngestActor(context.Background(), "https://attacker.example/users/mallory")
		require.ErrorIs(err, client.ErrIdentityMismatch)
		require.Equal(1.0, testutil.ToFloat64(metrics.Ingested.WithLabelValues("profile", "error")))

		ok, err := store.NewProfiles(tx).AnyByURI("https://remote.example/users/bob")
		require.NoError(err)
		require.False(ok)

		// the same holds for objects fetched by reference
		svc, _ = newTestService(t, tx, fakeFetcher{"https://attacker.example/n/1": `{"id":"https://remote.example/n/1","type":"Note"}`})
		_, err = svc.IngestActivity(context.Background(), []byte(`{"id":"https://attacker.example/a/1","type":"Announce","actor":"https://attacker.example/users/mallory","object":"https://attacker.example/n/1"}`))
		require.ErrorIs(err, client.ErrIdentityMismatch)
	})
	t.Run("keys for another server are dropped", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		svc, _ := newTestService(t, tx, fakeFetcher{"https://attacker.example/users/mallory": `{
			"id": "https://attacker.example/users/mallory",
			"type": "Person",
			"publicKey": [
				{"id": "https://remote.example/users/bob#main-key", "owner": "https://remote.example/users/bob", "publicKeyPem": "ATTACKER"},
				{"id": "https://attacker.example/users/mallory#main-key", "owner": "https://attacker.example/users/mallory", "publicKeyPem": "mallory"}
			]
		}`})
		p, err := svc.IngestActor(context.Background(), "https://attacker.example/users/mallory")
		require.NoError(err)
		require.Len(p.Keys, 1)

		_, err = store.NewProfiles(tx).LookupKey("https://remote.example/users/bob#main-key")
		require.ErrorIs(err, gorm.ErrRecordNotFound)
		require.Equal("mallory", storedKey(t, tx, "https://attacker.example/users/mallory#main-key"))
	})
	t.Run("local profiles are never overwritten", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		ref, err := models.NewObjectRef("https://local.example/users/alice", string(models.PersonProfile))
		require.NoError(err)
		alice := &models.Profile{
			ObjectRef:   ref,
			DisplayName: "Alice",
			Keys:        []models.SigningKey{{KeyID: ref.ID() + "#main-key", Owner: ref.ID(), PublicKey: []byte("local")}},
		}
		require.NoError(store.NewAccounts(tx).Record(&store.Account{
			Email:             "alice@local.example",
			EncryptedPassword: []byte("x"),
			PrivateKey:        []byte("x"),
		}, alice))

		forged := `{"id":"https://local.example/users/alice","type":"Person","name":"Mallory","publicKey":{"id":"https://local.example/users/alice#main-key","publicKeyPem":"ATTACKER"}}`
		svc, _ := newTestService(t, tx, fakeFetcher{"https://local.example/users/alice": forged})

		refs, err := svc.IngestActivity(context.Background(), []byte(`{"id":"https://local.example/a/1","type":"Update","actor":`+forged+`,"object":`+forged+`}`))
		require.NoError(err)
		require.Len(refs, 1)
		require.Equal("Alice", refs[0].(*models.Profile).DisplayName)

		p, err := svc.IngestActor(context.Background(), "https://local.example/users/alice")
		require.NoError(err)
		require.True(p.IsLocal())

		require.Equal("local", storedKey(t, tx, "https://local.example/users/alice#main-key"))
		var count int64
		require.NoError(tx.Model(&store.ProfileRefreshRequest{}).Count(&count).Error)
		require.Zero(count)
	})
}

func TestVisibility(t *testing.T) {
	const author = "https://remote.example/users/bob"
	tests := map[string]struct {
		to, cc    streams.IRIs
		followers []string
		want      models.Visibility
	}{
		"public":                  {to: streams.IRIs{Public}, want: models.VisibilityPublic},
		"public short form":       {to: streams.IRIs{"as:Public"}, want: models.VisibilityPublic},
		"unlisted":                {to: streams.IRIs{author + "/followers"}, cc: streams.IRIs{Public}, want: models.VisibilityUnlisted},
		"followers":               {to: streams.IRIs{author + "/followers"}, want: models.VisibilityFollowersOnly},
		"followers by collection": {to: streams.IRIs{"https://remote.example/bob/fans"}, followers: []string{"https://remote.example/bob/fans"}, want: models.VisibilityFollowersOnly},
		"direct":                  {to: streams.IRIs{"https://example.social/users/alice"}, want: models.VisibilityDirect},
		"unaddressed":             {want: models.VisibilityUnset},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			obj := &streams.Object{
				To:           tt.to,
				CC:           tt.cc,
				AttributedTo: streams.Resolvables{&streams.Link{Base: streams.Base{ID: author}}},
			}
			require.Equal(t, tt.want, Visibility(obj, tt.followers...))
		})
	}
}

func TestWebfingerResolver(t *testing.T) {
	db := setupTestDB(t)

	var srv *httptest.Server
	srv = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := strings.TrimPrefix(srv.URL, "https://")
		w.Header().Set("Content-Type", "application/jrd+json")
		switch r.URL.Query().Get("resource") {
		case "acct:bob@" + host:
			fmt.Fprintf(w, `{"subject":"acct:bob@%s","links":[{"rel":"self","type":"application/activity+json","href":"%s/users/bob"}]}`, host, srv.URL)
		case "acct:mallory@" + host:
			fmt.Fprintf(w, `{"subject":"acct:mallory@%s","links":[{"rel":"self","type":"application/activity+json","href":"%s/users/someone-else"}]}`, host, srv.URL)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	profile := func(t *testing.T, name string) *models.Profile {
		ref, err := models.NewObjectRef(srv.URL+"/users/"+name, "Person")
		require.NoError(t, err)
		return &models.Profile{ObjectRef: ref}
	}

	t.Run("confirmed", func(t *testing.T) {
		require := require.New(t)
		r := NewWebfingerResolver(db, srv.Client())
		p := profile(t, "bob")
		handle, err := r.ResolveHandle(context.Background(), p, "bob")
		require.NoError(err)
		require.Equal("bob@"+p.Authority(), handle)
	})
	t.Run("mismatch", func(t *testing.T) {
		r := NewWebfingerResolver(db, srv.Client())
		_, err := r.ResolveHandle(context.Background(), profile(t, "mallory"), "mallory")
		require.ErrorIs(t, err, ErrHandleMismatch)
	})
	t.Run("stored handle", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		p := profile(t, "carol")
		p.Handle = "carol@" + p.Authority()
		require.NoError(store.NewProfiles(tx).Record(p))

		// carol is unknown to the WebFinger server
		handle, err := NewWebfingerResolver(tx, srv.Client()).ResolveHandle(context.Background(), profile(t, "carol"), "carol")
		require.NoError(err)
		require.Equal(p.Handle, handle)
	})
	t.Run("no preferred username", func(t *testing.T) {
		require := require.New(t)
		handle, err := NewWebfingerResolver(db, srv.Client()).ResolveHandle(context.Background(), profile(t, "dave"), "")
		require.NoError(err)
		require.Empty(handle)
	})
}
