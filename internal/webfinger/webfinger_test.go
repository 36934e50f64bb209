package webfinger

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcctParse(t *testing.T) {
	tc := []struct {
		in     string
		expect Acct
	}{
		{"acct:foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"@foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"foo%40bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"foo", Acct{User: "foo"}},
	}
	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			req := require.New(t)
			got, err := Parse(tt.in)
			req.NoError(err)
			req.Equal(tt.expect, *got)
		})
	}

	t.Run("round trip", func(t *testing.T) {
		got, err := Parse("acct:foo@bar.com")
		require.NoError(t, err)
		require.Equal(t, "acct:foo@bar.com", got.String())
	})
	t.Run("empty", func(t *testing.T) {
		_, err := Parse("@")
		require.Error(t, err)
	})
}

func TestActivityPub(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		require := require.New(t)
		wf := Webfinger{Links: []Link{
			{Rel: "http://webfinger.net/rel/profile-page", Type: "text/html", Href: "https://bar.com/@foo"},
			{Rel: "self", Type: `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`, Href: "https://bar.com/users/foo"},
		}}
		href, err := wf.ActivityPub()
		require.NoError(err)
		require.Equal("https://bar.com/users/foo", href)
	})
	t.Run("missing", func(t *testing.T) {
		wf := Webfinger{Links: []Link{{Rel: "self", Type: "text/html", Href: "https://bar.com/@foo"}}}
		_, err := wf.ActivityPub()
		require.ErrorIs(t, err, ErrNoActivityPubLink)
	})
}

func TestFetch(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/webfinger" || !strings.HasPrefix(r.URL.Query().Get("resource"), "acct:foo@") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/jrd+json")
		io.WriteString(w, `{"subject":"acct:foo@bar.com","links":[{"rel":"self","type":"application/activity+json","href":"https://bar.com/users/foo"}]}`)
	}))
	defer srv.Close()
	host := strings.TrimPrefix(srv.URL, "https://")

	t.Run("found", func(t *testing.T) {
		require := require.New(t)
		wf, err := Fetch(context.Background(), srv.Client(), &Acct{User: "foo", Host: host})
		require.NoError(err)
		require.Equal("acct:foo@bar.com", wf.Subject)
		href, err := wf.ActivityPub()
		require.NoError(err)
		require.Equal("https://bar.com/users/foo", href)
	})
	t.Run("not found", func(t *testing.T) {
		_, err := Fetch(context.Background(), srv.Client(), &Acct{User: "bar", Host: host})
		require.Error(t, err)
	})
	t.Run("no host", func(t *testing.T) {
		_, err := Fetch(context.Background(), srv.Client(), &Acct{User: "foo"})
		require.Error(t, err)
	})
}
