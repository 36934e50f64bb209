package httpx

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type testEnv struct{}

func (testEnv) Log() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard)) }

func TestHandlerFunc(t *testing.T) {
	tests := map[string]struct {
		err  error
		code int
		body string
	}{
		"ok":           {nil, http.StatusOK, ""},
		"status error": {Error(http.StatusNotFound, errors.New("no such profile")), http.StatusNotFound, `{"error":"no such profile"}`},
		"other error":  {errors.New("boom"), http.StatusInternalServerError, `{"error":"Internal Server Error"}`},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			h := HandlerFunc(testEnv{}, func(testEnv, http.ResponseWriter, *http.Request) error {
				return tt.err
			})
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest("GET", "/", nil))
			require.Equal(tt.code, rec.Code)
			if tt.body != "" {
				require.JSONEq(tt.body, rec.Body.String())
			}
		})
	}
}

func TestStatusErrorUnwraps(t *testing.T) {
	sentinel := errors.New("sentinel")
	require.ErrorIs(t, Error(http.StatusBadRequest, sentinel), sentinel)
}

func TestParams(t *testing.T) {
	type query struct {
		Handle string `schema:"handle"`
		Limit  int    `schema:"limit"`
	}

	t.Run("query string", func(t *testing.T) {
		require := require.New(t)
		var q query
		r := httptest.NewRequest("GET", "/profiles?handle=alice@example.social&limit=5&other=x", nil)
		require.NoError(Params(r, &q))
		require.Equal(query{Handle: "alice@example.social", Limit: 5}, q)
	})
	t.Run("json", func(t *testing.T) {
		require := require.New(t)
		var q query
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"Handle":"bob","Limit":2}`))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")
		require.NoError(Params(r, &q))
		require.Equal("bob", q.Handle)
	})
	t.Run("bad value", func(t *testing.T) {
		require := require.New(t)
		var q query
		err := Params(httptest.NewRequest("GET", "/?limit=lots", nil), &q)
		var se *StatusError
		require.True(errors.As(err, &se))
		require.Equal(http.StatusBadRequest, se.Status())
	})
	t.Run("unsupported media type", func(t *testing.T) {
		require := require.New(t)
		r := httptest.NewRequest("POST", "/", strings.NewReader("x"))
		r.Header.Set("Content-Type", "text/plain")
		var se *StatusError
		require.True(errors.As(Params(r, &query{}), &se))
		require.Equal(http.StatusUnsupportedMediaType, se.Status())
	})
}

func TestIsActivityPub(t *testing.T) {
	require := require.New(t)
	r := httptest.NewRequest("POST", "/inbox", nil)
	r.Header.Set("Content-Type", `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`)
	require.True(IsActivityPub(r))
	r.Header.Set("Content-Type", "text/html")
	require.False(IsActivityPub(r))
	r.Header.Del("Content-Type")
	require.Equal("application/octet-stream", MediaType(r))
}
