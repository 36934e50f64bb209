package wellknown

import (
	"errors"
	"net/http"
	"strings"

	"github.com/davecheney/asap/api"
	"github.com/davecheney/asap/internal/httpx"
	"github.com/davecheney/asap/internal/webfinger"
	"github.com/davecheney/asap/store"
	"github.com/go-json-experiment/json"
)

// WebfingerShow describes the local profile named by the resource parameter.
func WebfingerShow(env *api.Env, w http.ResponseWriter, r *http.Request) error {
	acct, err := webfinger.Parse(r.URL.Query().Get("resource"))
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	if acct.Host == "" {
		acct.Host = r.Host
	}
	// note, only answer for the host the request was made to
	if !strings.EqualFold(acct.Host, r.Host) {
		return httpx.Error(http.StatusNotFound, errors.New("unknown host: "+acct.Host))
	}

	found, err := store.NewProfiles(env.DB.WithContext(r.Context())).FindByHandle(acct.User+"@"+acct.Host, false, 1, 0)
	if err != nil {
		return err
	}
	if len(found) == 0 || !found[0].IsLocal() {
		return httpx.Error(http.StatusNotFound, errors.New("unknown account: "+acct.String()))
	}
	p := found[0]

	w.Header().Set("Content-Type", "application/jrd+json")
	return json.MarshalFull(w, &webfinger.Webfinger{
		Subject: acct.String(),
		Aliases: []string{p.ID()},
		Links: []webfinger.Link{{
			Rel:  "self",
			Type: "application/activity+json",
			Href: p.ID(),
		}},
	})
}
