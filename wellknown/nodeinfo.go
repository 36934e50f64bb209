package wellknown

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/davecheney/asap/api"
	"github.com/davecheney/asap/internal/httpx"
	"github.com/davecheney/asap/internal/to"
	"github.com/davecheney/asap/store"
	"github.com/go-chi/chi/v5"
)

func NodeInfoIndex(env *api.Env, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("cache-control", "max-age=259200, public")
	return to.JSON(w, map[string]any{
		"links": []any{
			map[string]any{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				"href": fmt.Sprintf("https://%s/nodeinfo/2.0", r.Host),
			},
			map[string]any{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.1",
				"href": fmt.Sprintf("https://%s/nodeinfo/2.1", r.Host),
			},
		},
	})
}

func NodeInfoShow(env *api.Env, w http.ResponseWriter, r *http.Request) error {
	software := map[string]any{
		"name":    "asap",
		"version": "0.0.0-devel",
	}
	switch version := chi.URLParam(r, "version"); version {
	case "2.0":
		// https://github.com/jhass/nodeinfo/blob/main/schemas/2.0/schema.json
	case "2.1":
		software["repository"] = "https://github.com/davecheney/asap"
	default:
		return httpx.Error(http.StatusNotFound, errors.New("unsupported version: "+version))
	}

	var users int64
	if err := env.DB.WithContext(r.Context()).Model(&store.Account{}).Count(&users).Error; err != nil {
		return err
	}

	w.Header().Set("cache-control", "max-age=259200, public")
	return to.JSON(w, map[string]any{
		"version":  chi.URLParam(r, "version"),
		"software": software,
		"protocols": []any{
			"activitypub",
		},
		"services": map[string]any{
			"inbound":  []any{},
			"outbound": []any{},
		},
		"usage": map[string]any{
			"users": map[string]any{
				"total": users,
			},
		},
		"openRegistrations": false,
		"metadata":          map[string]any{},
	})
}
