package api

import (
	"errors"
	"net/http"

	"github.com/davecheney/asap/internal/httpx"
	"github.com/davecheney/asap/internal/to"
	"github.com/davecheney/asap/models"
	"github.com/davecheney/asap/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfilesIndex returns a page of the profiles matching a handle.
func ProfilesIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		Handle string `schema:"handle"`
		Prefix bool   `schema:"prefix"`
		Limit  int    `schema:"limit"`
		Page   int    `schema:"page"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.Handle == "" {
		return httpx.Error(http.StatusBadRequest, errors.New("handle is required"))
	}
	found, err := store.NewProfiles(env.DB.WithContext(r.Context())).FindByHandle(params.Handle, params.Prefix, params.Limit, params.Page)
	if err != nil {
		return err
	}
	resp := make([]*Profile, 0, len(found))
	for _, p := range found {
		resp = append(resp, serialiseProfile(p))
	}
	return to.JSON(w, resp)
}

// ProfilesShow returns the profile with a local id. With a relation
// parameter its collections list only the relations with that profile.
func ProfilesShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	var params struct {
		Relation string `schema:"relation"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	profiles := store.NewProfiles(env.DB.WithContext(r.Context()))
	var p *models.Profile
	if params.Relation != "" {
		p, err = profiles.LookupWithRelationByLocalID(id, params.Relation)
	} else {
		p, err = profiles.Lookup(id)
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return httpx.Error(http.StatusNotFound, err)
	case err != nil:
		return err
	}
	return to.JSON(w, serialiseProfile(p))
}
