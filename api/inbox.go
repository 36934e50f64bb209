package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/davecheney/asap/activitypub"
	"github.com/davecheney/asap/ingest"
	"github.com/davecheney/asap/internal/httpsig"
	"github.com/davecheney/asap/internal/httpx"
	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/internal/to"
)

// maxBodySize limits the size of a delivered document.
const maxBodySize = 1 << 20

// InboxCreate ingests an activity delivered to the shared inbox and responds
// with the references it recorded.
func InboxCreate(env *Env, w http.ResponseWriter, r *http.Request) error {
	if !httpx.IsActivityPub(r) {
		return httpx.Error(http.StatusUnsupportedMediaType, fmt.Errorf("unsupported media type: %q", r.Header.Get("Content-Type")))
	}
	var sender string
	if env.VerifySignatures {
		keyID, err := httpsig.Verify(r, env.GetKey)
		if err != nil {
			return httpx.Error(http.StatusUnauthorized, err)
		}
		env.Log().Debug("inbox", "keyId", keyID)
		sender = ingest.Origin(keyID)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	if env.VerifySignatures {
		if err := checkSender(body, sender); err != nil {
			return err
		}
	}

	refs, err := env.Ingester.IngestActivity(r.Context(), body)
	switch {
	case errors.Is(err, streams.ErrEmpty), errors.Is(err, streams.ErrMalformed):
		return httpx.Error(http.StatusBadRequest, err)
	case err != nil && len(refs) == 0 && errors.Is(err, activitypub.ErrUnsupportedType):
		return httpx.Error(http.StatusUnprocessableEntity, err)
	case err != nil && len(refs) == 0:
		return err
	case err != nil:
		// some objects were recorded
		env.Log().Info("inbox", "recorded", len(refs), "err", err)
	}

	resp := make([]any, 0, len(refs))
	for _, ref := range refs {
		resp = append(resp, Serialise(ref))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusAccepted)
	return to.Indented(w, resp)
}

// checkSender reports whether the server sender, which signed the delivery,
// may deliver body. The id and actors of an activity must belong to sender,
// as must the id of any other document.
func checkSender(body []byte, sender string) error {
	r, err := streams.Decode(body)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	act, ok := r.(*streams.Activity)
	if !ok {
		return speaksFor(sender, r.IRI())
	}
	if act.ID != "" {
		if err := speaksFor(sender, act.ID); err != nil {
			return err
		}
	}
	for _, a := range act.Actor {
		if err := speaksFor(sender, a.IRI()); err != nil {
			return err
		}
	}
	return nil
}

func speaksFor(sender, iri string) error {
	if sender == "" || ingest.Origin(iri) != sender {
		return httpx.Error(http.StatusForbidden, fmt.Errorf("%q cannot deliver %q", sender, iri))
	}
	return nil
}
