// Package wellknown serves the /.well-known documents other servers use to
// discover the profiles of local accounts.
package wellknown

import (
	"fmt"
	"io"
	"net/http"

	"github.com/davecheney/asap/api"
	"github.com/davecheney/asap/internal/httpx"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the handlers on r.
func Routes(env *api.Env) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/.well-known/webfinger", httpx.HandlerFunc(env, WebfingerShow))
		r.Get("/.well-known/host-meta", HostMetaIndex)
		r.Get("/.well-known/nodeinfo", httpx.HandlerFunc(env, NodeInfoIndex))
		r.Get("/nodeinfo/{version}", httpx.HandlerFunc(env, NodeInfoShow))
	}
}

func HostMetaIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xrd+xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<XRD xmlns="http://docs.oasis-open.org/ns/xri/xrd-1.0">
<Link rel="lrdd" template="https://%s/.well-known/webfinger?resource={uri}"/>
</XRD>`, r.Host)
	io.WriteString(w, "\n")
}
