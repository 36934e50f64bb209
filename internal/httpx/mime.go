package httpx

import (
	"net/http"
	"strings"
)

// MediaType returns the media type of the request.
func MediaType(req *http.Request) string {
	typ := strings.TrimSpace(strings.Split(req.Header.Get("Content-Type"), ";")[0])
	if typ == "" {
		typ = "application/octet-stream"
	}
	return typ
}

// IsActivityPub reports whether the request body is an ActivityStreams
// document.
func IsActivityPub(req *http.Request) bool {
	switch MediaType(req) {
	case "application/activity+json", "application/ld+json", "application/json":
		return true
	default:
		return false
	}
}
