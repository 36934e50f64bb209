// Package webfinger resolves acct: handles with RFC 7033 WebFinger.
package webfinger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
)

// ErrNoActivityPubLink is returned when a WebFinger document does not name an
// ActivityPub actor.
var ErrNoActivityPubLink = errors.New("no ActivityPub link found")

type Webfinger struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases"`
	Links   []Link   `json:"links"`
}

// ActivityPub returns the IRI of the actor the document describes.
func (wf *Webfinger) ActivityPub() (string, error) {
	for _, link := range wf.Links {
		if link.Rel != "" && link.Rel != "self" {
			continue
		}
		switch strings.Split(link.Type, ";")[0] {
		case "application/activity+json", "application/ld+json":
			return link.Href, nil
		}
	}
	return "", ErrNoActivityPubLink
}

type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type"`
	Href     string `json:"href"`
	Template string `json:"template"`
}

type Acct struct {
	User string
	Host string
}

func (a *Acct) String() string {
	return "acct:" + a.User + "@" + a.Host
}

// Webfinger returns the URL for the webfinger resource for this Acct.
func (a *Acct) Webfinger() string {
	return "https://" + a.Host + "/.well-known/webfinger?resource=" + url.QueryEscape(a.String())
}

// Fetch fetches the WebFinger document for a with the default client.
func (a *Acct) Fetch(ctx context.Context) (*Webfinger, error) {
	return Fetch(ctx, http.DefaultClient, a)
}

// Fetch fetches the WebFinger document for a with client.
func Fetch(ctx context.Context, client *http.Client, a *Acct) (*Webfinger, error) {
	if a.Host == "" {
		return nil, fmt.Errorf("webfinger %q: no host", a.User)
	}
	var webfinger Webfinger
	err := requests.URL(a.Webfinger()).
		Client(client).
		Accept("application/jrd+json, application/json").
		CheckStatus(http.StatusOK).
		ToJSON(&webfinger).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("webfinger %s: %w", a, err)
	}
	return &webfinger, nil
}

// Parse parses a handle in any of the forms acct:user@host, @user@host or
// user@host. The host is optional.
func Parse(query string) (*Acct, error) {
	query = strings.TrimPrefix(query, "acct:")
	// Remove the leading @, if there's one.
	query = strings.TrimPrefix(query, "@")

	// In case the handle has been URL encoded
	query, err := url.QueryUnescape(query)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(query, "@", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("invalid acct: %q", query)
	}
	switch len(parts) {
	case 1:
		return &Acct{
			User: parts[0],
		}, nil
	default:
		return &Acct{
			User: parts[0],
			Host: parts[1],
		}, nil
	}
}
