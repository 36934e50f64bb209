// Package activitypub dereferences remote ActivityPub documents.
package activitypub

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/carlmjohnson/requests"
	"github.com/davecheney/asap/internal/httpsig"
)

// Accept is the media type ActivityPub documents are requested as.
const Accept = `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`

// MaxDocumentSize limits the size of a fetched document.
const MaxDocumentSize = 1 << 20

// ErrDocumentTooLarge is returned for a document larger than MaxDocumentSize.
var ErrDocumentTooLarge = errors.New("document too large")

// Client is an ActivityPub client which can be used to fetch remote
// ActivityPub resources.
type Client struct {
	keyID      string
	privateKey crypto.PrivateKey
	transport  http.RoundTripper
}

// Signer represents an object that can sign HTTP requests.
type Signer interface {
	PublicKeyID() string
	PrivKey() (*rsa.PrivateKey, error)
}

// NewClient returns a new ActivityPub client. Requests are signed as signAs;
// if signAs is nil they are sent unsigned, which many servers refuse.
func NewClient(signAs Signer) (*Client, error) {
	c := &Client{
		transport: http.DefaultTransport,
	}
	if signAs == nil {
		return c, nil
	}
	privateKey, err := signAs.PrivKey()
	if err != nil {
		return nil, err
	}
	c.keyID = signAs.PublicKeyID()
	c.privateKey = privateKey
	return c, nil
}

// Get fetches the ActivityPub document at uri and returns it undecoded.
func (c *Client) Get(ctx context.Context, uri string) ([]byte, error) {
	var buf bytes.Buffer
	err := requests.URL(uri).
		Accept(Accept).
		Transport(requests.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if c.privateKey != nil {
				if err := httpsig.Sign(req, c.keyID, c.privateKey, nil); err != nil {
					return nil, fmt.Errorf("failed to sign request: %w", err)
				}
			}
			return c.transport.RoundTrip(req)
		})).
		CheckContentType(
			"application/ld+json",
			"application/activity+json",
			"application/json",
			"application/octet-stream", // sigh
		).
		CheckStatus(http.StatusOK).
		Handle(func(res *http.Response) error {
			if _, err := buf.ReadFrom(io.LimitReader(res.Body, MaxDocumentSize+1)); err != nil {
				return err
			}
			if buf.Len() > MaxDocumentSize {
				return ErrDocumentTooLarge
			}
			return nil
		}).
		Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
