// Package httpsig signs and verifies requests with draft-cavage HTTP signatures,
// the scheme ActivityPub servers authenticate each other with.
package httpsig

import (
	"context"
	"crypto"
	"fmt"
	"net/http"
	"time"

	"github.com/go-fed/httpsig"
)

// Sign signs req as keyID. GET requests sign the request target, host, date
// and accept headers; POST requests sign a digest of body in place of host
// and accept.
func Sign(req *http.Request, keyID string, privateKey crypto.PrivateKey, body []byte) error {
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	// go-fed signs headers, not the request's Host field.
	req.Header.Set("Host", req.Host)

	headersToSign := []string{httpsig.RequestTarget}
	switch req.Method {
	case http.MethodPost:
		headersToSign = append(headersToSign, "host", "date", "digest")
		if body == nil {
			body = []byte{}
		}
	default:
		headersToSign = append(headersToSign, "host", "date")
		if req.Header.Get("Accept") != "" {
			headersToSign = append(headersToSign, "accept")
		}
		body = nil
	}

	// Signers are not safe for concurrent use; build one per request.
	signer, _, err := httpsig.NewSigner(
		[]httpsig.Algorithm{httpsig.RSA_SHA256},
		httpsig.DigestSha256,
		headersToSign,
		httpsig.Signature,
		0,
	)
	if err != nil {
		return err
	}
	if err := signer.SignRequest(privateKey, keyID, req, body); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	return nil
}

// KeyFunc returns the public key for keyID.
type KeyFunc func(ctx context.Context, keyID string) (crypto.PublicKey, error)

// Verify checks the signature on r with the key returned by keyFn and returns
// the id of the key that signed it.
func Verify(r *http.Request, keyFn KeyFunc) (string, error) {
	verifier, err := httpsig.NewVerifier(r)
	if err != nil {
		return "", err
	}
	keyID := verifier.KeyId()
	pubKey, err := keyFn(r.Context(), keyID)
	if err != nil {
		return "", fmt.Errorf("key %q: %w", keyID, err)
	}
	if err := verifier.Verify(pubKey, httpsig.RSA_SHA256); err != nil {
		return "", err
	}
	return keyID, nil
}
