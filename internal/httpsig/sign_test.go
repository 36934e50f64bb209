package httpsig

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/go-fed/httpsig"
	"github.com/stretchr/testify/require"
)

func TestSignRequest(t *testing.T) {
	const keyID = "https://example.com/users/foo#main-key"
	privatekey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pubKey := &privatekey.PublicKey

	t.Run("GET", func(t *testing.T) {
		require := require.New(t)
		req, err := http.NewRequest("GET", "https://example.com/users/foo?page=1", nil)
		require.NoError(err)
		req.Header.Set("Accept", "application/ld+json")

		require.NoError(Sign(req, keyID, privatekey, nil))
		require.Contains(req.Header.Get("Signature"), `headers="(request-target) host date accept"`)

		verifier, err := httpsig.NewVerifier(req)
		require.NoError(err)
		require.Equal(keyID, verifier.KeyId())
		err = verifier.Verify(pubKey, httpsig.RSA_SHA256)
		require.NoError(err, "req.Signature: %s", req.Header.Get("Signature"))
	})
	t.Run("POST", func(t *testing.T) {
		require := require.New(t)
		body := []byte(`{"type":"Follow"}`)
		req, err := http.NewRequest("POST", "https://example.com/inbox", strings.NewReader(string(body)))
		require.NoError(err)

		require.NoError(Sign(req, keyID, privatekey, body))
		require.True(strings.HasPrefix(req.Header.Get("Digest"), "SHA-256="))

		verifier, err := httpsig.NewVerifier(req)
		require.NoError(err)
		require.NoError(verifier.Verify(pubKey, httpsig.RSA_SHA256))
	})
}

func TestVerify(t *testing.T) {
	const keyID = "https://example.com/users/foo#main-key"
	privatekey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signed := func(t *testing.T) *http.Request {
		req, err := http.NewRequest("GET", "https://example.com/users/foo", nil)
		require.NoError(t, err)
		require.NoError(t, Sign(req, keyID, privatekey, nil))
		return req
	}

	t.Run("valid", func(t *testing.T) {
		require := require.New(t)
		got, err := Verify(signed(t), func(_ context.Context, id string) (crypto.PublicKey, error) {
			require.Equal(keyID, id)
			return &privatekey.PublicKey, nil
		})
		require.NoError(err)
		require.Equal(keyID, got)
	})
	t.Run("wrong key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = Verify(signed(t), func(context.Context, string) (crypto.PublicKey, error) {
			return &other.PublicKey, nil
		})
		require.Error(t, err)
	})
	t.Run("unknown key", func(t *testing.T) {
		errUnknown := errors.New("unknown key")
		_, err := Verify(signed(t), func(context.Context, string) (crypto.PublicKey, error) {
			return nil, errUnknown
		})
		require.ErrorIs(t, err, errUnknown)
	})
	t.Run("unsigned", func(t *testing.T) {
		req, err := http.NewRequest("GET", "https://example.com/users/foo", nil)
		require.NoError(t, err)
		_, err = Verify(req, func(context.Context, string) (crypto.PublicKey, error) {
			return &privatekey.PublicKey, nil
		})
		require.Error(t, err)
	})
}
