// Package httpx is a convenience wrapper around net/http that allows handlers
// to return errors.
// see https://blog.questionable.services/article/http-handler-error-handling-revisited/ for more details.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-json-experiment/json"
	"golang.org/x/exp/slog"
)

// Error is a convenience function for returning an error with an associated HTTP status code.
func Error(code int, err error) error {
	return &StatusError{code, err}
}

// StatusError represents an error with an associated HTTP status code.
type StatusError struct {
	Code int
	Err  error
}

// Allows StatusError to satisfy the error interface.
func (se *StatusError) Error() string {
	return se.Err.Error()
}

func (se *StatusError) Unwrap() error {
	return se.Err
}

// Returns our HTTP status code.
func (se *StatusError) Status() int {
	return se.Code
}

// Env is the environment a handler runs in.
type Env interface {
	Log() *slog.Logger
}

// HandlerFunc adapts a function that returns an error to an http.HandlerFunc.
// A *StatusError is reported to the client; any other error is logged and
// reported as a 500.
func HandlerFunc[E Env](env E, fn func(E, http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(env, w, r)
		if err == nil {
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if se := new(StatusError); errors.As(err, &se) {
			env.Log().Info("HTTP", "method", r.Method, "path", r.URL.Path, "status", se.Status(), "err", err)
			w.WriteHeader(se.Status())
			json.MarshalFull(w, map[string]any{
				"error": se.Error(),
			})
			return
		}
		env.Log().Warn("HTTP", "method", r.Method, "path", r.URL.Path, "status", http.StatusInternalServerError, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.MarshalFull(w, map[string]any{
			"error": http.StatusText(http.StatusInternalServerError),
		})
	}
}
