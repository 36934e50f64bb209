package main

import (
	"errors"
	"io"
	"os"

	"github.com/davecheney/asap/activitypub"
	"github.com/davecheney/asap/api"
	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/internal/to"
)

type MapCmd struct {
	File string `arg:"" optional:"" type:"existingfile" help:"document to translate, standard input if omitted"`
}

func (m *MapCmd) Run(ctx *Context) error {
	in := os.Stdin
	if m.File != "" {
		f, err := os.Open(m.File)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	r, err := streams.Decode(b)
	if err != nil {
		return err
	}

	mapper := activitypub.NewMapper()
	act, ok := r.(*streams.Activity)
	if !ok {
		ref, err := mapper.Reference(r)
		if err != nil {
			return err
		}
		return to.Indented(os.Stdout, api.Serialise(ref))
	}

	// an activity translates into its objects
	var errs []error
	var out []any
	for _, obj := range act.Object {
		ref, err := mapper.Reference(obj)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, api.Serialise(ref))
	}
	if err := to.Indented(os.Stdout, out); err != nil {
		return err
	}
	return errors.Join(errs...)
}
