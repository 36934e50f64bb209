package main

import (
	"context"
	"fmt"
	"os"

	"github.com/davecheney/asap/api"
	"github.com/davecheney/asap/ingest"
	client "github.com/davecheney/asap/internal/activitypub"
	"github.com/davecheney/asap/internal/to"
	"github.com/davecheney/asap/store"
)

type FetchCmd struct {
	Account string `help:"email address of the account to sign requests as"`
	IRI     string `arg:"" help:"IRI of the actor to fetch"`
}

func (f *FetchCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}

	var signAs client.Signer
	if f.Account != "" {
		account, err := store.NewAccounts(db).FindByEmail(f.Account)
		if err != nil {
			return fmt.Errorf("failed to find account: %w", err)
		}
		signAs = account
	}
	c, err := client.NewClient(signAs)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	docs, err := ctx.openCache(context.Background())
	if err != nil {
		return err
	}

	svc := ingest.NewService(db, client.NewFetcher(c, docs, ctx.Logger), ctx.Logger)
	p, err := svc.IngestActor(context.Background(), f.IRI)
	if err != nil {
		return fmt.Errorf("failed to fetch actor: %w", err)
	}
	return to.Indented(os.Stdout, api.Serialise(p))
}
