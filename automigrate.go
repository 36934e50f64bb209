package main

import (
	"github.com/davecheney/asap/store"
)

type AutoMigrateCmd struct {
}

func (a *AutoMigrateCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}
	return db.AutoMigrate(store.AllTables()...)
}
