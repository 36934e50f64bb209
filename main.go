package main

import (
	"context"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/davecheney/asap/internal/cache"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Context struct {
	Debug  bool
	Logger *slog.Logger

	gorm.Config
	Dialector gorm.Dialector

	// Redis is the URL of the document cache. Documents are cached in
	// memory when it is empty.
	Redis    string
	CacheTTL time.Duration
}

// openDB opens and configures the database.
func (c *Context) openDB() (*gorm.DB, error) {
	db, err := gorm.Open(c.Dialector, &c.Config)
	if err != nil {
		return nil, err
	}
	return db, configureDB(db)
}

// openCache returns the document cache.
func (c *Context) openCache(ctx context.Context) (cache.Cache, error) {
	if c.Redis == "" {
		return cache.NewMemory(c.CacheTTL), nil
	}
	return cache.NewRedis(ctx, c.Redis, c.CacheTTL)
}

var cli struct {
	Debug    bool          `help:"Enable debug mode."`
	DSN      string        `help:"data source name" default:"asap:asap@tcp(localhost:3306)/asap" env:"ASAP_DSN"`
	Redis    string        `help:"Redis URL of the document cache." env:"ASAP_REDIS_URL"`
	CacheTTL time.Duration `help:"how long fetched documents are cached" default:"10m"`

	AutoMigrate   AutoMigrateCmd   `cmd:"" help:"Automigrate the database."`
	CreateAccount CreateAccountCmd `cmd:"" help:"Create a new account."`
	Fetch         FetchCmd         `cmd:"" help:"Fetch and record an actor."`
	Map           MapCmd           `cmd:"" help:"Translate an ActivityStreams document and print the result."`
	Serve         ServeCmd         `cmd:"" help:"Serve a local web server."`
}

func main() {
	ctx := kong.Parse(&cli)

	opts := slog.HandlerOptions{Level: slog.LevelInfo}
	logLevel := logger.Warn
	if cli.Debug {
		opts.Level = slog.LevelDebug
		logLevel = logger.Info
	}

	err := ctx.Run(&Context{
		Debug:  cli.Debug,
		Logger: slog.New(opts.NewTextHandler(os.Stderr)),
		Config: gorm.Config{
			Logger:         logger.Default.LogMode(logLevel),
			TranslateError: true,
		},
		Dialector: newDialector(cli.DSN),
		Redis:     cli.Redis,
		CacheTTL:  cli.CacheTTL,
	})
	ctx.FatalIfErrorf(err)
}
