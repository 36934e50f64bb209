package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/davecheney/asap/api"
	"github.com/davecheney/asap/ingest"
	client "github.com/davecheney/asap/internal/activitypub"
	"github.com/davecheney/asap/store"
	"github.com/davecheney/asap/wellknown"
	"github.com/davecheney/asap/workers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

type ServeCmd struct {
	Addr             string `help:"address to listen" default:":8080" env:"ASAP_ADDR"`
	SignAs           string `help:"email address of the account to sign requests as"`
	VerifySignatures bool   `help:"reject inbox deliveries without a valid HTTP signature" default:"true" negatable:""`
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}

	var signAs client.Signer
	if s.SignAs != "" {
		account, err := store.NewAccounts(db).FindByEmail(s.SignAs)
		if err != nil {
			return fmt.Errorf("failed to find account: %w", err)
		}
		signAs = account
	}
	c, err := client.NewClient(signAs)
	if err != nil {
		return err
	}

	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := ctx.openCache(sigctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc := ingest.NewService(db, client.NewFetcher(c, docs, ctx.Logger), ctx.Logger,
		ingest.WithMetrics(ingest.NewMetrics(reg)),
	)
	env := &api.Env{
		DB:               db,
		Ingester:         svc,
		Logger:           ctx.Logger,
		VerifySignatures: s.VerifySignatures,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if ctx.Debug {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Route("/", func(r chi.Router) {
		api.Routes(env)(r)
		wellknown.Routes(env)(r)
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		r.Get("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			io.WriteString(w, "User-agent: *\nDisallow: /")
		})
	})

	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		route = strings.Replace(route, "/*/", "/", -1)
		ctx.Logger.Debug("route", "method", method, "route", route)
		return nil
	}
	if err := chi.Walk(r, walkFunc); err != nil {
		ctx.Logger.Warn("walk routes", "err", err)
	}

	svr := &http.Server{
		Addr:         s.Addr,
		Handler:      r,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	g, gctx := errgroup.WithContext(sigctx)
	g.Go(func() error {
		ctx.Logger.Info("listening", "addr", s.Addr)
		if err := svr.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return svr.Shutdown(shutdown)
	})
	g.Go(func() error {
		return workers.NewProfileRefreshProcessor(db, svc, ctx.Logger)(gctx)
	})
	return g.Wait()
}
