package workers

import (
	"context"
	"time"

	"github.com/davecheney/asap/models"
	"github.com/davecheney/asap/store"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

// maxAttempts is the number of times a request is tried before it is left
// for housekeeping.
const maxAttempts = 3

// An Ingester dereferences and records the actor at an IRI.
// *ingest.Service is an Ingester.
type Ingester interface {
	IngestActor(ctx context.Context, iri string) (*models.Profile, error)
}

// NewProfileRefreshProcessor dereferences the profiles queued for refresh.
func NewProfileRefreshProcessor(db *gorm.DB, ingester Ingester, logger *slog.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger.Info("profile refresh processor started")
		defer logger.Info("profile refresh processor stopped")

		refresher := &profileRefresher{
			ingester: ingester,
			logger:   logger,
		}

		db := db.WithContext(ctx)
		for {
			if err := refresher.run(db); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(30 * time.Second):
				// continue
			}
		}
	}
}

func profileRefreshScope(db *gorm.DB) *gorm.DB {
	return db.Preload("Profile").Preload("Profile.Owner").Where("attempts < ?", maxAttempts)
}

type profileRefresher struct {
	ingester Ingester
	logger   *slog.Logger
}

func (p *profileRefresher) run(db *gorm.DB) error {
	res, err := process(db, profileRefreshScope, p.refresh)
	if res.Done+res.Failed > 0 {
		p.logger.Info("refreshed profiles", "done", res.Done, "failed", res.Failed)
	}
	return err
}

func (p *profileRefresher) refresh(db *gorm.DB, request *store.ProfileRefreshRequest) error {
	if request.Profile == nil || request.Profile.Owner != nil {
		// gone, or local
		return nil
	}
	p.logger.Debug("refresh profile", "uri", request.Profile.URI, "attempts", request.Attempts)
	_, err := p.ingester.IngestActor(db.Statement.Context, request.Profile.URI)
	if err != nil {
		p.logger.Info("refresh profile failed", "uri", request.Profile.URI, "err", err)
	}
	return err
}
