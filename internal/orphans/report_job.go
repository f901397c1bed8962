package orphans

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/yourorg/listing-editor/internal/store"
)

type Config struct {
	// Interval between report runs; <= 0 means run once.
	Interval time.Duration
	// Window is how far back to look for orphaned uploads.
	Window time.Duration
}

// ReportJob periodically lists uploads whose patch never committed. It only
// reports; cleanup of the hosted content is a manual operation.
type ReportJob struct {
	Store  *store.Store
	Logger *log.Logger
	Config Config
}

func (j *ReportJob) logf(format string, args ...any) {
	if j.Logger != nil {
		j.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (j *ReportJob) validate() error {
	if j == nil {
		return errors.New("nil report job")
	}
	if j.Store == nil {
		return errors.New("orphan report job requires a store")
	}
	if j.Config.Window <= 0 {
		j.Config.Window = 7 * 24 * time.Hour
	}
	return nil
}

func (j *ReportJob) Run(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	interval := j.Config.Interval
	if interval <= 0 {
		return j.RunOnce(ctx)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	j.logf("orphan report job starting with interval %s", interval)
	if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		j.logf("orphan report job initial run error: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			j.logf("orphan report job stopping: %v", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.logf("orphan report job iteration error: %v", err)
			}
		}
	}
}

func (j *ReportJob) RunOnce(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	since := time.Now().Add(-j.Config.Window)
	orphans, err := j.Store.ListOrphans(ctx, since)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		j.logf("orphan report: no orphaned uploads since %s", since.Format(time.RFC3339))
		return nil
	}
	j.logf("orphan report: %d orphaned upload(s) since %s", len(orphans), since.Format(time.RFC3339))
	for _, o := range orphans {
		j.logf("orphan report: listing=%d attempt=%s url=%s label=%q at=%s",
			o.ListingID, o.AttemptID, o.URL, o.Label, o.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
