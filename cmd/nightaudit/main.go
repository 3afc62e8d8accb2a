package main

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"stayops/internal/adapters/audit"
	"stayops/internal/adapters/observability"
	"stayops/internal/app"
	"stayops/internal/domain"
	"stayops/internal/shared"
	mysqlrepo "stayops/internal/storage/mysql"
)

// nightaudit runs the daily close for every active tenant for the
// previous reporting day. A close that already exists is a skip, not a
// failure, so re-running after a crash is safe.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Int("workers", cfg.CloseWorkers).
		Int("tz_offset_min", cfg.ReportingOffset).
		Msg("night audit starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	var sink domain.AuditSink = audit.Noop{}
	if cfg.NATSURL != "" {
		pub, err := audit.New(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect failed")
		}
		defer pub.Close()
		sink = pub
	}

	closes := app.NewDailyCloseService(repo, sink, cfg.ReportingOffset)
	dateKey := closes.DateKeyFor(time.Now().Add(-24 * time.Hour))

	tenants, err := repo.ListTenants(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list tenants failed")
	}

	sem := semaphore.NewWeighted(int64(cfg.CloseWorkers))
	var wg sync.WaitGroup

	for _, t := range tenants {
		t := t

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(tenant domain.Tenant) {
			defer wg.Done()
			defer sem.Release(int64(1))

			dc, err := closes.Create(ctx, tenant.ID, nil, dateKey, nil)
			if err != nil {
				var exists *domain.DailyCloseExistsError
				if errors.As(err, &exists) {
					log.Info().Str("tenant", tenant.ID.String()).Str("date", dateKey).Msg("already closed, skipping")
					return
				}
				log.Warn().Str("tenant", tenant.ID.String()).Str("date", dateKey).Err(err).Msg("close failed")
				return
			}
			log.Info().
				Str("tenant", tenant.ID.String()).
				Str("date", dateKey).
				Str("total", dc.TotalCompleted.StringFixed(2)).
				Int("payments", dc.PaymentCount).
				Msg("close ok")
		}(t)
	}

	wg.Wait()
	log.Info().Msg("night audit completed")
}
