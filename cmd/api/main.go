package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"stayops/internal/adapters/audit"
	server "stayops/internal/adapters/http_server"
	"stayops/internal/adapters/observability"
	redisad "stayops/internal/adapters/redis"
	"stayops/internal/app"
	"stayops/internal/domain"
	"stayops/internal/shared"
	mysqlrepo "stayops/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	var sink domain.AuditSink = audit.Noop{}
	if cfg.NATSURL != "" {
		pub, err := audit.New(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect failed")
		}
		defer pub.Close()
		sink = pub
	}

	h := &server.Handlers{
		Reservations: app.NewReservationService(repo, cache, sink),
		Billing:      app.NewBillingService(repo, cache, sink),
		Rooms:        app.NewRoomService(repo, sink),
		Closes:       app.NewDailyCloseService(repo, sink, cfg.ReportingOffset),
		Q:            app.NewQueryService(repo, cache, cfg.CacheTTL),
	}

	// http
	srv := server.New(cfg.RateRPS)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h, []byte(cfg.JWTSecret))

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
