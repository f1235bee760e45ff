package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediconnect/scheduling-engine/internal/absence"
	"github.com/mediconnect/scheduling-engine/internal/api"
	"github.com/mediconnect/scheduling-engine/internal/appointment"
	"github.com/mediconnect/scheduling-engine/internal/availability"
	"github.com/mediconnect/scheduling-engine/internal/config"
	"github.com/mediconnect/scheduling-engine/internal/db"
	"github.com/mediconnect/scheduling-engine/internal/event"
	"github.com/mediconnect/scheduling-engine/internal/profile"
	redisclient "github.com/mediconnect/scheduling-engine/internal/redis"
	"github.com/mediconnect/scheduling-engine/internal/schedule"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	directory := profile.NewPgDirectory(pgPool)
	publisher := event.NewRedisPublisher(rdb, cfg.EventChannel)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)

	scheduleSvc := schedule.NewService(schedule.NewPgRepository(pgPool))

	apptRepo := appointment.NewPgRepository(pgPool)
	absenceSvc := absence.NewService(absence.NewPgRepository(pgPool), apptRepo, directory, publisher)

	// The compositor doubles as the booking blocker: it sees both absences
	// and blocking exceptions, so bookings and the published calendar agree.
	availabilitySvc := availability.NewService(schedule.NewPgRepository(pgPool), absence.NewPgRepository(pgPool), apptRepo)

	apptSvc := appointment.NewService(apptRepo, directory, locker, availabilitySvc, publisher, appointment.Policy{
		CancellationWindow: cfg.CancellationWindow,
		VideoJoinBefore:    cfg.VideoJoinBefore,
		VideoJoinAfter:     cfg.VideoJoinAfter,
	})

	router := api.NewRouter(api.RouterConfig{
		Appointments: apptSvc,
		Schedules:    scheduleSvc,
		Absences:     absenceSvc,
		Availability: availabilitySvc,
		PgPool:       pgPool,
		Redis:        rdb,
		Env:          cfg.Env,
		Version:      version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
