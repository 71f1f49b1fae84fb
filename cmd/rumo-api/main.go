// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rumo/internal/config"
	httptransport "rumo/internal/http"
	"rumo/internal/infra"
	"rumo/internal/logger"
	"rumo/internal/maps"
	"rumo/internal/modules/audit"
	"rumo/internal/modules/costcenter"
	"rumo/internal/modules/driver"
	"rumo/internal/modules/fare"
	"rumo/internal/modules/reason"
	"rumo/internal/modules/ride"
	"rumo/internal/modules/unit"
	"rumo/internal/push"
)

func main() {
	cfg := config.Load()
	lg := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.PostgresURL(), lg)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.RedisAddr, cfg.RedisPassword)

	var notifier *push.FCMNotifier
	if cfg.FirebaseCredentialsFile != "" {
		msgClient, err := infra.NewMessaging(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			log.Fatalf("firebase init: %v", err)
		}
		notifier = push.NewFCMNotifier(msgClient, lg)
	} else {
		lg.Warning("FIREBASE_SERVICE_ACCOUNT_PATH not set, push disabled")
		notifier = push.NewFCMNotifier(nil, lg)
	}

	var routes fare.RouteEstimator
	if cfg.MapsAPIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.MapsAPIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		routes = routeSvc
	} else {
		lg.Warning("MAPS_API_KEY not set, using straight-line estimates")
	}

	auditStore := audit.NewStore(dbPool, lg)

	fareSvc := fare.NewService(fare.NewPGStore(dbPool), routes, lg)

	rideStore := ride.NewPGStore(dbPool)
	ccSvc := costcenter.NewService(costcenter.NewPGStore(dbPool), rideStore, auditStore, lg)

	driverSvc := driver.NewService(driver.NewRedisPresence(redisClient), driver.NewPGTokenStore(dbPool), auditStore, lg)

	rideSvc := ride.NewService(rideStore, fareSvc, ccSvc, notifier, driverSvc, auditStore, lg)

	unitSvc := unit.NewService(unit.NewPGStore(dbPool), ccSvc, auditStore, lg)

	reasonSvc := reason.NewService(reason.NewPGStore(dbPool), auditStore, lg)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Rides:       rideSvc,
		CostCenters: ccSvc,
		Units:       unitSvc,
		Drivers:     driverSvc,
		Fares:       fareSvc,
		Reasons:     reasonSvc,
		JWTSecret:   cfg.JWTSecret,
		Log:         lg,
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("server shutdown", logger.Error(err))
		}
	}()

	lg.Info("listening", logger.String("addr", cfg.HTTPAddr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
