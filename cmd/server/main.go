package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sitepulse/sitepulse-backend-go/internal/alert"
	"github.com/sitepulse/sitepulse-backend-go/internal/api"
	"github.com/sitepulse/sitepulse-backend-go/internal/config"
	"github.com/sitepulse/sitepulse-backend-go/internal/database"
	"github.com/sitepulse/sitepulse-backend-go/internal/forecast"
	"github.com/sitepulse/sitepulse-backend-go/internal/pmsync"
	"github.com/sitepulse/sitepulse-backend-go/internal/scheduler"
	"github.com/sitepulse/sitepulse-backend-go/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	engine := forecast.NewEngine(
		cfg.Forecast.MinSequencePoints,
		cfg.Forecast.SimulationDraws,
		cfg.Forecast.EnsembleWeights,
	)

	// Without an external PM system configured, reconciliation steps are
	// skipped and the core runs on local data only.
	var reconciler *pmsync.Reconciler
	if cfg.Sync.BaseURL != "" {
		reconciler = pmsync.NewReconciler(db, pmsync.NewHTTPClient(cfg.Sync))
		log.Printf("External PM sync enabled: %s", cfg.Sync.BaseURL)
	} else {
		log.Println("External PM sync disabled (PM_BASE_URL not set)")
	}

	emitter := alert.NewEmitter(alert.LogNotifier{})
	monitor := service.NewMonitorService(db, engine, reconciler, emitter)

	sched := scheduler.New(db, cfg.Scheduler, monitor, emitter)
	if err := sched.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}
	defer sched.Stop()

	router := api.SetupRouter(db, sched)

	// Drain workers cleanly on SIGINT/SIGTERM
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("Shutting down")
		sched.Stop()
		db.Close()
		os.Exit(0)
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
