package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/chroniclekeep/chronicle-backend/config"
	"github.com/chroniclekeep/chronicle-backend/internal/bootstrap"
	"github.com/chroniclekeep/chronicle-backend/internal/generator"
	cronjob "github.com/chroniclekeep/chronicle-backend/internal/intelligence/cron"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	gen := generator.NewClient(cfg.Intelligence.GeneratorBaseURL, cfg.Intelligence.GeneratorRPS, cfg.Intelligence.GeneratorBurst)

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:      "chronicle-backend",
		Version:          cfg.App.Version,
		DB:               db,
		Redis:            rdb,
		Generator:        gen,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		UndoWindow:       cfg.Intelligence.UndoWindowHours,
		BatchConcurrency: cfg.Intelligence.BatchConcurrency,
		TierDefaults: map[domain.Tier]int{
			domain.TierAdventurer: cfg.Intelligence.AdventurerCooldownHours,
			domain.TierHero:       cfg.Intelligence.HeroCooldownHours,
			domain.TierLegend:     cfg.Intelligence.LegendCooldownHours,
		},
	})

	scheduler := cronjob.NewScheduler(repository.NewSuggestionRepository(db), cfg.Intelligence.RetentionDays)
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
