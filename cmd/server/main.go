package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/engine"
	"github.com/Kelvintronic/inhabited/internal/infrastructure/storage"
	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/internal/server"
	"github.com/Kelvintronic/inhabited/internal/version"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Парсинг конфигурации
	configPath := flag.String("config", "", "path to TOML config (empty - defaults)")
	replayPath := flag.String("replay", "", "replay file to simulate instead of serving")
	seed := flag.Uint64("seed", 0, "world seed override (0 - keep config)")
	flag.Parse()

	cfg, err := engine.LoadConfig(*configPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load config")
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)

	logger.Log.Info("Starting Inhabited...")
	logger.Log.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// РЕЖИМ РЕПЛЕЯ
	if *replayPath != "" {
		runReplay(ctx, cfg, *replayPath)
		return
	}

	// 2. Ядро: хаб пиров и игровой цикл
	hub := network.NewHub(cfg.Network)
	svc, err := engine.NewService(cfg, hub)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to start game service")
	}

	// 3. HTTP и игровой цикл живут до сигнала
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := svc.Run(ctx); err != nil {
			logger.Log.WithError(err).Error("Game service stopped with error")
		}
	}()

	srv := server.New(cfg.Server, hub, svc)
	if err := srv.Run(ctx, cfg.Addr()); err != nil {
		logger.Log.WithError(err).Error("Server error")
		stop()
	}

	wg.Wait()
	logger.Log.Info("Done.")
}

func runReplay(ctx context.Context, cfg engine.Config, path string) {
	log := logger.WithComponent("replay").WithField("file", path)
	log.Info("Mode: replay simulation")

	session, err := storage.LoadReplay(path)
	if err != nil {
		log.WithError(err).Fatal("Failed to load replay")
	}

	sim, err := engine.Playback(ctx, cfg, session)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Replay interrupted")
			return
		}
		log.WithError(err).Fatal("Replay failed")
	}

	log.WithFields(logrus.Fields{
		"seed":    session.Seed,
		"map":     sim.Map(),
		"players": sim.Players().Count(),
	}).Info("Replay finished")
}
