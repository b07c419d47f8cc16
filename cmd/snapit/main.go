package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/walterlow/snapit/internal/api"
	"github.com/walterlow/snapit/internal/config"
	"github.com/walterlow/snapit/internal/db"
	"github.com/walterlow/snapit/internal/engine"
	"github.com/walterlow/snapit/internal/logging"
	"github.com/walterlow/snapit/internal/playback"
	"github.com/walterlow/snapit/internal/session"
	"github.com/walterlow/snapit/internal/store"
	"github.com/walterlow/snapit/internal/ui"
	"github.com/walterlow/snapit/internal/watcher"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ExportDir(), 0755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting snapit", "version", Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                       SNAPIT v0.1.0                       ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	var (
		eng        engine.Engine
		remote     *engine.RemoteEngine
		engineName = "stub"
	)
	if cfg.EngineURL() != "" {
		remote = engine.NewRemoteEngine(cfg.EngineURL(), cfg.EngineToken(), logger)
		eng = remote
		engineName = "remote"
		logger.Info("using remote render engine", "url", cfg.EngineURL())
	} else {
		eng = engine.NewStubEngine(logger)
		logger.Info("no engine URL configured, using stub render engine")
	}

	sess := session.New(eng, repo, logger)

	fsWatcher := watcher.NewFSWatcher(logging.WithComponent(logger, "watcher"))
	fsWatcher.OnChange(func(path string, event watcher.EventType) {
		logger.Warn("source media changed on disk", "path", logging.SanitizePath(path), "event", event.String())
	})
	defer fsWatcher.Stop()

	apiServer := api.NewServer(api.ServerConfig{
		Port:          cfg.Port(),
		Session:       sess,
		Repository:    repo,
		Media:         playback.NewMediaServer(logging.WithComponent(logger, "media")),
		Watcher:       fsWatcher,
		EngineName:    engineName,
		DefaultFormat: cfg.DefaultExportFormat(),
		Logger:        logging.WithComponent(logger, "api"),
		StartTime:     startTime,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		err := sess.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if remote != nil {
		g.Go(func() error {
			remote.Subscribe(gctx)
			return nil
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Logger: logging.WithComponent(logger, "tray"),
			OnSave: func() error {
				return sess.SaveProject(context.Background())
			},
			OnClose: func() {
				sess.Clear()
			},
			OnQuit: func() {
				cancel()
			},
		})
		go tray.Run()
		defer tray.Quit()

		g.Go(func() error {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					tray.Refresh(sess.Status())
				}
			}
		})
	}

	err = g.Wait()

	// Tear down any live render instance before exiting.
	sess.Clear()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(repo store.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
