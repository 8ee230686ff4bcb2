package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/questly/questly-api/internal/auth"
	"github.com/questly/questly-api/internal/config"
	httpapp "github.com/questly/questly-api/internal/http"
	"github.com/questly/questly-api/internal/logging"
	"github.com/questly/questly-api/internal/rate"
	"github.com/questly/questly-api/internal/service"
)

var version = "v0.1.0"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "questly",
		Usage:   "Questly social feed and challenges API",
		Version: version,
		Action:  runServer,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server"},
				Usage:   "run the HTTP API (default)",
				Action:  runServer,
			},
			{
				Name:  "repair-images",
				Usage: "rewrite relative image references on posts to absolute URLs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "base-url",
						Usage:    "public origin assets are served from, e.g. https://api.example.com",
						EnvVars:  []string{"QUESTLY_PUBLIC_URL"},
						Required: true,
					},
				},
				Action: runRepairImages,
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "questly %s\n", version)
					return nil
				},
			},
		},
	}
}

func runServer(c *cli.Context) error {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.Env != "dev" && cfg.JWTSecret == "dev-jwt-secret" {
		logger.Warn("QUESTLY_JWT_SECRET is not set; tokens are signed with the development secret")
	}

	openCtx, cancel := context.WithTimeout(c.Context, 15*time.Second)
	st, err := openStore(openCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).WithField("store", cfg.Store).Fatal("failed to open store")
	}
	defer st.Close()

	images, err := openImages(cfg)
	if err != nil {
		logger.WithError(err).WithField("media", cfg.Media.Backend).Fatal("failed to open media store")
	}

	limiter := rate.NewMemory(cfg.RateLimits.WritesPerMinute)
	authSvc := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)

	server, err := httpapp.NewServer(st, authSvc, limiter, images, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize server")
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":  cfg.Addr,
			"store": cfg.Store,
			"media": images.Store.Backend(),
		}).Info("questly listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutting down")
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return httpServer.Shutdown(ctx)
}

func runRepairImages(c *cli.Context) error {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	st, err := openStore(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	images, err := openImages(cfg)
	if err != nil {
		return fmt.Errorf("open media store: %w", err)
	}
	images.PublicURL = ""
	posts := service.NewPostService(st, images, logger)

	res, err := posts.RepairImageURLs(c.Context, assetsBase(c.String("base-url")))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "scanned %d posts, fixed %d\n", res.Scanned, res.Fixed)
	return nil
}
