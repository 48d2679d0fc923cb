package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/s2d/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the web page and JSON API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	cache, err := r.trackCache()
	if err != nil {
		return err
	}
	transfers, err := r.transfers()
	if err != nil {
		return err
	}
	engine, err := r.engine()
	if err != nil {
		return err
	}

	router, err := server.NewRouter(server.Options{
		API: server.APIOpts{
			Sources:   r.sources,
			Cache:     cache,
			Engine:    engine,
			Transfers: transfers,
		},
		OAuth:          r.oauth,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RequestTimeout: cfg.RequestTimeout.Duration,
		Logger:         r.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Addr(), router, r.logger)
	go r.announce(ctx, srv, cmd.Bool("open"))

	return srv.Run(ctx)
}

// announce prints the page URL once the server is listening.
func (r *Runner) announce(ctx context.Context, srv *server.Server, open bool) {
	select {
	case <-ctx.Done():
		return
	case addr := <-srv.Ready():
		url := "http://" + addr
		r.writePlain("→ s2d listening on %s\n", url)
		if r.oauth != nil {
			r.writePlain("→ Connect Deezer at %s/auth/deezer\n", url)
		}
		if !open {
			return
		}
		if err := r.openURL(url); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}
}
