package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/codeflow/internal/observability/logger"
)

const shutdownTimeout = 10 * time.Second

// Run sirve app hasta que ctx se cancele y luego hace Shutdown con 10s de margen.
// Los jobs de fondo (sweeper) corren en el mismo errgroup.
func Run(ctx context.Context, app *App) error {
	ln, err := net.Listen("tcp", app.Addr)
	if err != nil {
		_ = app.Close()
		return err
	}
	return Serve(ctx, app, ln)
}

// Serve como Run pero sobre un listener ya abierto.
func Serve(ctx context.Context, app *App, ln net.Listener) error {
	log := logger.Named(app.Name)
	srv := &http.Server{
		Handler:           app.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	for _, job := range app.background {
		g.Go(func() error {
			job(gctx)
			return nil
		})
	}

	err := g.Wait()
	if cerr := app.Close(); cerr != nil {
		log.Warn("close failed", logger.Err(cerr))
	}
	return err
}
