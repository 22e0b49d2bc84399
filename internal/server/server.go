// Package server runs the HTTP API until its context is cancelled.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harrylevesque/txt2qr/internal/api"
	"github.com/harrylevesque/txt2qr/internal/app"
	"github.com/harrylevesque/txt2qr/internal/certs"
)

const shutdownTimeout = 10 * time.Second

// Run listens on a.Config.Addr and serves until ctx is done, then drains
// in-flight requests.
func Run(ctx context.Context, a *app.App) error {
	ln, err := net.Listen("tcp", a.Config.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, a, ln)
}

// Serve is Run on an existing listener. It closes ln.
func Serve(ctx context.Context, a *app.App, ln net.Listener) error {
	log := a.Log.Named("server")
	srv := &http.Server{
		Handler:           api.NewRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tlsOn := a.Config.TLS.CertFile != ""
	if tlsOn {
		cm := certs.NewCertManager(a.Config.TLS.CertFile, a.Config.TLS.KeyFile, a.Log)
		if err := cm.Check(time.Now()); err != nil {
			ln.Close()
			return err
		}
		tlsCfg, err := cm.TLSConfig()
		if err != nil {
			ln.Close()
			return err
		}
		srv.TLSConfig = tlsCfg
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server running", zap.String("addr", ln.Addr().String()), zap.Bool("tls", tlsOn))
		var err error
		if tlsOn {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
