package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/harrylevesque/txt2qr/internal/app"
	"github.com/harrylevesque/txt2qr/internal/config"
	"github.com/harrylevesque/txt2qr/internal/server"
	"github.com/harrylevesque/txt2qr/internal/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, file, err := config.Load(wd, os.Getenv("TXT2QR_CONFIG"), os.Environ())
	if err != nil {
		return err
	}
	log, err := utils.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	if file != "" {
		log.Info("loaded config", zap.String("file", file))
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info("server running", zap.String("addr", cfg.Addr))
	return server.Run(ctx, a)
}
