package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DishankChauhan/streamX/internal/config"
	"github.com/DishankChauhan/streamX/internal/logger"
	srv "github.com/DishankChauhan/streamX/internal/rtmp/server"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		// flag package already printed usage/error
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	domain := config.Defaults()
	if cfg.configPath != "" {
		loaded, err := config.Load(cfg.configPath)
		if err != nil {
			fmt.Printf("failed to load config %s: %v\n", cfg.configPath, err)
			os.Exit(2)
		}
		domain = loaded
	}
	if cfg.streamsDir != "" {
		domain.StreamsDir = cfg.streamsDir
	}
	if cfg.maxStreams > 0 {
		domain.MaxStreams = cfg.maxStreams
	}
	if cfg.logLevel != "" {
		domain.LogLevel = cfg.logLevel
	}
	if err := domain.Validate(); err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger.Init()
	if err := logger.SetLevel(domain.LogLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", domain.LogLevel)
	}
	log := logger.Logger().With("component", "cli")

	listenAddr := cfg.listenAddr
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%d", domain.RTMPPort)
	}

	server := srv.New(srv.Config{
		ListenAddr:      listenAddr,
		Domain:          domain,
		HookWebhooks:    cfg.hookWebhooks,
		HookStdioFormat: cfg.hookStdioFormat,
		HookTimeout:     cfg.hookTimeout,
		HookConcurrency: cfg.hookConcurrency,
	})

	if err := server.Start(); err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	log.Info("server started", "addr", server.Addr().String(), "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := server.Stop(); err != nil {
			log.Error("server stop error", "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("server stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
	}
}
