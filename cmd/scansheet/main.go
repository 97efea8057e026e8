package main

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/scansheet/scansheet/internal/capture"
	"github.com/scansheet/scansheet/internal/config"
	"github.com/scansheet/scansheet/internal/receipt"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	cfg, fs, err := config.Parse("scansheet", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.ShowVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Initialize store
	slog.Info("Initializing database...", "path", cfg.DBPath)
	slot, err := cfg.OpenSlot()
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	store := receipt.NewStore(slot)
	defer store.Close()

	// Initialize scanner based on type
	scanner, err := cfg.NewScanner()
	if err != nil {
		slog.Error("Failed to initialize scanner", "type", cfg.Scanner, "error", err)
		os.Exit(1)
	}
	defer scanner.Close()

	// The browser pushes camera frames through the relay
	relay := capture.NewRelay(!cfg.NoCamera)

	// Initialize service
	receiptService := receipt.NewService(store, scanner, relay)
	defer receiptService.Close()

	// Initialize server
	basicAuth := receipt.BasicAuth{
		Username: cfg.AuthUser,
		Password: cfg.AuthPass,
	}
	server := receipt.NewServer(receiptService, relay, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if cfg.AuthUser != "" || cfg.AuthPass != "" {
		slog.Info("Basic auth enabled", "user", cfg.AuthUser)
	}
	if cfg.NoCamera {
		slog.Info("Camera capture disabled, uploads only")
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
