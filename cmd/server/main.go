package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/festival-planner/app/internal/config"
	"github.com/festival-planner/app/internal/countcache"
	"github.com/festival-planner/app/internal/database"
	"github.com/festival-planner/app/internal/handlers"
	"github.com/festival-planner/app/internal/log"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: server [COMMAND] [OPTIONS]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve           Run the schedule API (default)\n")
	fmt.Fprintf(os.Stderr, "  seed            Replace the database contents with the sample lineup\n")
	fmt.Fprintf(os.Stderr, "  hash-password   Print a bcrypt hash for ADMIN_PASSWORD_HASH\n")
}

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(args)
	case "seed":
		err = seed(args)
	case "hash-password":
		err = hashPassword(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("server command failed", err, "command", cmd)
		os.Exit(1)
	}
}

// loadConfig reads .env, the YAML file and environment overrides, in that
// order of increasing precedence.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.ApplyEnv()
	log.SetLevel(log.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func openDB(cfg *config.Config, withSeed bool) (*sql.DB, error) {
	db, err := database.InitDB(cfg.Server.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init database %s: %w", cfg.Server.DatabasePath, err)
	}
	if withSeed {
		if err := database.Seed(db, database.DefaultSeedDay); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed database: %w", err)
		}
		log.Info("database seeded", "path", cfg.Server.DatabasePath)
	}
	return db, nil
}

func seed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "path to config.yaml")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	db, err := openDB(cfg, true)
	if err != nil {
		return err
	}
	return db.Close()
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "path to config.yaml")
	withSeed := fs.Bool("seed", false, "replace the database contents with the sample lineup before serving")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	db, err := openDB(cfg, *withSeed)
	if err != nil {
		return err
	}
	defer db.Close()

	cache, closeCache := newCountCache(cfg.Server)
	defer closeCache()

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handlers.NewServerHandler(db, cache, cfg.Server),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Listen, "database", cfg.Server.DatabasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// newCountCache prefers Redis when configured and falls back to memory when
// Redis is unreachable at startup.
func newCountCache(cfg config.ServerConfig) (countcache.Cache, func()) {
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		r, err := countcache.NewRedis(ctx, cfg.RedisAddr, cfg.CountCacheTTL())
		if err == nil {
			log.Info("attendee count cache", "backend", "redis", "addr", cfg.RedisAddr)
			return r, func() { r.Close() }
		}
		log.Error("redis unavailable, using in-memory count cache", err, "addr", cfg.RedisAddr)
	}
	log.Info("attendee count cache", "backend", "memory")
	return countcache.NewMemory(cfg.CountCacheTTL()), func() {}
}
