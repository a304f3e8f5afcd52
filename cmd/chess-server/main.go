// Package main runs the chess duel API server: games over REST with
// per-seat tokens, long polling and optional SQLite persistence.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chessduel/cmd/chess-server/cli"
	"chessduel/internal/http"
	"chessduel/internal/processor"
	"chessduel/internal/service"
	"chessduel/internal/storage"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	devSeatSecret           = "dev-secret-minimum-32-characters-long"
	minSecretLen            = 32
)

// config is the server setup taken from the command line
type config struct {
	apiHost         string
	apiPort         int
	dev             bool
	storagePath     string
	secretFile      string
	seatTTL         time.Duration
	idleTTL         time.Duration
	cleanupInterval time.Duration
	pidPath         string
	pidLock         bool
}

func (c *config) addr() string { return fmt.Sprintf("%s:%d", c.apiHost, c.apiPort) }

func parseConfig(args []string) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("chess-server", flag.ContinueOnError)
	fs.StringVar(&cfg.apiHost, "api-host", "localhost", "API server host")
	fs.IntVar(&cfg.apiPort, "api-port", 8080, "API server port")
	fs.BoolVar(&cfg.dev, "dev", false, "Development mode (relaxed rate limits, fixed seat secret)")
	fs.StringVar(&cfg.storagePath, "storage-path", "", "SQLite database file; persistence is off when empty")
	fs.StringVar(&cfg.secretFile, "secret-file", "", "File holding the seat token secret, created when missing")
	fs.DurationVar(&cfg.seatTTL, "seat-ttl", service.SeatTokenTTL, "Lifetime of seat tokens")
	fs.DurationVar(&cfg.idleTTL, "idle-ttl", service.IdleGameTTL, "Drop games untouched for this long")
	fs.DurationVar(&cfg.cleanupInterval, "cleanup-interval", service.CleanupJobInterval, "How often idle games are looked for")
	fs.StringVar(&cfg.pidPath, "pid", "", "Optional path to write PID file")
	fs.BoolVar(&cfg.pidLock, "pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case cfg.pidLock && cfg.pidPath == "":
		return nil, errors.New("-pid-lock requires -pid")
	case cfg.apiPort <= 0 || cfg.apiPort > 65535:
		return nil, fmt.Errorf("invalid -api-port %d", cfg.apiPort)
	case cfg.seatTTL <= 0 || cfg.idleTTL <= 0 || cfg.cleanupInterval <= 0:
		return nil, errors.New("-seat-ttl, -idle-ttl and -cleanup-interval must be positive")
	case cfg.dev && cfg.secretFile != "":
		return nil, errors.New("-secret-file cannot be combined with -dev")
	}
	return cfg, nil
}

// seatSecret returns the key seat tokens are signed with. Without a secret
// file the key is random and tokens, including those of stored games, stop
// working on restart.
func seatSecret(cfg *config) ([]byte, error) {
	if cfg.dev {
		return []byte(devSeatSecret), nil
	}
	if cfg.secretFile == "" {
		secret := make([]byte, minSecretLen)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate seat secret: %w", err)
		}
		return secret, nil
	}

	data, err := os.ReadFile(cfg.secretFile)
	switch {
	case err == nil:
		secret := strings.TrimSpace(string(data))
		if len(secret) < minSecretLen {
			return nil, fmt.Errorf("seat secret in %s is shorter than %d bytes", cfg.secretFile, minSecretLen)
		}
		return []byte(secret), nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read seat secret: %w", err)
	}

	raw := make([]byte, minSecretLen)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate seat secret: %w", err)
	}
	secret := hex.EncodeToString(raw)
	if err := os.WriteFile(cfg.secretFile, []byte(secret+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("write seat secret: %w", err)
	}
	log.Printf("Seat secret written to %s", cfg.secretFile)
	return []byte(secret), nil
}

func openStore(cfg *config) (*storage.Store, error) {
	if cfg.storagePath == "" {
		log.Printf("Persistent storage disabled (use -storage-path to enable)")
		return nil, nil
	}
	log.Printf("Opening game storage at %s", cfg.storagePath)
	store, err := storage.NewStore(cfg.storagePath, cfg.dev)
	if err != nil {
		return nil, err
	}
	if err := store.InitDB(); err != nil {
		store.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// run serves the API until ctx is cancelled or the listener fails, then
// stops the HTTP app, the command queue and the service in that order.
func run(ctx context.Context, cfg *config) error {
	secret, err := seatSecret(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	// The service owns the store from here on and closes it on shutdown
	svc := service.New(store, secret)
	svc.SetSeatTTL(cfg.seatTTL)
	svc.SetIdleTTL(cfg.idleTTL)

	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	defer cleanupCancel()
	go svc.RunCleanupJob(cleanupCtx, cfg.cleanupInterval)

	proc := processor.New(svc)
	app := http.NewFiberApp(proc, svc, cfg.dev)

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(cfg.addr())
	}()
	log.Printf("Chess duel API on http://%s/api/v1 (health: /health, storage: %s, seat tokens valid %v)",
		cfg.addr(), svc.GetStorageHealth(), cfg.seatTTL)

	var serveErr error
	select {
	case <-ctx.Done():
		log.Println("Shutting down server...")
	case serveErr = <-listenErr:
		log.Printf("API server listen error: %v", serveErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if serveErr != nil {
		errs = append(errs, serveErr)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if err := proc.Close(); err != nil {
		errs = append(errs, fmt.Errorf("processor: %w", err))
	}
	cleanupCancel()
	if err := svc.Shutdown(gracefulShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("service: %w", err))
	}
	return errors.Join(errs...)
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Error: %v", err)
	}

	if cfg.pidPath != "" {
		pf, err := acquirePIDFile(cfg.pidPath, cfg.pidLock)
		if err != nil {
			log.Fatalf("Failed to manage PID file: %v", err)
		}
		defer pf.Release()
		log.Printf("PID file created at: %s (lock: %v)", cfg.pidPath, cfg.pidLock)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Printf("Server stopped with error: %v", err)
		return
	}
	log.Println("Server exited")
}
