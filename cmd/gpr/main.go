package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ateliergpr/gpr/internal/api"
	"github.com/ateliergpr/gpr/internal/auth"
	"github.com/ateliergpr/gpr/internal/config"
	"github.com/ateliergpr/gpr/internal/db"
	"github.com/ateliergpr/gpr/internal/model"
	"github.com/ateliergpr/gpr/internal/obs"
	"github.com/ateliergpr/gpr/internal/qr"
	"github.com/ateliergpr/gpr/internal/store"
	"github.com/ateliergpr/gpr/internal/web"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

// defaultAccounts are the operational accounts seeded on first run, one
// per role. Passwords are generated and printed once.
var defaultAccounts = []struct {
	Username string
	Role     model.Role
}{
	{"main", model.RoleMaintenance},
	{"log", model.RoleLogistics},
	{"achat", model.RolePurchasing},
	{"inge", model.RoleEngineering},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		database, passwords, err := initDatabase(cfg.DBPath)
		if err != nil {
			slog.Error("failed to initialize database", "error", err)
			os.Exit(1)
		}
		database.Close()

		printInitResult(cfg.DBPath, passwords)
		fmt.Println()
	}

	// Open database.
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", cfg.DBPath)

	// Load session signing secret from the database (auto-generated on first run).
	secret, err := store.GetSessionSecret(context.Background(), database)
	if err != nil {
		slog.Error("failed to get session secret", "error", err)
		os.Exit(1)
	}

	// QR codes must encode a URL the scanning device can reach.
	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = "http://localhost" + cfg.Addr
		slog.Warn("GPR_PUBLIC_URL not set, QR codes will only work locally", "base_url", baseURL)
	}
	renderer := &qr.Renderer{Dir: cfg.QRDir, BaseURL: baseURL}

	// Set up routers: API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(database, secret, renderer))
	mux.Handle("GET /metrics", obs.Handler())
	mux.Handle("/", web.NewRouter(cfg.QRDir))

	handler := api.LoggingMiddleware(obs.Instrument(mux))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}

// initDatabase creates a new database, ensures the schema, and seeds
// one account per operational role.
func initDatabase(path string) (*sql.DB, map[string]string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sql.DB, map[string]string, error) {
		database.Close()
		os.Remove(path)
		return nil, nil, err
	}

	if err := db.EnsureSchema(database); err != nil {
		return fail(fmt.Errorf("ensuring schema: %w", err))
	}

	ctx := context.Background()
	passwords := make(map[string]string, len(defaultAccounts))
	for _, account := range defaultAccounts {
		password, err := generatePassword(16)
		if err != nil {
			return fail(fmt.Errorf("generating password: %w", err))
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return fail(fmt.Errorf("hashing password: %w", err))
		}

		if _, err := store.CreateUser(ctx, database, account.Username, hash, account.Role); err != nil {
			return fail(fmt.Errorf("creating user %s: %w", account.Username, err))
		}
		passwords[account.Username] = password
	}

	return database, passwords, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath string, passwords map[string]string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Accounts created:")
	for _, account := range defaultAccounts {
		fmt.Printf("  %-6s (%s): %s\n", account.Username, account.Role, passwords[account.Username])
	}
	fmt.Println()
	fmt.Println("Save these passwords — they cannot be recovered.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
