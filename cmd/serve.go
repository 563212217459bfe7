package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/snapmatch/snapmatch/internal/config"
	"github.com/snapmatch/snapmatch/internal/mail"
	"github.com/snapmatch/snapmatch/internal/matcher"
	"github.com/snapmatch/snapmatch/internal/storage"
	"github.com/snapmatch/snapmatch/internal/store/postgres"
	"github.com/snapmatch/snapmatch/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the SnapMatch web server.
The server exposes the public capture flow and the admin surface.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies")
}

// resolveServeHostPort resolves port, host, and session secret from flags
// and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	sessionSecret := mustGetString(cmd, "session-secret")

	if sessionSecret == "" {
		sessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, sessionSecret
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close()

	bridge, err := storage.New(cmd.Context(), cfg.Storage, cfg.Paths.CredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to set up object storage: %w", err)
	}

	dispatcher, err := mail.NewSMTPDispatcher(cfg.Mail)
	if err != nil {
		return fmt.Errorf("failed to set up mail dispatcher: %w", err)
	}

	if err := os.MkdirAll(cfg.Paths.GalleryDir, 0o750); err != nil {
		return fmt.Errorf("failed to create gallery directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Paths.MatchedDir, 0o750); err != nil {
		return fmt.Errorf("failed to create matched directory: %w", err)
	}

	deps := web.Deps{
		Matcher:     matcher.NewCommandMatcher(cfg),
		Images:      matcher.NewStore(cfg.Paths.MatchedDir, cfg.Matcher.Prefix),
		Admins:      postgres.NewAdminRepository(pool),
		UserLogs:    postgres.NewUserLogRepository(pool),
		Captures:    postgres.NewCaptureRepository(pool),
		SessionRepo: postgres.NewSessionRepository(pool),
		Dispatcher:  dispatcher,
		Uploader:    bridge,
		Downloader:  bridge,
	}

	port, host, sessionSecret := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, sessionSecret, deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting SnapMatch on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
