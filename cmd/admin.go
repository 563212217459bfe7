package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapmatch/snapmatch/internal/config"
	"github.com/snapmatch/snapmatch/internal/store/postgres"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an admin account",
	Long: `Create an admin account from the terminal, typically to bootstrap the
first admin before the web surface is reachable. The password comes from
--password or the SNAPMATCH_ADMIN_PASSWORD environment variable.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdminCreate,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().String("password", "", "Password for the new admin")
	adminCreateCmd.Flags().String("email", "", "Email address for the new admin")
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	username := args[0]
	password := mustGetString(cmd, "password")
	if password == "" {
		password = os.Getenv("SNAPMATCH_ADMIN_PASSWORD")
	}
	if password == "" {
		return errors.New("password is required (--password or SNAPMATCH_ADMIN_PASSWORD)")
	}
	email := mustGetString(cmd, "email")

	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	admins := postgres.NewAdminRepository(pool)
	admin, err := admins.Create(cmd.Context(), username, string(hash), email)
	if err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}

	fmt.Printf("Created admin %q (id %d)\n", admin.Username, admin.ID)
	return nil
}
