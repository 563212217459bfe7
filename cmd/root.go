package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "snapmatch",
	Short: "A face-capture-and-matching web application",
	Long: `SnapMatch serves a browser-based face capture flow: a visitor takes a
photo, an external matching program compares it against a reference gallery,
and the matched images can be shared by email through a cloud-storage link.
An admin surface manages accounts, credentials, and the gallery.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
