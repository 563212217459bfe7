package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/snapmatch/snapmatch/internal/config"
	"github.com/snapmatch/snapmatch/internal/storage"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Manage the reference image gallery",
}

var gallerySyncCmd = &cobra.Command{
	Use:   "sync <share-link>",
	Short: "Download a cloud share into the gallery directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runGallerySync,
}

var galleryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the gallery directory",
	RunE:  runGalleryClear,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(gallerySyncCmd)
	galleryCmd.AddCommand(galleryClearCmd)
}

func runGallerySync(cmd *cobra.Command, args []string) error {
	link := args[0]
	cfg := config.Load()

	bridge, err := storage.New(cmd.Context(), cfg.Storage, cfg.Paths.CredentialsFile)
	if err != nil {
		return fmt.Errorf("setting up object storage: %w", err)
	}

	keys, err := bridge.ShareObjects(cmd.Context(), link)
	if err != nil {
		return fmt.Errorf("listing share: %w", err)
	}

	if err := os.MkdirAll(cfg.Paths.GalleryDir, 0o750); err != nil {
		return fmt.Errorf("creating gallery directory: %w", err)
	}

	bar := progressbar.Default(int64(len(keys)), "downloading")
	for _, key := range keys {
		if err := bridge.FetchObject(cmd.Context(), key, cfg.Paths.GalleryDir); err != nil {
			return fmt.Errorf("downloading gallery: %w", err)
		}
		_ = bar.Add(1)
	}

	fmt.Printf("Gallery synced: %d images in %s\n", len(keys), cfg.Paths.GalleryDir)
	return nil
}

func runGalleryClear(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Paths.GalleryDir == "" {
		return errors.New("gallery directory is not configured")
	}

	if err := os.RemoveAll(cfg.Paths.GalleryDir); err != nil {
		return fmt.Errorf("clearing gallery: %w", err)
	}
	if err := os.MkdirAll(cfg.Paths.GalleryDir, 0o750); err != nil {
		return fmt.Errorf("recreating gallery: %w", err)
	}

	fmt.Printf("Gallery cleared: %s\n", cfg.Paths.GalleryDir)
	return nil
}
