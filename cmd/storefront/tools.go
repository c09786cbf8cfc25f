package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/Mohaabaprint/Teetot-Print/internal/auth"
	"github.com/Mohaabaprint/Teetot-Print/internal/imaging"
	"github.com/Mohaabaprint/Teetot-Print/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and seed the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.NewRepository(cfg.DatabasePath, log)
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.RunMigrations(); err != nil {
			return err
		}
		log.Info("database migrations completed", zap.String("path", cfg.DatabasePath))
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe every order, cart and edit and restore the seed catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.NewRepository(cfg.DatabasePath, log)
		if err != nil {
			return err
		}
		defer repo.Close()

		return repo.Reset(cmd.Context())
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <input> <output.png>",
	Short: "Normalize an image the way customer uploads are normalized",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		img, err := imaging.NewNormalizer().Normalize(cmd.Context(), data, mime.TypeByExtension(filepath.Ext(args[0])))
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], img.Data, 0o644); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %dx%d %s\n", args[1], img.SourceMimeType, img.Width, img.Height, img.MimeType)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}
