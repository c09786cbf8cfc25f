package main

import (
	"fmt"
	"os"

	"github.com/Mohaabaprint/Teetot-Print/internal/config"
	"github.com/Mohaabaprint/Teetot-Print/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "TeetotPrint print-on-demand storefront",
	Long: `storefront serves the TeetotPrint shop: the product catalog, the
design customizer, carts, Momo checkout and the back office.

Configuration comes from the YAML file named by STOREFRONT_CONFIG and
environment variables such as HTTP_PORT, DATABASE_PATH and REDIS_ADDR.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log, err = logger.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, resetCmd, normalizeCmd, hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
