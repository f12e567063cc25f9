package cmd

import (
	"context"

	"github.com/pixperk/chugsql/internal/db"
	"github.com/pixperk/chugsql/internal/logx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var connectOpts loadFlags

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Test the target connection and, if configured, the Postgres source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		log := logx.StyledLog

		cfg, err := connectOpts.config(cmd)
		if err != nil {
			return err
		}
		if cfg.Driver == "" || cfg.DSN == "" {
			return errors.New("driver and dsn are required")
		}

		failed := false
		log.Info("Testing " + cfg.Driver + " connection...")
		target, err := db.Open(ctx, cfg.Driver, cfg.DSN, logx.Logger)
		if err != nil {
			log.Error(cfg.Driver+" connection failed: "+err.Error(), zap.Error(err))
			failed = true
		} else {
			log.Success(cfg.Driver + " connected")
			_ = target.Close()
		}

		if cfg.PostgresURL != "" {
			log.Info("Testing Postgres connection...")
			if _, err := db.GetPostgresPool(ctx, cfg.PostgresURL); err != nil {
				log.Error("Postgres connection failed: "+err.Error(), zap.Error(err))
				failed = true
			} else {
				log.Success("Postgres connected")
				db.ClosePostgresPool()
			}
		}

		if failed {
			return errors.New("connection test failed")
		}
		return nil
	},
}

func init() {
	connectOpts.register(connectCmd)
	rootCmd.AddCommand(connectCmd)
}
