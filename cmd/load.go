package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pixperk/chugsql/internal/db"
	"github.com/pixperk/chugsql/internal/logx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loadOpts loadFlags

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Insert every row of a file or Postgres table into an existing table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		log := logx.StyledLog
		cfg, err := loadOpts.config(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		target, err := db.Open(ctx, cfg.Driver, cfg.DSN, logx.Logger)
		if err != nil {
			return err
		}
		defer target.Close()
		defer db.ClosePostgresPool()

		for _, lc := range cfg.EffectiveLoads() {
			r := cfg.Resolve(lc)
			log.Info(fmt.Sprintf("Reading %s", r.Source), zap.String("table", r.Destination.String()))

			frame, err := readFrame(ctx, cfg, r, !loadOpts.noInfer)
			if err != nil {
				return err
			}

			res, err := runLoad(ctx, target, frame, r)
			if err != nil {
				reportBatchError(err)
				return err
			}
			log.Success(fmt.Sprintf("Loaded %d rows into %s in %d statements (%s)",
				res.Rows, r.Destination, res.Batches, res.Duration.Round(time.Millisecond)),
				zap.Int("rows", res.Rows),
				zap.Int("batches", res.Batches),
				zap.Duration("duration", res.Duration))
		}
		return nil
	},
}

func init() {
	loadOpts.register(loadCmd)
	rootCmd.AddCommand(loadCmd)
}
