package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pixperk/chugsql/internal/config"
	"github.com/pixperk/chugsql/internal/db"
	"github.com/pixperk/chugsql/internal/loader"
	"github.com/pixperk/chugsql/internal/logx"
	"github.com/pixperk/chugsql/internal/poller"
	"github.com/pixperk/chugsql/internal/source"
	"github.com/pixperk/chugsql/internal/tabular"
	"github.com/pixperk/chugsql/internal/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncOpts     loadFlags
	syncSince    string
	syncDeltaCol string
	syncInterval int
	syncIndex    bool
	syncOnce     bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Poll a Postgres table by a delta column and load new rows as they appear",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cfg, err := syncOpts.config(cmd)
		if err != nil {
			return err
		}
		cfg.Source = "postgres"
		for i := range cfg.Loads {
			cfg.Loads[i].Source = "postgres"
		}
		if cmd.Flags().Changed("delta-column") {
			cfg.Polling.DeltaCol = syncDeltaCol
		}
		if cmd.Flags().Changed("interval") {
			cfg.Polling.Interval = syncInterval
		}
		cfg.Polling.Enabled = true
		if err := cfg.Validate(); err != nil {
			return err
		}
		loads := cfg.EffectiveLoads()
		if len(loads) != 1 {
			return errors.Wrapf(config.ErrInvalidConfig, "sync follows one table, %d configured", len(loads))
		}
		r := cfg.Resolve(loads[0])

		target, err := db.Open(ctx, cfg.Driver, cfg.DSN, logx.Logger)
		if err != nil {
			return err
		}
		defer target.Close()

		pool, err := db.GetPostgresPool(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.ClosePostgresPool()

		return startPolling(ctx, pool, target, r)
	},
}

func startPolling(ctx context.Context, pool source.Indexer, target *db.Target, r config.ResolvedLoad) error {
	log := logx.StyledLog
	log.Highlight("Starting change data polling")

	startFrom := syncSince
	if startFrom == "" {
		startFrom = "beginning"
	}
	ui.PrintBox("Polling Configuration",
		"Source: "+r.PGTable+"\n"+
			"Target: "+r.Destination.String()+"\n"+
			"Delta Column: "+r.Polling.DeltaCol+"\n"+
			"Interval: "+fmt.Sprintf("%d seconds", r.Polling.Interval)+"\n"+
			"Starting From: "+startFrom)

	if syncIndex {
		if err := source.EnsureDeltaIndex(ctx, pool, source.PGTable(r.PGTable), r.Polling.DeltaCol); err != nil {
			log.Warn("Could not create index on delta column (continuing anyway)", zap.Error(err))
		} else {
			log.Success("Index ready on delta column", zap.String("column", r.Polling.DeltaCol))
		}
	}

	conn, err := target.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := loaderOptions(r, target.Dialect)
	opts.Progress = &loader.LogProgress{Logger: logx.Logger}
	onData := func(ctx context.Context, data *tabular.Frame) error {
		res, err := loader.Load(ctx, conn, data, r.Destination, opts)
		if err != nil {
			reportBatchError(err)
			return err
		}
		log.Success(fmt.Sprintf("Loaded %d new rows into %s", res.Rows, r.Destination),
			zap.Int("rows", res.Rows), zap.Int("batches", res.Batches))
		return nil
	}

	p := poller.NewPoller(pool, poller.PollConfig{
		Table:     r.PGTable,
		DeltaCol:  r.Polling.DeltaCol,
		Interval:  time.Duration(r.Polling.Interval) * time.Second,
		Limit:     r.Limit,
		StartFrom: syncSince,
		OnData:    onData,
		Logger:    logx.Logger,
	})

	if syncOnce {
		_, err := p.Poll(ctx)
		if err == nil {
			log.Info("Next cursor: " + p.LastSeen())
		}
		return err
	}
	err = p.Start(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("Stopped. Resume with --since '" + p.LastSeen() + "'")
		return nil
	}
	return err
}

func init() {
	syncOpts.register(syncCmd)
	syncCmd.Flags().StringVar(&syncSince, "since", "", "Only load rows whose delta column is greater than this value")
	syncCmd.Flags().StringVar(&syncDeltaCol, "delta-column", "", "Column that increases on every insert or update")
	syncCmd.Flags().IntVar(&syncInterval, "interval", 0, "Polling interval in seconds (default 30)")
	syncCmd.Flags().BoolVar(&syncIndex, "ensure-index", false, "Create an index on the delta column if missing")
	syncCmd.Flags().BoolVar(&syncOnce, "once", false, "Poll once and exit")
	rootCmd.AddCommand(syncCmd)
}
