package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pixperk/chugsql/internal/config"
	"github.com/pixperk/chugsql/internal/db"
	"github.com/pixperk/chugsql/internal/loader"
	"github.com/pixperk/chugsql/internal/logx"
	"github.com/pixperk/chugsql/internal/source"
	"github.com/pixperk/chugsql/internal/tabular"
	"github.com/pixperk/chugsql/internal/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// loadFlags are shared by load, plan, connect and sync. Set flags override
// the config file.
type loadFlags struct {
	configPath    string
	driver        string
	dsn           string
	schema        string
	table         string
	source        string
	sheet         string
	pgURL         string
	pgTable       string
	limit         int
	ceiling       int
	wideThreshold int
	noInfer       bool
}

func (f *loadFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "Path to YAML config file (default: "+config.DefaultPath+")")
	fl.StringVar(&f.driver, "driver", "", "Target driver: mssql, sqlite or clickhouse")
	fl.StringVar(&f.dsn, "dsn", "", "Target connection string")
	fl.StringVar(&f.schema, "schema", "", "Target schema")
	fl.StringVar(&f.table, "table", "", "Target table")
	fl.StringVar(&f.source, "source", "", "Source file (.csv, .tsv, .xlsx, optionally .gz/.bz2/.xz/.zst) or 'postgres'")
	fl.StringVar(&f.sheet, "sheet", "", "XLSX sheet (default: first sheet)")
	fl.StringVar(&f.pgURL, "pg-url", "", "Postgres source connection URL")
	fl.StringVar(&f.pgTable, "pg-table", "", "Postgres source table (default: target table)")
	fl.IntVar(&f.limit, "limit", 0, "Max rows to read from Postgres (0 = all)")
	fl.IntVar(&f.ceiling, "ceiling", 0, "Parameters per statement (default 2000)")
	fl.IntVar(&f.wideThreshold, "wide-threshold", 0, "Longest value, in characters, bound without a cast (default 256)")
	fl.BoolVar(&f.noInfer, "no-infer", false, "Keep every file cell as text")
}

// config loads the config file and applies set flags. A missing default
// config file is not an error; a missing explicit one is.
func (f *loadFlags) config(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		if f.configPath != "" {
			return nil, err
		}
		if _, statErr := os.Stat(config.DefaultPath); statErr == nil {
			return nil, err
		}
		cfg = &config.Config{}
	}

	fl := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if fl.Changed(name) {
			*dst = v
		}
	}
	set("driver", &cfg.Driver, f.driver)
	set("dsn", &cfg.DSN, f.dsn)
	set("schema", &cfg.Schema, f.schema)
	set("source", &cfg.Source, f.source)
	set("sheet", &cfg.Sheet, f.sheet)
	set("pg-url", &cfg.PostgresURL, f.pgURL)
	set("pg-table", &cfg.PGTable, f.pgTable)
	if fl.Changed("table") {
		// a table on the command line replaces the configured list
		cfg.Table = f.table
		cfg.Loads = nil
	}
	if fl.Changed("limit") {
		cfg.Limit = f.limit
	}
	if fl.Changed("ceiling") {
		cfg.Ceiling = f.ceiling
	}
	if fl.Changed("wide-threshold") {
		cfg.WideThreshold = f.wideThreshold
	}
	return cfg, nil
}

func readFrame(ctx context.Context, cfg *config.Config, r config.ResolvedLoad, infer bool) (*tabular.Frame, error) {
	if r.Source != "postgres" {
		return source.ReadFile(r.Source, source.FileOptions{Sheet: r.Sheet, Infer: infer})
	}
	pool, err := db.GetPostgresPool(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	return source.ExtractTable(ctx, pool, source.PGTable(r.PGTable), r.Limit)
}

func loaderOptions(r config.ResolvedLoad, dialect loader.Dialect) loader.Options {
	return loader.Options{
		Dialect:       dialect,
		Ceiling:       r.Ceiling,
		WideThreshold: r.WideThreshold,
		Logger:        logx.Logger,
	}
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// runLoad writes f through a connection reserved for this load, with a
// progress view on terminals and progress log entries otherwise.
func runLoad(ctx context.Context, target *db.Target, f *tabular.Frame, r config.ResolvedLoad) (loader.Result, error) {
	conn, err := target.Conn(ctx)
	if err != nil {
		return loader.Result{}, err
	}
	defer conn.Close()

	opts := loaderOptions(r, target.Dialect)
	if !interactive() {
		opts.Progress = &loader.LogProgress{Logger: logx.Logger}
		return loader.Load(ctx, conn, f, r.Destination, opts)
	}

	var res loader.Result
	err = ui.RunWithProgress(ctx, func(ctx context.Context, p *ui.ProgressReporter) error {
		opts.Progress = p
		var err error
		res, err = loader.Load(ctx, conn, f, r.Destination, opts)
		return err
	})
	return res, err
}

// reportBatchError shows where a load stopped. The full statement and
// parameters are already in the error log entry.
func reportBatchError(err error) {
	var be *loader.BatchError
	if !errors.As(err, &be) {
		return
	}
	stmt := be.Statement
	if len(stmt) > 240 {
		stmt = stmt[:240] + " ..."
	}
	ui.PrintBox("Failed statement", fmt.Sprintf("%s\n\nbatch %d, rows %d-%d, %d parameters\n%v",
		stmt, be.Batch, be.FirstRow, be.FirstRow+be.Rows-1, len(be.Params), be.Err))
}
