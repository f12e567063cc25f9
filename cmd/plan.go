package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixperk/chugsql/internal/config"
	"github.com/pixperk/chugsql/internal/db"
	"github.com/pixperk/chugsql/internal/loader"
	"github.com/pixperk/chugsql/internal/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	planOpts loadFlags
	planAll  bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the column projection and statement boundaries without touching the target",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := planOpts.config(cmd)
		if err != nil {
			return err
		}
		if cfg.Driver == "" {
			cfg.Driver = loader.MSSQL.Name
		}
		dialect, ok := loader.DialectFor(cfg.Driver)
		if !ok {
			return errors.Wrapf(config.ErrInvalidConfig, "unsupported driver %q", cfg.Driver)
		}
		loads := cfg.EffectiveLoads()
		if len(loads) == 0 {
			return errors.Wrap(config.ErrInvalidConfig, "no table configured")
		}

		defer db.ClosePostgresPool()

		for _, lc := range loads {
			r := cfg.Resolve(lc)
			frame, err := readFrame(ctx, cfg, r, !planOpts.noInfer)
			if err != nil {
				return err
			}

			proj, spans, err := loader.Plan(frame, r.Destination, loaderOptions(r, dialect))
			if err != nil {
				return err
			}
			printPlan(r, dialect, proj, spans)
		}
		return nil
	},
}

func printPlan(r config.ResolvedLoad, d loader.Dialect, proj *loader.Projection, spans []loader.Span) {
	ui.PrintTitle(fmt.Sprintf("%s (%s)", proj.Location, d.Name))

	cols := make([][]string, len(proj.Columns))
	for i, name := range proj.Columns {
		cols[i] = []string{name, d.QuoteIdent(name), proj.Placeholders[i]}
	}
	ui.DisplayTable([]string{"column", "quoted", "placeholder"}, cols)
	fmt.Println()

	shown := spans
	if !planAll && len(shown) > 10 {
		shown = append(append([]loader.Span{}, spans[:5]...), spans[len(spans)-5:]...)
	}
	rows := make([][]string, 0, len(shown)+1)
	for i, s := range shown {
		n := i + 1
		if len(shown) != len(spans) && i >= 5 {
			n = len(spans) - len(shown) + i + 1
		}
		if len(shown) != len(spans) && i == 5 {
			rows = append(rows, []string{"...", "", "", ""})
		}
		rows = append(rows, []string{
			fmt.Sprint(n),
			fmt.Sprintf("%d-%d", s.FirstRow, s.FirstRow+s.Rows-1),
			fmt.Sprint(s.Rows),
			fmt.Sprint(s.Params),
		})
	}
	ui.DisplayTable([]string{"statement", "rows", "count", "params"}, rows)

	total := 0
	for _, s := range spans {
		total += s.Rows
	}
	ui.PrintBox("Summary", strings.Join([]string{
		fmt.Sprintf("rows:       %d", total),
		fmt.Sprintf("statements: %d", len(spans)),
		fmt.Sprintf("ceiling:    %d parameters", r.Ceiling),
	}, "\n"))
}

func init() {
	planOpts.register(planCmd)
	planCmd.Flags().BoolVar(&planAll, "all", false, "List every statement instead of the first and last five")
	rootCmd.AddCommand(planCmd)
}
