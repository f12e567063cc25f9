package cmd

import (
	"fmt"
	"os"

	"github.com/pixperk/chugsql/internal/logx"
	"github.com/pixperk/chugsql/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verboseLogging bool

var rootCmd = &cobra.Command{
	Use:   "chugsql",
	Short: "chugsql bulk-loads tabular data into existing SQL tables",
	Long: `chugsql reads CSV, TSV, XLSX files or Postgres tables and inserts
every row into an existing table with multi-row statements kept under
the server's parameter limit.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logx.InitLoggerWithLevel(verboseLogging)
	},
	Run: func(cmd *cobra.Command, args []string) {
		showLogo()
		_ = cmd.Help()
	},
}

func showLogo() {
	ui.PrintLogo()
	ui.PrintTitle("chugsql: batched INSERT loader")
	ui.PrintSubtitle("CSV / XLSX / Postgres into SQL Server, SQLite or ClickHouse")
	fmt.Println()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.StyledLog.Error("Command failed: "+err.Error(), zap.Error(err))
		logx.Sync()
		os.Exit(1)
	}
	logx.Sync()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseLogging, "verbose", "v", false, "Enable verbose logging (info and debug entries)")
}
