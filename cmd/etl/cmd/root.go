package cmd

import (
	"fmt"
	"os"
	"macrocast-backend/lib/configutil"
	configsqlite "macrocast-backend/lib/configutil/sqlite"
	"macrocast-backend/lib/serviceutil"
	"macrocast-backend/lib/telemetry"
	"macrocast-backend/services/etl/db"
	"macrocast-backend/services/etl/load"
	"macrocast-backend/services/etl/pipeline"
	"macrocast-backend/services/etl/store"

	"github.com/spf13/cobra"
)

type Config struct {
	Database configsqlite.Struct `json:"database"`
	// directory the raw and normalized artifacts are written under
	DataDir string `json:"data_dir"`
	// rows per insert transaction, defaults to 1000
	LoadBatchSize int `json:"load_batch_size"`
	// change-detection tolerance for historical values, exact
	// equality when zero
	LoadTolerance float64 `json:"load_tolerance"`
}

var pipe pipeline.Pipeline
var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "etl",
	Short: "etl pulls macroeconomic forecasts from their publishers into the forecast store.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verboseFlag)
		telemetry.SetupFromEnv(cmd.Context(), "etl")
		telemetry.InstrumentPerfStats(cmd.Context())

		config, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if config.DataDir == "" {
			config.DataDir = "data"
		}

		database, err := config.Database.OpenDB(db.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open forecast store", err)
		}

		pipe = pipeline.Pipeline{
			DataDir: config.DataDir,
			Store:   store.NewStore(database),
			Load: load.Options{
				BatchSize: config.LoadBatchSize,
				Tolerance: config.LoadTolerance,
			},
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log at debug level")
}

func Execute() {
	ctx := serviceutil.SignalContext()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
