// Package cmd seeds the forecast store's reference entities from csv
// files. Loads only ever insert facts against entities that already
// exist, so institutions, areas and indicators are imported once here.
package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"macrocast-backend/lib/configutil"
	configsqlite "macrocast-backend/lib/configutil/sqlite"
	"macrocast-backend/lib/serviceutil"
	"macrocast-backend/lib/telemetry"
	"macrocast-backend/services/etl/db"
	"macrocast-backend/services/etl/store"

	"github.com/spf13/cobra"
)

type Config struct {
	Database configsqlite.Struct `json:"database"`
}

var st store.Store

var rootCmd = &cobra.Command{
	Use:   "install",
	Short: "install imports the forecast store's reference entities from csv files.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(false)
		telemetry.SetupFromEnv(cmd.Context(), "install")

		config, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		database, err := config.Database.OpenDB(db.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open forecast store", err)
		}
		st = store.NewStore(database)
	},
}

func Execute() {
	ctx := serviceutil.SignalContext()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readCsv loads one reference file into column-keyed rows.
func readCsv(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	in := csv.NewReader(f)
	header, err := in.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var rows []map[string]string
	records, err := in.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, record := range records {
		row := map[string]string{}
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
