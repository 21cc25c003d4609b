package cmd

import (
	"fmt"
	"os"
	"time"
	"macrocast-backend/services/etl/pipeline"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	backfillSource string
	fromYearFlag   int
	toYearFlag     int
)

func init() {
	backfillCmd.Flags().StringVar(&backfillSource, "source", "", "quarterly source to sweep: ecb or philadelphia")
	backfillCmd.Flags().IntVar(&fromYearFlag, "from-year", 0, "first survey year of the sweep")
	backfillCmd.Flags().IntVar(&toYearFlag, "to-year", 0, "last survey year of the sweep, inclusive")
	backfillCmd.MarkFlagRequired("source")
	backfillCmd.MarkFlagRequired("from-year")
	backfillCmd.MarkFlagRequired("to-year")
	rootCmd.AddCommand(backfillCmd)
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Sweeps every quarter of a year range through a scraped source.",
	Run: func(cmd *cobra.Command, args []string) {
		if backfillSource != "ecb" && backfillSource != "philadelphia" {
			fmt.Fprintf(os.Stderr, "backfill only sweeps the quarterly sources, got %q\n", backfillSource)
			os.Exit(1)
		}
		if fromYearFlag > toYearFlag {
			fmt.Fprintf(os.Stderr, "from-year %d is after to-year %d\n", fromYearFlag, toYearFlag)
			os.Exit(1)
		}

		var rows []table.Row
		for year := fromYearFlag; year <= toYearFlag; year++ {
			for quarter := 1; quarter <= 4; quarter++ {
				src, err := newSource(backfillSource, year, quarter)
				if err != nil {
					fmt.Fprintln(os.Stderr, err.Error())
					os.Exit(1)
				}

				// a quarter's page may simply not exist yet; keep
				// sweeping and report it in the summary
				result, err := runSource(cmd.Context(), src, pipeline.ModeETL)
				outcome := outcomeLabel(result.Outcome)
				if err != nil {
					outcome = err.Error()
				}
				rows = append(rows, table.Row{
					src.Name(), src.Slug(), outcome, result.Inserted,
				})

				// courtesy delay between requests to the same host
				time.Sleep(2 * time.Second)
			}
		}

		renderSummary(rows)
	},
}
