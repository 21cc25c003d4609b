package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
	"macrocast-backend/services/etl/db"

	"github.com/spf13/cobra"
)

var indicatorsFile string

func init() {
	indicatorsCmd.Flags().StringVar(&indicatorsFile, "file", "indicators.csv", "csv with columns institution,abbreviation,name,group,description,unit")
	rootCmd.AddCommand(indicatorsCmd)
}

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "Imports indicators under their institutions, skipping ones already present.",
	Run: func(cmd *cobra.Command, args []string) {
		rows, err := readCsv(indicatorsFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		imported, skipped := 0, 0
		for _, row := range rows {
			// the owning institution must be imported first
			inst, err := st.GetInstitution(cmd.Context(), row["institution"])
			if err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}

			_, err = st.Queries().GetIndicatorByCode(cmd.Context(), db.GetIndicatorByCodeParams{
				InstInstid:   inst.Instid,
				Abbreviation: row["abbreviation"],
			})
			if err == nil {
				skipped++
				continue
			}
			if !errors.Is(err, sql.ErrNoRows) {
				fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}

			now := time.Now().Unix()
			err = st.Queries().CreateIndicator(cmd.Context(), db.CreateIndicatorParams{
				InstInstid:   inst.Instid,
				Abbreviation: row["abbreviation"],
				Name:         row["name"],
				Group:        row["group"],
				Description:  row["description"],
				Unit:         row["unit"],
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}
			imported++
		}

		fmt.Printf("indicators: %d imported, %d already present\n", imported, skipped)
	},
}
