package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	"macrocast-backend/services/etl/db"

	"github.com/spf13/cobra"
)

var areasFile string

func init() {
	areasCmd.Flags().StringVar(&areasFile, "file", "areas.csv", "csv with columns code,name,description,currency,population")
	rootCmd.AddCommand(areasCmd)
}

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Imports geographic areas, skipping ones already present.",
	Run: func(cmd *cobra.Command, args []string) {
		rows, err := readCsv(areasFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		imported, skipped := 0, 0
		for _, row := range rows {
			_, err := st.Queries().GetAreaByCode(cmd.Context(), row["code"])
			if err == nil {
				skipped++
				continue
			}
			if !errors.Is(err, sql.ErrNoRows) {
				fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}

			var population sql.NullInt64
			if row["population"] != "" {
				parsed, err := strconv.ParseInt(row["population"], 10, 64)
				if err != nil {
					fmt.Fprintf(os.Stderr, "area %s: bad population %q\n", row["code"], row["population"])
					os.Exit(1)
				}
				population = sql.NullInt64{Int64: parsed, Valid: true}
			}

			now := time.Now().Unix()
			err = st.Queries().CreateArea(cmd.Context(), db.CreateAreaParams{
				Code:        row["code"],
				Name:        row["name"],
				Description: row["description"],
				Currency:    row["currency"],
				Population:  population,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}
			imported++
		}

		fmt.Printf("areas: %d imported, %d already present\n", imported, skipped)
	},
}
