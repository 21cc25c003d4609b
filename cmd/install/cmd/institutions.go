package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"
	"macrocast-backend/services/etl/db"
	"macrocast-backend/services/etl/store"

	"github.com/spf13/cobra"
)

var institutionsFile string

func init() {
	institutionsCmd.Flags().StringVar(&institutionsFile, "file", "institutions.csv", "csv with columns abbreviation,name,description,url,type,country")
	rootCmd.AddCommand(institutionsCmd)
}

var institutionsCmd = &cobra.Command{
	Use:   "institutions",
	Short: "Imports publishing institutions, skipping ones already present.",
	Run: func(cmd *cobra.Command, args []string) {
		rows, err := readCsv(institutionsFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		imported, skipped := 0, 0
		for _, row := range rows {
			_, err := st.GetInstitution(cmd.Context(), row["abbreviation"])
			if err == nil {
				skipped++
				continue
			}
			var notFound *store.NotFoundError
			if !errors.As(err, &notFound) {
				fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}

			err = st.Queries().CreateInstitution(cmd.Context(), db.CreateInstitutionParams{
				Abbreviation: row["abbreviation"],
				Name:         row["name"],
				Description:  row["description"],
				Url:          row["url"],
				Type:         row["type"],
				Country:      row["country"],
				CreatedAt:    time.Now().Unix(),
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}
			imported++
		}

		fmt.Printf("institutions: %d imported, %d already present\n", imported, skipped)
	},
}
