package cmd

import (
	"fmt"

	"github.com/msomdec/travelupa/internal/domain"
	"github.com/msomdec/travelupa/internal/seed"
	"github.com/msomdec/travelupa/internal/service"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty catalog with sample destinations",
		Long: `Writes the bundled sample destinations, or those from a YAML file, into
the catalog. Nothing is written when the catalog already has destinations.`,
		Example: `  # Seed the built-in destinations
  travelupa seed

  # Seed from a custom file
  travelupa seed --file destinations.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var records []domain.DestinationRecord
			if file != "" {
				records, err = seed.LoadFile(file)
			} else {
				records, err = seed.Default()
			}
			if err != nil {
				return err
			}

			st, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			destinations := service.NewDestinationService(st.catalog, nil)
			n, err := destinations.Seed(cmd.Context(), records)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog already populated, nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d destination(s)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with destinations (default: built-in set)")

	return cmd
}
