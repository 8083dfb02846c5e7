package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/warp/compliance-engine/factory"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/store/sqlite"
)

var (
	seedCatalog string
	seedTenant  string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a lookup and learning-item catalog into the database",
	Long: `Upserts global lookup categories and values from a catalog file, or
from the built-in catalog when --catalog is omitted. With --tenant the
catalog's learning items are created for that tenant too.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := factory.DefaultCatalogJSON
		if seedCatalog != "" {
			data, err := os.ReadFile(seedCatalog)
			if err != nil {
				return fmt.Errorf("read catalog: %w", err)
			}
			raw = string(data)
		}

		f := factory.NewCatalogFactory()
		catalog, err := f.ParseCatalog(raw)
		if err != nil {
			return err
		}

		store, err := sqlite.New(cfg.DB)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		summary, err := f.Apply(cmd.Context(), catalog, store, store, generic.TenantID(seedTenant), generic.SystemClock{}.Now())
		if err != nil {
			return err
		}
		log.Info().
			Str("tenant", seedTenant).
			Int("categories", summary.Categories).
			Int("values", summary.Values).
			Int("learningItems", summary.LearningItems).
			Msg("Catalog applied")
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedCatalog, "catalog", "", "catalog JSON file (default: built-in catalog)")
	seedCmd.Flags().StringVar(&seedTenant, "tenant", "", "tenant that receives the learning items")
}
