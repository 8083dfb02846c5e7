package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/compliance-engine/api"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/store/sqlite"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one overdue, reminder and recurrence sweep and print the summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.New(cfg.DB)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		s := api.NewSweepScheduler(store, api.LogNotifier{}, generic.SystemClock{})
		configureSweeper(s, cfg)
		summary, err := s.Sweep(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}
