package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iceXai/ccip-xo-id/internal/db"
)

var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "List configured periods with their cached state",
	Long: `Periods prints one line per configured period: its code, whether its
output CSV already exists (cached or pending), and the most recent run
recorded for it, if any.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		// The runs database is only opened when it already exists; a
		// listing must not create output state.
		var store *db.RunStore
		if _, err := os.Stat(cfg.RunsDBPath()); err == nil {
			runsDB, err := db.Open(cfg.RunsDBPath())
			if err != nil {
				return err
			}
			defer runsDB.Close()
			store = db.NewRunStore(runsDB)
		}

		for _, p := range cfg.Periods {
			state := "pending"
			if _, err := os.Stat(cfg.OutputPath(p)); err == nil {
				state = "cached"
			}
			line := fmt.Sprintf("%s  %-7s", p.Code(), state)
			if store != nil {
				run, err := store.LatestByPeriod(p.Code())
				if err != nil {
					return err
				}
				if run != nil {
					line += fmt.Sprintf("  last run %s: %s, %d matches",
						time.Unix(0, run.StartedAt).UTC().Format("2006-01-02 15:04"), run.Status, run.MatchCount)
				}
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(periodsCmd)
}
