package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the run configuration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fmt.Printf("configuration valid: %s vs %s, mode %s, aoi %s, %d periods, %d parameters\n",
			cfg.RefMission, cfg.MatchMission, cfg.Mode, cfg.AOI, len(cfg.Periods), len(cfg.Parameters))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
