package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iceXai/ccip-xo-id/internal/monitoring"
	"github.com/iceXai/ccip-xo-id/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Match the configured periods and write their outputs",
	Long: `Run loads both carriers for every configured period, matches them in
the configured mode, annotates matches with L2i parameters, and writes
one CSV per period plus a row in the runs database. Periods whose output
already exists are skipped unless override is set. Periods with missing
or unreadable archives are recorded as failed and the run continues;
only an invalid configuration fails the process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		pl, err := pipeline.New(cfg)
		if err != nil {
			return err
		}
		defer pl.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logf := monitoring.Prefixed("xoid")
		sum, err := pl.Run(ctx)
		if err != nil {
			logf("run interrupted: %v", err)
			return nil
		}
		if sum.Failed > 0 {
			logf("%d of %d periods failed; see the runs database for details", sum.Failed, sum.Periods)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
