// Command xoid identifies coincident measurements between two satellite
// altimetry missions: orbit crossovers (xo) and near-contemporaneous
// overlapping passes (otm), read from monthly L1p archives and
// annotated with L2i geophysical parameters.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/iceXai/ccip-xo-id/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "xoid",
	Short: "Crossover and overlapping-pass identification for altimetry missions",
	Long: `xoid matches the ground tracks of two satellite altimetry missions over
a polar study region, one calendar month at a time. In crossover mode it
finds the exact points where ascending and descending arcs intersect; in
overlap mode it pairs near-contemporaneous measurements within a spatial
buffer. Matches are written as one CSV per period and annotated with
configured L2i parameters.`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "run configuration file")
}

// loadConfig reads and validates the file named by --config. All
// failures surface as configuration validation errors.
func loadConfig(cmd *cobra.Command) (*config.RunConfig, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
