package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iceXai/ccip-xo-id/internal/report"
	"github.com/iceXai/ccip-xo-id/internal/track"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render charts for one completed period",
	Long: `Report reads a period's output CSV and renders an HTML page with a
match-location scatter and distribution histograms, plus an optional PNG
quick-look. The period must have been computed by a previous run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		code, err := cmd.Flags().GetString("period")
		if err != nil {
			return err
		}
		p, err := parsePeriod(code)
		if err != nil {
			return err
		}

		b := report.New(cfg)
		path, err := b.WriteHTML(p)
		if err != nil {
			return err
		}
		fmt.Println(path)

		if png, _ := cmd.Flags().GetBool("png"); png {
			path, err := b.WritePNG(p)
			if err != nil {
				return err
			}
			fmt.Println(path)
		}
		return nil
	},
}

// parsePeriod reads the compact yyyymm form used in archive and output
// file names.
func parsePeriod(code string) (track.Period, error) {
	if len(code) != 6 {
		return track.Period{}, fmt.Errorf("period %q: want yyyymm", code)
	}
	year, err := strconv.Atoi(code[:4])
	if err != nil {
		return track.Period{}, fmt.Errorf("period %q: %v", code, err)
	}
	month, err := strconv.Atoi(code[4:])
	if err != nil {
		return track.Period{}, fmt.Errorf("period %q: %v", code, err)
	}
	p := track.Period{Year: year, Month: month}
	if !p.Valid() {
		return track.Period{}, fmt.Errorf("period %q is not a valid calendar month", code)
	}
	return p, nil
}

func init() {
	reportCmd.Flags().String("period", "", "period to render (yyyymm)")
	reportCmd.Flags().Bool("png", false, "also write the PNG quick-look")
	rootCmd.AddCommand(reportCmd)
}
