package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/aprilgo/internal/family"
)

// familiesCmd lists the tag families compiled into this binary.
var familiesCmd = &cobra.Command{
	Use:   "families",
	Short: "List the tag families compiled into this binary",
	Long: `List the tag families this binary can detect.

36h11 is always available. Other families are enabled at build time:
  go build -tags=apriltag_16h5 ./cmd/aprilgo
  go build -tags=apriltag_all ./cmd/aprilgo`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		all := family.All()

		switch format {
		case "json":
			type entry struct {
				Name               string `json:"name"`
				Bits               int    `json:"bits"`
				MinHammingDistance int    `json:"min_hamming_distance"`
				Codes              int    `json:"codes"`
				MaxID              int    `json:"max_id"`
			}
			entries := make([]entry, len(all))
			for i, f := range all {
				entries[i] = entry{f.Name, f.Bits(), f.MinHammingDistance, f.CodeCount, f.MaxID()}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		case "text", "":
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "FAMILY\tBITS\tMIN HAMMING\tCODES\tIDS")
			for _, f := range all {
				marker := ""
				if f.Name == family.Default {
					marker = " (default)"
				}
				_, _ = fmt.Fprintf(tw, "%s%s\t%d\t%d\t%d\t0-%d\n", f.Name, marker, f.Bits(), f.MinHammingDistance, f.CodeCount, f.MaxID())
			}
			return tw.Flush()
		default:
			return fmt.Errorf("unsupported format %q (supported: text, json)", format)
		}
	},
}

func init() {
	rootCmd.AddCommand(familiesCmd)
	familiesCmd.Flags().String("format", "text", "output format: text or json")
}
