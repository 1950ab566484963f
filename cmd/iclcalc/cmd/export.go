package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/icl-engine/export"
)

var flagExportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the timeline as an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(cmd)
		if err != nil {
			return err
		}
		a, tl, err := s.svc.Timeline(cmd.Context(), s.accountID)
		if err != nil {
			return err
		}

		f, err := os.Create(flagExportOut)
		if err != nil {
			return err
		}
		if err := export.WriteTimeline(f, a, tl); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(tl.Entries), flagExportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&flagExportOut, "out", "o", "timeline.xlsx", "Output file")
	rootCmd.AddCommand(exportCmd)
}
