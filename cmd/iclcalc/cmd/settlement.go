package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/warp/icl-engine/api"
	"github.com/warp/icl-engine/engine"
)

var flagSettlementDate string

var settlementCmd = &cobra.Command{
	Use:   "settlement",
	Short: "Quote the amount that closes the loan on a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(cmd)
		if err != nil {
			return err
		}
		closure, err := dateFlag(s, flagSettlementDate)
		if err != nil {
			return err
		}
		res, err := s.svc.Settlement(cmd.Context(), s.accountID, closure)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, api.NewSettlementDTO(res))
		}
		printSettlement(out, res)
		return nil
	},
}

func init() {
	settlementCmd.Flags().StringVar(&flagSettlementDate, "date", "", "Closure date (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(settlementCmd)
}

func printSettlement(out io.Writer, r engine.SettlementResult) {
	w := 50
	fmt.Fprintln(out)
	fmt.Fprintln(out, center("SETTLEMENT ON "+r.ClosureDate.String(), w))
	fmt.Fprintln(out)

	row := func(label, value string) {
		fmt.Fprintf(out, "  %-*s%18s\n", w-20, label, value)
	}
	row("Outstanding", amount(r.Outstanding))
	row(fmt.Sprintf("Interest (%d days)", r.AdditionalDays), amount(r.AccruedInterest))
	if r.PenaltyAmount.IsPositive() {
		row(fmt.Sprintf("Penalty (%d days overdue)", r.OverdueDays), amount(r.PenaltyAmount))
	}
	row("TDS", amount(r.TDS))
	fmt.Fprintf(out, "%*s%s\n", w-16, "", "══════════════")
	row("Total settlement", amount(r.TotalSettlement))
}
