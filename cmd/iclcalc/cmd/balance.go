package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/warp/icl-engine/api"
	"github.com/warp/icl-engine/engine"
)

var flagBalanceDate string

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the balance on a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(cmd)
		if err != nil {
			return err
		}
		target, err := dateFlag(s, flagBalanceDate)
		if err != nil {
			return err
		}
		b, err := s.svc.BalanceAt(cmd.Context(), s.accountID, target)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, api.NewBalanceDTO(b))
		}
		printBalance(out, b)
		return nil
	},
}

func init() {
	balanceCmd.Flags().StringVar(&flagBalanceDate, "date", "", "Target date (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(balanceCmd)
}

func printBalance(out io.Writer, b engine.BalanceResult) {
	w := 50
	fmt.Fprintln(out)
	fmt.Fprintln(out, center("BALANCE AS OF "+b.TargetDate.String(), w))
	fmt.Fprintln(out)

	row := func(label, value string) {
		fmt.Fprintf(out, "  %-*s%18s\n", w-20, label, value)
	}
	row("Calculation date", b.CalculationDate.String())
	row("Days from start", fmt.Sprintf("%d", b.DaysFromStart))
	row("Transactions", fmt.Sprintf("%d", b.TransactionCount))
	if b.LastTransactionDate != nil {
		row("Last transaction", b.LastTransactionDate.String())
	}
	fmt.Fprintln(out)
	row("Principal", amount(b.Principal))
	row("Interest (gross)", amount(b.Totals.TotalInterest))
	row("TDS", amount(b.Totals.TDS))
	row("Net interest", amount(b.Totals.NetInterest))
	if b.ExtrapolatedDays > 0 {
		row(fmt.Sprintf("Extrapolated (%d days)", b.ExtrapolatedDays), amount(b.ExtrapolatedInterest))
	}
	row("Outstanding", amount(b.Outstanding))

	if b.IsPredicted {
		fmt.Fprintln(out, "\n  [PREDICTED]")
	}
	if b.IsBeyondEndDate {
		fmt.Fprintln(out, "  [BEYOND END DATE]")
	}
}
