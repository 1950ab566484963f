package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/warp/icl-engine/api"
	"github.com/warp/icl-engine/engine"
	"github.com/warp/icl-engine/factory"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Print the interest timeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(cmd)
		if err != nil {
			return err
		}
		a, tl, err := s.svc.Timeline(cmd.Context(), s.accountID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, api.NewTimelineDTO(factory.NewAccountFactory(), a, tl))
		}
		printTimeline(out, a, tl)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(timelineCmd)
}

func printTimeline(out io.Writer, a engine.Account, tl engine.Timeline) {
	w := 128
	fmt.Fprintln(out)
	fmt.Fprintln(out, center(strings.ToUpper(a.Name)+" - "+tl.Strategy, w))
	fmt.Fprintln(out, center(strings.Repeat("=", 20), w))
	fmt.Fprintln(out)

	fmt.Fprintf(out, "  %-10s %-30s %14s %14s %5s %14s %12s %10s %12s\n",
		"DATE", "DESCRIPTION", "PAID", "RECEIVED", "DAYS", "OUTSTANDING", "INTEREST", "TDS", "NET")
	fmt.Fprintf(out, "  %s\n", strings.Repeat("─", w-4))

	for _, e := range tl.Entries {
		desc := e.Description
		if len(desc) > 30 {
			desc = desc[:28] + ".."
		}
		days := ""
		interest, tds, net := "", "", ""
		if !e.IsSummary() {
			days = fmt.Sprintf("%d", e.Days)
			interest = amount(e.TotalInterest)
			tds = amount(e.TDS)
			net = amount(e.NetInterest)
		} else {
			desc = "  " + desc
			net = amount(e.NetInterest)
		}
		fmt.Fprintf(out, "  %-10s %-30s %14s %14s %5s %14s %12s %10s %12s\n",
			e.Date, desc, blankZero(e.Paid), blankZero(e.Received), days,
			amount(e.Outstanding), interest, tds, net)
	}

	tot := tl.Totals()
	fmt.Fprintf(out, "  %s\n", strings.Repeat("─", w-4))
	fmt.Fprintf(out, "  %-41s %14s %14s %5s %14s %12s %10s %12s\n", "TOTALS",
		amount(tot.Paid), amount(tot.Received), "", amount(tl.ClosingBalance()),
		amount(tot.TotalInterest), amount(tot.TDS), amount(tot.NetInterest))

	fmt.Fprintf(out, "\n  Status: %s", tl.Status)
	if tl.OverdueDays > 0 {
		fmt.Fprintf(out, " (%d days overdue)", tl.OverdueDays)
	}
	fmt.Fprintf(out, " as of %s\n", tl.AsOf)
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func blankZero(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return amount(d)
}

func center(s string, w int) string {
	if len(s) >= w {
		return s
	}
	pad := (w - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
