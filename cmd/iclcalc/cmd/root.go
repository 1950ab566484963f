package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/icl-engine/engine"
	"github.com/warp/icl-engine/factory"
	"github.com/warp/icl-engine/loan"
	"github.com/warp/icl-engine/loan/store"
	"github.com/warp/icl-engine/observability"
)

var (
	flagFile     string
	flagToday    string
	flagJSON     bool
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "iclcalc",
	Short: "Offline ICL interest calculator",
	Long: `Computes timelines, balances and settlements for an inter-corporate loan
described in a JSON file:

  {"account": {...}, "transactions": [{"date": "2023-01-01", "paid": "100000"}]}

Missing account settings take the same defaults as the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagFile, "file", "f", "", "Account JSON file (- for stdin)")
	rootCmd.PersistentFlags().StringVar(&flagToday, "today", "", "Override today's date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of a table")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "error", "Log level")
	rootCmd.MarkPersistentFlagRequired("file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// session is a loaded account inside a throwaway in-memory service.
type session struct {
	svc       *loan.Service
	accountID string
}

func load(ctx context.Context, in io.Reader) (*session, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	a, txs, err := factory.NewAccountFactory().ParseInput(data)
	if err != nil {
		return nil, err
	}

	eng := engine.New()
	if flagToday != "" {
		today, err := engine.ParseDate(flagToday)
		if err != nil {
			return nil, fmt.Errorf("--today: %w", err)
		}
		eng.Now = func() engine.Date { return today }
	}

	svc := loan.NewService(store.NewTxMemory(), eng, observability.NewLogger(flagLogLevel), nil)
	if a.ID == "" {
		a.ID = "icl"
	}
	created, err := svc.CreateAccount(ctx, a)
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		if _, err := svc.AddTransaction(ctx, created.ID, tx); err != nil {
			return nil, err
		}
	}
	return &session{svc: svc, accountID: created.ID}, nil
}

func openInput(cmd *cobra.Command) (io.ReadCloser, error) {
	if flagFile == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(flagFile)
}

func loadSession(cmd *cobra.Command) (*session, error) {
	in, err := openInput(cmd)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return load(cmd.Context(), in)
}

// dateFlag parses a --date value, defaulting to the engine's today.
func dateFlag(s *session, value string) (engine.Date, error) {
	if value == "" {
		return s.svc.Engine.Today(), nil
	}
	d, err := engine.ParseDate(value)
	if err != nil {
		return engine.Date{}, fmt.Errorf("--date: %w", err)
	}
	return d, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
