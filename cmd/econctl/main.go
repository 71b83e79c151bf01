// Command econctl is the operator CLI: it talks to the same database as the
// bot and runs ledger reads, grants, exports and the maintenance sweep.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"econbot/bank"
	"econbot/config"
	"econbot/database"
	"econbot/economy"
	"econbot/games"
	"econbot/market"
	"econbot/worker"
)

const commandTimeout = 2 * time.Minute

// app is opened lazily so `econctl presets` works without a database
type app struct {
	cfg    config.Config
	store  database.Store
	ledger *economy.Ledger
	log    *slog.Logger
}

func (a *app) open(ctx context.Context) error {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := database.Open(ctx, database.Options{
		Driver:      cfg.DatabaseDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.cfg = cfg
	a.store = store
	a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	a.ledger = economy.NewLedger(store, a.log, nil)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:          "econctl",
		Short:        "Operate the econbot ledger",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["db"] == "none" {
				return nil
			}
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) { a.close() },
	}
	root.AddCommand(
		newBalanceCmd(a),
		newGrantCmd(a),
		newHistoryCmd(a),
		newLeaderboardCmd(a),
		newExportCmd(a),
		newInspectCmd(),
		newSweepCmd(a),
		newPresetsCmd(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := root.ExecuteContext(ctx); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := a.ledger.Account(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printAccount(acct)
			return nil
		},
	}
}

func newGrantCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "grant <account> <delta>",
		Short: "Credit or debit an account with an admin ledger row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("delta must be an integer: %w", err)
			}
			bal, err := a.ledger.Grant(cmd.Context(), args[0], delta, reason)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s %s, balance now %s", args[0], signed(delta), number(bal)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "econctl grant", "Ledger description")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <account>",
		Short: "Recent ledger rows for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.ledger.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			printTransactions(rows)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Rows to show (max 100)")
	return cmd
}

func newLeaderboardCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Richest accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.ledger.Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printLeaderboard(rows)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Rows to show (max 50)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		out   string
		since string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger as zstd-compressed JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseSince(since)
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			n, err := a.ledger.Export(cmd.Context(), f, from)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("exported %d rows to %s", n, out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "ledger.jsonl.zst", "Output file")
	cmd.Flags().StringVar(&since, "since", "", "Only rows at or after this RFC3339 time or duration ago (e.g. 72h)")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "inspect <export file>",
		Short:       "Summarise an export file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"db": "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			s, err := summarise(f)
			if err != nil {
				return err
			}
			printSummary(s)
			return nil
		},
	}
}

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the maintenance sweep once",
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := config.LoadPresets(a.cfg.PresetsPath)
			if err != nil {
				return err
			}
			mkt := market.NewService(a.ledger, presets.Cards, market.DefaultConfig(a.cfg.PackPrice), games.NewRNG(), a.log)
			bk := bank.NewService(a.ledger, a.log)
			w := worker.New(a.cfg.WorkerInterval, a.log, nil, worker.Standard(mkt, bk, economy.NewCooldownGate(a.ledger))...)
			printCounts(w.RunOnce(cmd.Context()))
			return nil
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "presets [file]",
		Short:       "Validate a presets file, or the embedded defaults",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"db": "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			p, err := config.LoadPresets(path)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("presets v%d ok: %d slot machines, %d dice tables, %d blackjack tables, %d cards",
				p.Version, len(p.Slots), len(p.Dice), len(p.Blackjack), len(p.Cards.Catalog)))
			return nil
		},
	}
}

// parseSince accepts an RFC3339 timestamp or a duration back from now
func parseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("--since must be RFC3339 or a positive duration, got %q", raw)
	}
	return time.Now().Add(-d), nil
}
