package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"

	"econbot/economy"
	"econbot/models"
	"econbot/utils"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) { success.Println(msg) }
func printError(msg string)   { danger.Println("error:", msg) }

func number(n int64) string { return utils.FormatNumber(n) }
func signed(n int64) string { return utils.FormatSigned(n) }

func amountColor(n int64) *color.Color {
	if n < 0 {
		return danger
	}
	return success
}

func printAccount(a *models.Account) {
	accent.Printf("Account %s\n", a.ID)
	fmt.Printf("  wallet    %s\n", number(a.Balance))
	fmt.Printf("  bank      %s\n", number(a.BankBalance))
	fmt.Printf("  level     %d (%s xp)\n", a.Level(), number(a.Experience))
	fmt.Printf("  games     %d played, %d won\n", a.GamesPlayed, a.GamesWon)
	fmt.Printf("  wagered   %s, won %s\n", number(a.TotalWagered), number(a.TotalWon))
	neutral.Printf("  created   %s\n", a.CreatedAt.Format(time.RFC3339))
}

func printTransactions(rows []models.Transaction) {
	if len(rows) == 0 {
		neutral.Println("no transactions")
		return
	}
	for _, t := range rows {
		fmt.Printf("%s  %-10s ", t.CreatedAt.Format("2006-01-02 15:04:05"), t.Kind)
		amountColor(t.Amount).Printf("%12s", signed(t.Amount))
		fmt.Printf("  -> %-12s %s\n", number(t.BalanceAfter), t.Description)
	}
}

func printLeaderboard(rows []models.Account) {
	for i, a := range rows {
		accent.Printf("%3d. ", i+1)
		fmt.Printf("%-22s %s\n", a.ID, number(a.NetWorth()))
	}
}

func printCounts(counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-18s %d\n", name, counts[name])
	}
}

// summary is the per-kind breakdown of an export file
type summary struct {
	Rows     int
	Accounts int
	ByKind   map[models.TransactionKind]int64
	First    time.Time
	Last     time.Time
}

func summarise(r io.Reader) (summary, error) {
	s := summary{ByKind: make(map[models.TransactionKind]int64)}
	accounts := make(map[string]struct{})
	err := economy.ReadExport(r, func(t models.Transaction) error {
		s.Rows++
		s.ByKind[t.Kind] += t.Amount
		accounts[t.AccountID] = struct{}{}
		if s.First.IsZero() || t.CreatedAt.Before(s.First) {
			s.First = t.CreatedAt
		}
		if t.CreatedAt.After(s.Last) {
			s.Last = t.CreatedAt
		}
		return nil
	})
	s.Accounts = len(accounts)
	return s, err
}

func printSummary(s summary) {
	accent.Printf("%d rows across %d accounts\n", s.Rows, s.Accounts)
	if s.Rows == 0 {
		return
	}
	neutral.Printf("%s .. %s\n", s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339))
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	var net int64
	for _, k := range kinds {
		v := s.ByKind[models.TransactionKind(k)]
		net += v
		fmt.Printf("  %-10s ", k)
		amountColor(v).Println(signed(v))
	}
	fmt.Printf("  %-10s ", "net")
	amountColor(net).Println(signed(net))
}
