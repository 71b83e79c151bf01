package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"econbot/models"
)

// CreateBrandedEmbed creates a basic embed with bot branding
func CreateBrandedEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: FooterText},
	}
}

func ErrorEmbed(message string) *discordgo.MessageEmbed {
	return CreateBrandedEmbed("Error", message, ColorLoss)
}

func SuccessEmbed(title, message string) *discordgo.MessageEmbed {
	return CreateBrandedEmbed(title, message, ColorSuccess)
}

// CooldownEmbed tells the user when an action becomes available again
func CooldownEmbed(action string, remaining time.Duration) *discordgo.MessageEmbed {
	return CreateBrandedEmbed(
		"Slow down",
		fmt.Sprintf("You can %s again in **%s**.", action, FormatDuration(remaining)),
		ColorWarning,
	)
}

// InsufficientFundsEmbed explains a rejected debit
func InsufficientFundsEmbed(required, balance int64, what string) *discordgo.MessageEmbed {
	embed := CreateBrandedEmbed(
		"Not Enough Coins",
		fmt.Sprintf("You don't have enough coins for %s.\n**Your balance:** %s %s\n**Required:** %s %s",
			what, FormatChips(balance), CoinsEmoji, FormatChips(required), CoinsEmoji),
		ColorLoss,
	)
	embed.Fields = []*discordgo.MessageEmbedField{{
		Name:  "How to Get More Coins",
		Value: "• `/daily` once a day\n• `/work` every hour\n• `/vote` on top.gg",
	}}
	return embed
}

// ProfileEmbed renders an account's balances, level and lifetime stats
func ProfileEmbed(acct *models.Account, user *discordgo.User) *discordgo.MessageEmbed {
	level := acct.Level()
	rank := RankForLevel(level)
	embed := CreateBrandedEmbed(fmt.Sprintf("%s %s", rank.Icon, displayName(user, acct.ID)), rank.Name, rank.Color)
	if user != nil {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("128")}
	}

	progress := fmt.Sprintf("Level **%d**\n%s\n%s XP to next level",
		level, LevelProgress(acct.Experience, 12), FormatNumber(acct.XPToNextLevel()))
	if next, ok := NextRank(level); ok {
		progress += fmt.Sprintf("\nNext rank: %s %s at level %d", next.Icon, next.Name, next.MinLevel)
	}

	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Wallet", Value: FormatChips(acct.Balance) + " " + CoinsEmoji, Inline: true},
		{Name: "Bank", Value: FormatChips(acct.BankBalance) + " " + CoinsEmoji, Inline: true},
		{Name: "Net Worth", Value: FormatChips(acct.NetWorth()) + " " + CoinsEmoji, Inline: true},
		{Name: "Progress", Value: progress},
		{Name: "Games", Value: fmt.Sprintf("%d played, %d won (%.1f%%)", acct.GamesPlayed, acct.GamesWon, acct.WinRate()), Inline: true},
		{Name: "Wagered / Won", Value: FormatChips(acct.TotalWagered) + " / " + FormatChips(acct.TotalWon), Inline: true},
	}
	return embed
}

// LeaderboardEmbed lists accounts by net worth. name resolves an id to a
// display string and may be nil.
func LeaderboardEmbed(rows []models.Account, name func(id string) string) *discordgo.MessageEmbed {
	if name == nil {
		name = func(id string) string { return "<@" + id + ">" }
	}
	var b strings.Builder
	for i, a := range rows {
		medal := fmt.Sprintf("`#%d`", i+1)
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}
		fmt.Fprintf(&b, "%s %s: **%s** %s\n", medal, name(a.ID), FormatChips(a.NetWorth()), CoinsEmoji)
	}
	if b.Len() == 0 {
		b.WriteString("Nobody has any coins yet.")
	}
	return CreateBrandedEmbed("Leaderboard", b.String(), BotColor)
}

// HistoryEmbed lists ledger rows, newest first
func HistoryEmbed(rows []models.Transaction) *discordgo.MessageEmbed {
	var b strings.Builder
	for _, t := range rows {
		fmt.Fprintf(&b, "`%s` **%s** %s <t:%d:R>\n", t.Kind, FormatSigned(t.Amount), t.Description, t.CreatedAt.Unix())
	}
	if b.Len() == 0 {
		b.WriteString("No transactions yet.")
	}
	return CreateBrandedEmbed("Recent Transactions", b.String(), BotColor)
}

func displayName(user *discordgo.User, fallback string) string {
	if user == nil {
		return fallback
	}
	return user.Username
}

// FormatChips formats a coin amount with thousands separators
func FormatChips(amount int64) string {
	return FormatNumber(amount)
}

func FormatNumber(num int64) string {
	if num < 0 {
		return "-" + FormatNumber(-num)
	}
	str := strconv.FormatInt(num, 10)
	if len(str) <= 3 {
		return str
	}
	var result strings.Builder
	for i, r := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(r)
	}
	return result.String()
}

// FormatSigned is FormatNumber with an explicit plus sign on gains
func FormatSigned(n int64) string {
	if n > 0 {
		return "+" + FormatNumber(n)
	}
	return FormatNumber(n)
}

// FormatDuration renders a cooldown as "1d 2h", "3h 5m", "4m 10s" or "9s"
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	d = d.Round(time.Second)
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60
	seconds := int(d/time.Second) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
