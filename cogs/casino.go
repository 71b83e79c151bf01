package cogs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"econbot/casino"
	"econbot/utils"
)

func (b *Bot) wager(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, kind casino.Kind, p casino.Params) error {
	_, opts := commandOptions(i)
	accountID := utils.UserID(i)
	bet, err := b.amount(ctx, accountID, opts.String("amount"))
	if err != nil {
		return err
	}
	res, err := b.Casino.ExecuteWager(ctx, kind, accountID, bet, p)
	if err != nil {
		return err
	}
	return b.respond(s, i, wagerEmbed(kind, bet, res))
}

func (b *Bot) handleRoulette(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	_, opts := commandOptions(i)
	return b.wager(ctx, s, i, casino.Roulette, casino.Params{Bet: opts.String("bet")})
}

func (b *Bot) handleSlots(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	_, opts := commandOptions(i)
	return b.wager(ctx, s, i, casino.Slots, casino.Params{Preset: opts.String("machine")})
}

func (b *Bot) handleDice(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	_, opts := commandOptions(i)
	return b.wager(ctx, s, i, casino.Dice, casino.Params{Preset: opts.String("table"), Target: int(opts.Int("target", 7))})
}

func (b *Bot) handleCraps(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	_, opts := commandOptions(i)
	return b.wager(ctx, s, i, casino.Craps, casino.Params{Bet: opts.String("bet")})
}

// wagerEmbed renders a settled one-shot wager
func wagerEmbed(kind casino.Kind, bet int64, res *casino.Result) *discordgo.MessageEmbed {
	title := strings.ToUpper(string(kind[:1])) + string(kind[1:])
	color, outcome := utils.ColorLoss, "You lost."
	switch {
	case res.Payout > bet:
		color, outcome = utils.ColorWin, fmt.Sprintf("You won **%s** %s!", utils.FormatChips(res.Payout-bet), utils.CoinsEmoji)
	case res.Payout == bet:
		color, outcome = utils.ColorPush, "Push. Your bet was returned."
	case res.Payout > 0:
		outcome = fmt.Sprintf("Partial return of **%s** %s.", utils.FormatChips(res.Payout), utils.CoinsEmoji)
	}
	embed := utils.CreateBrandedEmbed(title, outcome, color)
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Bet", Value: utils.FormatChips(bet), Inline: true},
		&discordgo.MessageEmbedField{Name: "Multiplier", Value: fmt.Sprintf("%gx", res.Multiplier), Inline: true},
		&discordgo.MessageEmbedField{Name: "Balance", Value: utils.FormatChips(res.NewBalance) + " " + utils.CoinsEmoji, Inline: true},
	)
	if d := formatDetails(res.Details); d != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Roll", Value: d})
	}
	if res.Experience.LeveledUp {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Level Up", Value: fmt.Sprintf("You reached level **%d**!", res.Experience.NewLevel)})
	}
	return embed
}

// formatDetails prints resolver details in a stable order
func formatDetails(details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := details[k]
		if reels, ok := v.([]string); ok {
			v = strings.Join(reels, " ")
		}
		parts = append(parts, fmt.Sprintf("%s: `%v`", k, v))
	}
	return strings.Join(parts, "\n")
}
