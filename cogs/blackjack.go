package cogs

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"econbot/games/blackjack"
	"econbot/sessions"
	"econbot/utils"
)

func (b *Bot) handleBlackjack(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	_, opts := commandOptions(i)
	accountID := utils.UserID(i)
	bet, err := b.amount(ctx, accountID, opts.String("amount"))
	if err != nil {
		return err
	}
	v, err := b.Sessions.StartBlackjack(ctx, i.ChannelID, accountID, bet, opts.String("table"))
	if err != nil {
		return err
	}
	return b.respond(s, i, blackjackEmbed(v), blackjackComponents(v)...)
}

func (b *Bot) handleBlackjackButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	action, id := componentTarget(i)
	v, err := b.Sessions.Advance(ctx, id, sessions.Action{Name: action}, utils.UserID(i))
	if err != nil {
		return err
	}
	return utils.UpdateComponentInteraction(s, i, blackjackEmbed(v), blackjackComponents(v))
}

// blackjackEmbed shows both hands. The dealer's hole card is already
// hidden by the view while the player is acting.
func blackjackEmbed(v sessions.View) *discordgo.MessageEmbed {
	bj, _ := v.Public.(sessions.BlackjackView)
	embed := utils.CreateBrandedEmbed("🃏 Blackjack", "", utils.ColorPlaying)

	dealer := fmt.Sprintf("%s\n**Value: %d**", bj.Dealer.String(), bj.DealerValue)
	if bj.Phase == blackjack.PlayerTurn {
		dealer = bj.Dealer.String() + " 🎴"
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "💰 Bet", Value: utils.FormatChips(bj.Bet), Inline: true},
		{Name: "🎯 Your Hand", Value: fmt.Sprintf("%s\n**Value: %d**", bj.Player.String(), bj.PlayerValue), Inline: true},
		{Name: "🏠 Dealer", Value: dealer, Inline: true},
	}
	if bj.Phase != blackjack.Settled {
		return embed
	}

	result := blackjackResultText(bj.Result, strings.HasPrefix(v.Event, "timeout"))
	if bj.Payout > bj.Bet {
		result += fmt.Sprintf("\n**Payout: %s** %s", utils.FormatChips(bj.Payout), utils.CoinsEmoji)
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "🎊 Result", Value: result})
	if bal, ok := v.Balances[bjPlayer(v)]; ok {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Balance", Value: utils.FormatChips(bal) + " " + utils.CoinsEmoji, Inline: true})
	}
	switch bj.Result {
	case blackjack.ResultNatural, blackjack.ResultDealerBust, blackjack.ResultWin:
		embed.Color = utils.ColorWin
	case blackjack.ResultPush:
		embed.Color = utils.ColorPush
	default:
		embed.Color = utils.ColorLoss
	}
	return embed
}

func blackjackResultText(r blackjack.Result, timedOut bool) string {
	var text string
	switch r {
	case blackjack.ResultNatural:
		text = "Blackjack!"
	case blackjack.ResultDealerBust:
		text = "Dealer busts, you win!"
	case blackjack.ResultWin:
		text = "You win!"
	case blackjack.ResultPush:
		text = "Push"
	case blackjack.ResultBust:
		text = "Bust!"
	default:
		text = "Dealer wins"
	}
	if timedOut {
		text += " (auto-stand)"
	}
	return text
}

// bjPlayer recovers the account from a blackjack session id
func bjPlayer(v sessions.View) string {
	return strings.TrimPrefix(v.ID, string(sessions.Blackjack)+":")
}

func blackjackComponents(v sessions.View) []discordgo.MessageComponent {
	bj, _ := v.Public.(sessions.BlackjackView)
	if bj.Phase != blackjack.PlayerTurn {
		return nil
	}
	buttons := []discordgo.MessageComponent{
		utils.CreateButton(utils.CustomID("bj", sessions.ActHit, v.ID), "Hit", discordgo.PrimaryButton, false, &discordgo.ComponentEmoji{Name: "🃏"}),
		utils.CreateButton(utils.CustomID("bj", sessions.ActStand, v.ID), "Stand", discordgo.SecondaryButton, false, &discordgo.ComponentEmoji{Name: "✋"}),
	}
	if bj.CanDouble {
		buttons = append(buttons, utils.CreateButton(utils.CustomID("bj", sessions.ActDouble, v.ID), "Double", discordgo.SuccessButton, false, &discordgo.ComponentEmoji{Name: "💰"}))
	}
	return []discordgo.MessageComponent{utils.CreateActionRow(buttons...)}
}
