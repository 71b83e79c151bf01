package cogs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"econbot/games/treasurehunt"
	"econbot/models"
	"econbot/sessions"
	"econbot/utils"
)

func (b *Bot) handleWordChain(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, opts := commandOptions(i)
	id := sessions.ID(sessions.WordChain, i.ChannelID)
	actor := utils.UserID(i)

	var (
		v   sessions.View
		err error
	)
	switch sub {
	case "open":
		turn := time.Duration(opts.Int("turn_seconds", 0)) * time.Second
		v, err = b.Sessions.OpenWordChain(ctx, i.ChannelID, actor, turn)
	case "join":
		v, err = b.Sessions.Join(ctx, id, actor)
	case "play":
		v, err = b.Sessions.Advance(ctx, id, sessions.Action{Name: sessions.ActPlay, Arg: opts.String("word")}, actor)
	default:
		v, err = b.Sessions.Get(id)
	}
	if err != nil {
		return err
	}
	return b.respond(s, i, wordChainEmbed(v), wordChainComponents(v)...)
}

func (b *Bot) handleWordChainButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	action, id := componentTarget(i)
	v, err := b.Sessions.Advance(ctx, id, sessions.Action{Name: action}, utils.UserID(i))
	if err != nil {
		return err
	}
	return utils.UpdateComponentInteraction(s, i, wordChainEmbed(v), wordChainComponents(v))
}

func wordChainEmbed(v sessions.View) *discordgo.MessageEmbed {
	wc, _ := v.Public.(sessions.WordChainView)
	embed := utils.CreateBrandedEmbed("🔤 Word Chain", "", utils.ColorPlaying)

	names := make([]string, 0, len(wc.Players))
	for _, p := range wc.Players {
		name := fmt.Sprintf("<@%s>", p.ID)
		if p.Eliminated {
			name = "~~" + name + "~~"
		}
		names = append(names, name)
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Players", Value: strings.Join(names, " "), Inline: false},
		{Name: "Pot", Value: utils.FormatChips(wc.Pot) + " " + utils.CoinsEmoji, Inline: true},
		{Name: "Entry", Value: utils.FormatChips(wc.EntryFee), Inline: true},
	}

	switch v.State {
	case models.StatusWaiting:
		embed.Description = fmt.Sprintf("Waiting for players. The game starts %s.", relativeTime(wc.JoinDeadline))
	case models.StatusInProgress:
		embed.Description = fmt.Sprintf("<@%s>, it's your turn %s.", wc.Current, relativeTime(wc.TurnDeadline))
		if wc.LastWord != "" {
			last := wc.LastWord[len(wc.LastWord)-1:]
			embed.Description += fmt.Sprintf("\nLast word: **%s**. Next word starts with **%s**.", wc.LastWord, strings.ToUpper(last))
		}
		if v.Event == "eliminated" {
			embed.Description = fmt.Sprintf("<@%v> ran out of time.\n", v.Detail) + embed.Description
		}
	case models.StatusCompleted:
		embed.Color = utils.ColorWin
		embed.Description = fmt.Sprintf("🏆 <@%s> wins the pot!", wc.Winner)
	case models.StatusCancelled:
		embed.Color = utils.ColorLoss
		embed.Description = "The game was cancelled and entry fees were refunded."
	}
	return embed
}

func wordChainComponents(v sessions.View) []discordgo.MessageComponent {
	if v.State != models.StatusWaiting {
		return nil
	}
	return []discordgo.MessageComponent{utils.CreateActionRow(
		utils.CreateButton(utils.CustomID("wc", sessions.ActJoin, v.ID), "Join", discordgo.SuccessButton, false, &discordgo.ComponentEmoji{Name: "✋"}),
	)}
}

func (b *Bot) handleHunt(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, opts := commandOptions(i)
	actor := utils.UserID(i)
	id := sessions.ID(sessions.TreasureHunt, actor)

	var (
		v   sessions.View
		err error
	)
	switch sub {
	case "start":
		v, err = b.Sessions.StartTreasureHunt(ctx, i.ChannelID, actor)
	case "move":
		v, err = b.Sessions.Advance(ctx, id, sessions.Action{Name: sessions.ActMove, Arg: opts.String("direction")}, actor)
	case "cancel":
		v, err = b.Sessions.Advance(ctx, id, sessions.Action{Name: sessions.ActCancel}, actor)
	default:
		v, err = b.Sessions.Get(id)
	}
	if err != nil {
		return err
	}
	return b.respond(s, i, huntEmbed(v), huntComponents(v)...)
}

func (b *Bot) handleHuntButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	action, id := componentTarget(i)
	a := sessions.Action{Name: sessions.ActMove, Arg: action}
	if action == sessions.ActCancel {
		a = sessions.Action{Name: sessions.ActCancel}
	}
	v, err := b.Sessions.Advance(ctx, id, a, utils.UserID(i))
	if err != nil {
		return err
	}
	return utils.UpdateComponentInteraction(s, i, huntEmbed(v), huntComponents(v))
}

func huntEmbed(v sessions.View) *discordgo.MessageEmbed {
	h, _ := v.Public.(sessions.HuntView)
	embed := utils.CreateBrandedEmbed("🗺️ Treasure Hunt", "```\n"+h.Grid+"\n```", utils.ColorPlaying)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Treasure", Value: fmt.Sprintf("%d / %d", h.Found, h.Treasures), Inline: true},
		{Name: "Moves", Value: fmt.Sprint(h.Moves), Inline: true},
	}
	if res, ok := v.Detail.(treasurehunt.MoveResult); ok && res.FirstVisit {
		var msg string
		switch res.Kind {
		case treasurehunt.Treasure:
			msg = "💎 You dug up treasure!"
		case treasurehunt.Trap:
			msg = "🪤 A trap! You lost some coins."
		case treasurehunt.Monster:
			msg = "👹 A monster took a bite out of your wallet."
		case treasurehunt.Clue:
			msg = fmt.Sprintf("📜 A clue: the nearest treasure is %d steps away.", res.Distance)
		}
		if msg != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Found", Value: msg})
		}
	}
	switch v.State {
	case models.StatusCompleted:
		embed.Color = utils.ColorWin
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "🏆 Complete", Value: "Every treasure found. The completion bonus is yours!"})
	case models.StatusCancelled:
		embed.Color = utils.ColorLoss
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Forfeited", Value: "The hunt is over. The entry fee is not refunded."})
	}
	return embed
}

func huntComponents(v sessions.View) []discordgo.MessageComponent {
	if v.State != models.StatusInProgress {
		return nil
	}
	move := func(dir treasurehunt.Direction, label, emoji string) discordgo.MessageComponent {
		return utils.CreateButton(utils.CustomID("hunt", string(dir), v.ID), label, discordgo.SecondaryButton, false, &discordgo.ComponentEmoji{Name: emoji})
	}
	return []discordgo.MessageComponent{
		utils.CreateActionRow(
			move(treasurehunt.North, "North", "⬆️"),
			move(treasurehunt.South, "South", "⬇️"),
			move(treasurehunt.West, "West", "⬅️"),
			move(treasurehunt.East, "East", "➡️"),
		),
		utils.CreateActionRow(
			utils.CreateButton(utils.CustomID("hunt", sessions.ActCancel, v.ID), "Give up", discordgo.DangerButton, false, nil),
		),
	}
}

func (b *Bot) handleHotPotato(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, opts := commandOptions(i)
	id := sessions.ID(sessions.HotPotato, i.ChannelID)
	actor := utils.UserID(i)

	var (
		v   sessions.View
		err error
	)
	switch sub {
	case "open":
		v, err = b.Sessions.OpenHotPotato(ctx, i.ChannelID, actor)
	case "join":
		v, err = b.Sessions.Join(ctx, id, actor)
	case "start":
		v, err = b.Sessions.Advance(ctx, id, sessions.Action{Name: sessions.ActStart}, actor)
	case "pass":
		v, err = b.Sessions.Advance(ctx, id, sessions.Action{Name: sessions.ActPass, Arg: opts.User("user")}, actor)
	case "cancel":
		v, err = b.Sessions.Advance(ctx, id, sessions.Action{Name: sessions.ActCancel}, actor)
	default:
		v, err = b.Sessions.Get(id)
	}
	if err != nil {
		return err
	}
	return b.respond(s, i, potatoEmbed(v), potatoComponents(v)...)
}

func (b *Bot) handleHotPotatoButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	action, id := componentTarget(i)
	v, err := b.Sessions.Advance(ctx, id, sessions.Action{Name: action}, utils.UserID(i))
	if err != nil {
		return err
	}
	return utils.UpdateComponentInteraction(s, i, potatoEmbed(v), potatoComponents(v))
}

func potatoEmbed(v sessions.View) *discordgo.MessageEmbed {
	p, _ := v.Public.(sessions.PotatoView)
	embed := utils.CreateBrandedEmbed("🥔 Hot Potato", "", utils.ColorWarning)

	players := make([]string, 0, len(p.Players))
	for _, id := range p.Players {
		players = append(players, fmt.Sprintf("<@%s>", id))
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Players", Value: strings.Join(players, " ")},
		{Name: "Pot", Value: utils.FormatChips(p.Pot) + " " + utils.CoinsEmoji, Inline: true},
		{Name: "Passes", Value: fmt.Sprint(p.Passes), Inline: true},
	}

	switch v.State {
	case models.StatusWaiting:
		embed.Description = "Join up! The host starts the game with `/hotpotato start`."
	case models.StatusInProgress:
		embed.Description = fmt.Sprintf("🔥 <@%s> is holding the potato. Pass it %s!", p.Holder, relativeTime(p.HoldDeadline))
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Next pass", Value: fmt.Sprintf("%.0f%% to explode", p.NextChance*100), Inline: true,
		})
	case models.StatusCompleted:
		embed.Color = utils.ColorLoss
		embed.Description = fmt.Sprintf("💥 The potato exploded on <@%s>!", p.Loser)
		if v.Event == "exploded" && len(p.Players) > 1 {
			embed.Description += " The pot was split between the survivors."
		}
	case models.StatusCancelled:
		embed.Color = utils.ColorPush
		embed.Description = "The game was cancelled and entry fees were refunded."
	}
	return embed
}

func potatoComponents(v sessions.View) []discordgo.MessageComponent {
	if v.State != models.StatusWaiting {
		return nil
	}
	return []discordgo.MessageComponent{utils.CreateActionRow(
		utils.CreateButton(utils.CustomID("hp", sessions.ActJoin, v.ID), "Join", discordgo.SuccessButton, false, &discordgo.ComponentEmoji{Name: "✋"}),
		utils.CreateButton(utils.CustomID("hp", sessions.ActStart, v.ID), "Start", discordgo.PrimaryButton, false, &discordgo.ComponentEmoji{Name: "🔥"}),
	)}
}

// relativeTime renders a Discord relative timestamp
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "soon"
	}
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}
