package cogs

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"econbot/utils"
)

func (b *Bot) handleBalance(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	_, opts := commandOptions(i)
	id := opts.User("user")
	if id == "" {
		id = utils.UserID(i)
	}
	acct, err := b.Ledger.Account(ctx, id)
	if err != nil {
		return err
	}
	embed := utils.CreateBrandedEmbed("Balance", fmt.Sprintf("<@%s>", id), utils.BotColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Wallet", Value: utils.FormatChips(acct.Balance) + " " + utils.CoinsEmoji, Inline: true},
		{Name: "Bank", Value: utils.FormatChips(acct.BankBalance) + " " + utils.CoinsEmoji, Inline: true},
	}
	return b.respond(s, i, embed)
}

func (b *Bot) handleProfile(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	_, opts := commandOptions(i)
	user := utils.InvokingUser(i)
	if v, ok := opts["user"]; ok {
		user = v.UserValue(s)
	}
	acct, err := b.Ledger.Account(ctx, user.ID)
	if err != nil {
		return err
	}
	return b.respond(s, i, utils.ProfileEmbed(acct, user))
}

func (b *Bot) handleDaily(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	res, err := b.Rewards.ClaimDaily(ctx, utils.UserID(i))
	if err != nil {
		return err
	}
	if !res.Granted {
		return b.respondPrivate(s, i, utils.CooldownEmbed("claim your daily reward", res.Remaining))
	}
	msg := fmt.Sprintf("You claimed **%s** %s.\nNew balance: **%s**", utils.FormatChips(res.Amount), utils.CoinsEmoji, utils.FormatChips(res.Balance))
	if res.XP.LeveledUp {
		msg += fmt.Sprintf("\nLevel up! You are now level **%d**.", res.XP.NewLevel)
	}
	return b.respond(s, i, utils.SuccessEmbed("Daily Reward", msg))
}

func (b *Bot) handleWork(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	res, err := b.Rewards.Work(ctx, utils.UserID(i))
	if err != nil {
		return err
	}
	if !res.Granted {
		return b.respondPrivate(s, i, utils.CooldownEmbed("work", res.Remaining))
	}
	return b.respond(s, i, utils.SuccessEmbed("Shift Complete",
		fmt.Sprintf("You earned **%s** %s.\nNew balance: **%s**", utils.FormatChips(res.Amount), utils.CoinsEmoji, utils.FormatChips(res.Balance))))
}

func (b *Bot) handleRob(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	_, opts := commandOptions(i)
	victim := opts.User("user")
	res, err := b.Rewards.Rob(ctx, utils.UserID(i), victim)
	if err != nil {
		return err
	}
	if !res.Attempted {
		return b.respondPrivate(s, i, utils.CooldownEmbed("rob someone", res.Remaining))
	}
	if res.Success {
		return b.respond(s, i, utils.CreateBrandedEmbed("Robbery",
			fmt.Sprintf("You stole **%s** %s from <@%s>!", utils.FormatChips(res.Amount), utils.CoinsEmoji, victim), utils.ColorWin))
	}
	return b.respond(s, i, utils.CreateBrandedEmbed("Caught!",
		fmt.Sprintf("You were caught and paid <@%s> a fine of **%s** %s.", victim, utils.FormatChips(res.Amount), utils.CoinsEmoji), utils.ColorLoss))
}

func (b *Bot) handleVote(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	res, voted, err := b.Rewards.ClaimVote(ctx, utils.UserID(i))
	if err != nil {
		return err
	}
	switch {
	case res.Granted:
		return b.respond(s, i, utils.SuccessEmbed("Thanks for voting!",
			fmt.Sprintf("You received **%s** %s.", utils.FormatChips(res.Amount), utils.CoinsEmoji)))
	case voted:
		return b.respondPrivate(s, i, utils.CooldownEmbed("claim a vote reward", res.Remaining))
	}
	link := "top.gg"
	if b.Votes != nil {
		link = b.Votes.VoteURL()
	}
	return b.respondPrivate(s, i, utils.CreateBrandedEmbed("Vote",
		fmt.Sprintf("Vote for the bot at %s, then run `/vote` again to claim your reward.", link), utils.BotColor))
}

func (b *Bot) handleGive(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	_, opts := commandOptions(i)
	from, to := utils.UserID(i), opts.User("user")
	amount, err := b.amount(ctx, from, opts.String("amount"))
	if err != nil {
		return err
	}
	fromBal, _, err := b.Ledger.Transfer(ctx, from, to, amount, "gift")
	if err != nil {
		return err
	}
	return b.respond(s, i, utils.SuccessEmbed("Transfer",
		fmt.Sprintf("<@%s> sent **%s** %s to <@%s>.\nYour balance: **%s**", from, utils.FormatChips(amount), utils.CoinsEmoji, to, utils.FormatChips(fromBal))))
}

func (b *Bot) handleLeaderboard(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	rows, err := b.Ledger.Leaderboard(ctx, 10)
	if err != nil {
		return err
	}
	return b.respond(s, i, utils.LeaderboardEmbed(rows, nil))
}

func (b *Bot) handleHistory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	_, opts := commandOptions(i)
	rows, err := b.Ledger.History(ctx, utils.UserID(i), int(opts.Int("limit", 10)))
	if err != nil {
		return err
	}
	return b.respondPrivate(s, i, utils.HistoryEmbed(rows))
}
