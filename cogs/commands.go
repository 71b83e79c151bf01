package cogs

import "github.com/bwmarrin/discordgo"

func optString(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: name, Description: desc, Required: required}
}

func optInt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionInteger, Name: name, Description: desc, Required: required}
}

func optUser(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionUser, Name: name, Description: desc, Required: required}
}

func subcommand(name, desc string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionSubCommand, Name: name, Description: desc, Options: opts}
}

func amountOpt() *discordgo.ApplicationCommandOption {
	return optString("amount", "Amount: a number, 5k, half, all or 25%", true)
}

func choices(values ...string) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(values))
	for _, v := range values {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v})
	}
	return out
}

// Commands is every slash command the bot registers
func Commands() []*discordgo.ApplicationCommand {
	crapsBet := optString("bet", "Which bet to place", true)
	crapsBet.Choices = choices("pass", "dontpass", "field", "any7")
	direction := optString("direction", "Which way to dig", true)
	direction.Choices = choices("n", "s", "e", "w")
	target := optInt("target", "Exact total to bet on (2-12)", false)
	minTarget, maxTarget := 2.0, 12.0
	target.MinValue, target.MaxValue = &minTarget, maxTarget

	return []*discordgo.ApplicationCommand{
		{Name: "balance", Description: "Check your wallet and bank", Options: []*discordgo.ApplicationCommandOption{optUser("user", "Whose balance", false)}},
		{Name: "profile", Description: "Show level, rank and stats", Options: []*discordgo.ApplicationCommandOption{optUser("user", "Whose profile", false)}},
		{Name: "daily", Description: "Claim your daily reward"},
		{Name: "work", Description: "Work a shift for coins"},
		{Name: "rob", Description: "Try to rob another player", Options: []*discordgo.ApplicationCommandOption{optUser("user", "Who to rob", true)}},
		{Name: "vote", Description: "Claim your vote reward"},
		{Name: "give", Description: "Send coins to another player", Options: []*discordgo.ApplicationCommandOption{optUser("user", "Recipient", true), amountOpt()}},
		{Name: "leaderboard", Description: "Richest players"},
		{Name: "history", Description: "Your recent transactions", Options: []*discordgo.ApplicationCommandOption{optInt("limit", "How many rows", false)}},

		{Name: "roulette", Description: "Bet on the wheel", Options: []*discordgo.ApplicationCommandOption{
			optString("bet", "red, black, even, odd, low, high, tier, orphans, voisins or a number", true), amountOpt()}},
		{Name: "slots", Description: "Spin the reels", Options: []*discordgo.ApplicationCommandOption{amountOpt(), optString("machine", "Machine preset", false)}},
		{Name: "dice", Description: "Bet on the exact total of two dice", Options: []*discordgo.ApplicationCommandOption{amountOpt(), target, optString("table", "Table preset", false)}},
		{Name: "craps", Description: "One roll at the craps table", Options: []*discordgo.ApplicationCommandOption{crapsBet, amountOpt()}},
		{Name: "blackjack", Description: "Play a hand of blackjack", Options: []*discordgo.ApplicationCommandOption{amountOpt(), optString("table", "Table preset", false)}},

		{Name: "wordchain", Description: "Word chain for the whole channel", Options: []*discordgo.ApplicationCommandOption{
			subcommand("open", "Open a lobby", optInt("turn_seconds", "Seconds per turn", false)),
			subcommand("join", "Join the lobby"),
			subcommand("play", "Play a word", optString("word", "Your word", true)),
			subcommand("status", "Show the current game"),
		}},
		{Name: "hunt", Description: "Dig for treasure", Options: []*discordgo.ApplicationCommandOption{
			subcommand("start", "Start a new hunt"),
			subcommand("move", "Move one cell", direction),
			subcommand("cancel", "Give up the hunt"),
			subcommand("status", "Show your grid"),
		}},
		{Name: "hotpotato", Description: "Don't be holding it when it blows", Options: []*discordgo.ApplicationCommandOption{
			subcommand("open", "Open a lobby"),
			subcommand("join", "Join the lobby"),
			subcommand("start", "Start the game (host only)"),
			subcommand("pass", "Pass the potato", optUser("user", "Who gets it", true)),
			subcommand("cancel", "Cancel the lobby (host only)"),
			subcommand("status", "Show the current game"),
		}},

		{Name: "bank", Description: "Your savings account", Options: []*discordgo.ApplicationCommandOption{
			subcommand("statement", "Balance, interest and credit"),
			subcommand("deposit", "Move coins into the bank", amountOpt()),
			subcommand("withdraw", "Move coins into your wallet", amountOpt()),
		}},
		{Name: "loan", Description: "Borrow against your credit score", Options: []*discordgo.ApplicationCommandOption{
			subcommand("terms", "Your rate and limit"),
			subcommand("take", "Take a loan", amountOpt()),
			subcommand("repay", "Repay your loan", amountOpt()),
			subcommand("history", "Your past loans"),
		}},

		{Name: "cards", Description: "Collectible cards", Options: []*discordgo.ApplicationCommandOption{
			subcommand("open", "Buy and open a pack"),
			subcommand("inventory", "Your collection"),
			subcommand("catalog", "Every card in the set"),
		}},
		{Name: "market", Description: "Buy and sell cards", Options: []*discordgo.ApplicationCommandOption{
			subcommand("browse", "Active listings", optString("card", "Filter by card id", false), optInt("limit", "How many", false)),
			subcommand("sell", "List cards for sale",
				optString("card", "Card id", true), optInt("price", "Price per card", true),
				optInt("quantity", "How many", false), optInt("hours", "Listing lifetime in hours", false)),
			subcommand("buy", "Buy from a listing", optString("listing", "Listing id", true), optInt("quantity", "How many", false)),
			subcommand("cancel", "Cancel your listing", optString("listing", "Listing id", true)),
		}},
		{Name: "trade", Description: "Swap cards with another player", Options: []*discordgo.ApplicationCommandOption{
			subcommand("offer", "Propose a trade",
				optUser("user", "Trade partner", true),
				optString("give", "Cards you give, e.g. c1:2, c5", false),
				optString("want", "Cards you want", false),
				optInt("coins", "Coins you add", false)),
			subcommand("accept", "Accept an offer", optString("offer", "Offer id", true)),
			subcommand("cancel", "Cancel or decline an offer", optString("offer", "Offer id", true)),
			subcommand("pending", "Your pending offers"),
		}},
		{Name: "agreement", Description: "Recurring card deliveries", Options: []*discordgo.ApplicationCommandOption{
			subcommand("create", "Propose buying cards on a schedule",
				optUser("seller", "Who sells", true), optString("card", "Card id", true),
				optInt("price", "Price per card", true), optString("every", "Interval such as 24h", true),
				optInt("quantity", "Cards per delivery", false)),
			subcommand("accept", "Accept an agreement as the seller", optString("agreement", "Agreement id", true)),
			subcommand("cancel", "Cancel or decline an agreement", optString("agreement", "Agreement id", true)),
			subcommand("resume", "Resume a suspended agreement", optString("agreement", "Agreement id", true)),
		}},
	}
}
