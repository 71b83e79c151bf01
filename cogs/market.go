package cogs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"econbot/market"
	"econbot/models"
	"econbot/utils"
)

func (b *Bot) handleCards(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, _ := commandOptions(i)
	accountID := utils.UserID(i)

	switch sub {
	case "open":
		cards, balance, err := b.Market.OpenPack(ctx, accountID)
		if err != nil {
			return err
		}
		var sb strings.Builder
		for _, c := range cards {
			fmt.Fprintf(&sb, "**%s** `%s` (%s)\n", c.Name, c.ID, c.Rarity)
		}
		embed := utils.CreateBrandedEmbed("🎴 Card Pack", sb.String(), utils.ColorSuccess)
		embed.Fields = []*discordgo.MessageEmbedField{{Name: "Balance", Value: utils.FormatChips(balance) + " " + utils.CoinsEmoji}}
		return b.respond(s, i, embed)
	case "catalog":
		return b.respondPrivate(s, i, catalogEmbed(b.Market.Catalog()))
	}

	items, err := b.Market.Inventory(ctx, accountID)
	if err != nil {
		return err
	}
	return b.respondPrivate(s, i, inventoryEmbed(items, b.cardNames()))
}

func (b *Bot) cardNames() map[string]string {
	names := make(map[string]string)
	for _, c := range b.Market.Catalog() {
		names[c.ID] = c.Name
	}
	return names
}

func catalogEmbed(cards []models.Card) *discordgo.MessageEmbed {
	var sb strings.Builder
	for _, c := range cards {
		fmt.Fprintf(&sb, "`%s` **%s** %s, worth %s\n", c.ID, c.Name, c.Rarity, utils.FormatChips(c.Value))
	}
	return utils.CreateBrandedEmbed("📚 Card Catalog", sb.String(), utils.BotColor)
}

func inventoryEmbed(items []models.InventoryItem, names map[string]string) *discordgo.MessageEmbed {
	embed := utils.CreateBrandedEmbed("🎒 Inventory", "", utils.BotColor)
	if len(items) == 0 {
		embed.Description = "Your collection is empty. Try `/cards open`."
		return embed
	}
	var sb strings.Builder
	for _, it := range items {
		name := names[it.CardID]
		if name == "" {
			name = it.CardID
		}
		fmt.Fprintf(&sb, "**%s** `%s` x%d\n", name, it.CardID, it.Quantity)
	}
	embed.Description = sb.String()
	return embed
}

func (b *Bot) handleMarket(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, opts := commandOptions(i)
	accountID := utils.UserID(i)

	switch sub {
	case "sell":
		ttl := time.Duration(opts.Int("hours", 0)) * time.Hour
		l, err := b.Market.CreateListing(ctx, accountID, opts.String("card"), opts.Int("quantity", 1), opts.Int("price", 0), ttl)
		if err != nil {
			return err
		}
		return b.respond(s, i, utils.SuccessEmbed("🏷️ Listed", fmt.Sprintf("Listing `%s`: %d x `%s` at **%s** each, expires <t:%d:R>.",
			l.ID, l.Quantity, l.ProductRef, utils.FormatChips(l.UnitPrice), l.ExpiresAt.Unix())))
	case "buy":
		res, err := b.Market.Purchase(ctx, accountID, opts.String("listing"), opts.Int("quantity", 1))
		if err != nil {
			return err
		}
		return b.respond(s, i, utils.SuccessEmbed("🛒 Purchased", fmt.Sprintf("Bought %d x `%s` for **%s** %s.\nBalance: **%s**",
			res.Quantity, res.Listing.ProductRef, utils.FormatChips(res.TotalPrice), utils.CoinsEmoji, utils.FormatChips(res.BuyerBalance))))
	case "cancel":
		l, err := b.Market.CancelListing(ctx, accountID, opts.String("listing"))
		if err != nil {
			return err
		}
		return b.respondPrivate(s, i, utils.SuccessEmbed("Listing Cancelled", fmt.Sprintf("`%s` is off the market. %d x `%s` returned to you.",
			l.ID, l.RemainingQuantity, l.ProductRef)))
	}

	listings, err := b.Market.Listings(ctx, opts.String("card"), int(opts.Int("limit", 10)))
	if err != nil {
		return err
	}
	return b.respond(s, i, listingsEmbed(listings))
}

func listingsEmbed(listings []models.MarketListing) *discordgo.MessageEmbed {
	embed := utils.CreateBrandedEmbed("🏪 Market", "", utils.BotColor)
	if len(listings) == 0 {
		embed.Description = "Nothing for sale right now."
		return embed
	}
	var sb strings.Builder
	for _, l := range listings {
		fmt.Fprintf(&sb, "`%s` %d x `%s` at **%s** by <@%s>\n",
			l.ID, l.RemainingQuantity, l.ProductRef, utils.FormatChips(l.UnitPrice), l.SellerID)
	}
	embed.Description = sb.String()
	return embed
}

func (b *Bot) handleTrade(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, opts := commandOptions(i)
	accountID := utils.UserID(i)

	switch sub {
	case "offer":
		give, err := parseCardList(opts.String("give"))
		if err != nil {
			return err
		}
		want, err := parseCardList(opts.String("want"))
		if err != nil {
			return err
		}
		offer, err := b.Market.CreateOffer(ctx, market.OfferRequest{
			SenderID:      accountID,
			ReceiverID:    opts.User("user"),
			SenderCards:   give,
			ReceiverCards: want,
			CoinsOffered:  opts.Int("coins", 0),
		})
		if err != nil {
			return err
		}
		return b.respond(s, i, offerEmbed(offer))
	case "accept":
		offer, err := b.Market.AcceptOffer(ctx, accountID, opts.String("offer"))
		if err != nil {
			return err
		}
		return b.respond(s, i, offerEmbed(offer))
	case "cancel":
		offer, err := b.Market.CancelOffer(ctx, accountID, opts.String("offer"))
		if err != nil {
			return err
		}
		return b.respondPrivate(s, i, offerEmbed(offer))
	}

	offers, err := b.Market.PendingOffers(ctx, accountID)
	if err != nil {
		return err
	}
	embed := utils.CreateBrandedEmbed("🤝 Pending Offers", "", utils.BotColor)
	if len(offers) == 0 {
		embed.Description = "No pending offers."
	}
	for _, o := range offers {
		embed.Fields = append(embed.Fields, offerField(&o))
	}
	return b.respondPrivate(s, i, embed)
}

func offerEmbed(o *models.TradeOffer) *discordgo.MessageEmbed {
	color := utils.BotColor
	switch o.Status {
	case models.TradeCompleted:
		color = utils.ColorSuccess
	case models.TradeCancelled, models.TradeExpired:
		color = utils.ColorLoss
	}
	embed := utils.CreateBrandedEmbed("🤝 Trade Offer", "", color)
	embed.Fields = []*discordgo.MessageEmbedField{offerField(o)}
	return embed
}

func offerField(o *models.TradeOffer) *discordgo.MessageEmbedField {
	value := fmt.Sprintf("<@%s> gives %s", o.SenderID, formatCardList(o.SenderCards))
	if o.CoinsOffered > 0 {
		value += fmt.Sprintf(" + **%s** %s", utils.FormatChips(o.CoinsOffered), utils.CoinsEmoji)
	}
	value += fmt.Sprintf("\n<@%s> gives %s", o.ReceiverID, formatCardList(o.ReceiverCards))
	if o.Status == models.TradePending {
		value += fmt.Sprintf("\nExpires <t:%d:R>", o.ExpiresAt.Unix())
	}
	return &discordgo.MessageEmbedField{Name: fmt.Sprintf("`%s` (%s)", o.ID, o.Status), Value: value}
}

// parseCardList reads "card_id:qty, other_id" where a bare id means one copy
func parseCardList(raw string) ([]models.CardQty, error) {
	var out []models.CardQty
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, qty, found := strings.Cut(part, ":")
		n := int64(1)
		if found {
			v, err := strconv.ParseInt(strings.TrimSpace(qty), 10, 64)
			if err != nil || v <= 0 {
				return nil, fmt.Errorf("%w: bad quantity in %q", models.ErrInvalidAmount, part)
			}
			n = v
		}
		out = append(out, models.CardQty{CardID: strings.TrimSpace(id), Quantity: n})
	}
	return out, nil
}

func formatCardList(cards []models.CardQty) string {
	if len(cards) == 0 {
		return "nothing"
	}
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		parts = append(parts, fmt.Sprintf("%d x `%s`", c.Quantity, c.CardID))
	}
	return strings.Join(parts, ", ")
}

func (b *Bot) handleAgreement(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, opts := commandOptions(i)
	accountID := utils.UserID(i)

	var (
		a   *models.TradeAgreement
		err error
	)
	switch sub {
	case "create":
		var interval time.Duration
		interval, err = time.ParseDuration(opts.String("every"))
		if err != nil {
			return fmt.Errorf("%w: interval like 24h or 90m", models.ErrInvalidAmount)
		}
		a, err = b.Market.CreateAgreement(ctx, accountID, opts.User("seller"), opts.String("card"),
			opts.Int("quantity", 1), opts.Int("price", 0), interval)
	case "accept":
		a, err = b.Market.AcceptAgreement(ctx, accountID, opts.String("agreement"))
	case "cancel":
		a, err = b.Market.CancelAgreement(ctx, accountID, opts.String("agreement"))
	case "resume":
		a, err = b.Market.ResumeAgreement(ctx, accountID, opts.String("agreement"))
	default:
		return fmt.Errorf("%w: unknown agreement command", models.ErrInvalidState)
	}
	if err != nil {
		return err
	}
	embed := utils.CreateBrandedEmbed("📜 Trade Agreement", "", utils.BotColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "ID", Value: "`" + a.ID + "`", Inline: true},
		{Name: "Status", Value: string(a.Status), Inline: true},
		{Name: "Terms", Value: fmt.Sprintf("<@%s> sells %d x `%s` to <@%s> at **%s** each, every %s",
			a.SellerID, a.Quantity, a.ProductRef, a.BuyerID, utils.FormatChips(a.UnitPrice), a.Interval)},
	}
	switch a.Status {
	case models.AgreementActive:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Next Delivery", Value: fmt.Sprintf("<t:%d:R>", a.NextRunAt.Unix())})
	case models.AgreementPending:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Waiting On", Value: fmt.Sprintf("<@%s> to run `/agreement accept`", a.SellerID)})
	}
	return b.respond(s, i, embed)
}
