// Package cogs is the Discord surface: slash commands, buttons and the
// embeds they answer with. Handlers only parse input, call the services and
// render what comes back.
package cogs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"econbot/bank"
	"econbot/casino"
	"econbot/config"
	"econbot/economy"
	"econbot/market"
	"econbot/metrics"
	"econbot/models"
	"econbot/sessions"
	"econbot/utils"
)

const commandTimeout = 10 * time.Second

// deferredCommands are acknowledged before they run and their answer is
// edited in afterwards: vote waits on top.gg and the market commands lock
// inventories across several rows.
var deferredCommands = map[string]bool{
	"vote":      true,
	"cards":     true,
	"market":    true,
	"trade":     true,
	"agreement": true,
}

// Deps are the services the commands call into
type Deps struct {
	Config   config.Config
	Presets  *config.Presets
	Ledger   *economy.Ledger
	Rewards  *economy.Rewards
	Votes    *economy.TopGGClient
	Casino   *casino.Service
	Sessions *sessions.Manager
	Bank     *bank.Service
	Market   *market.Service
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

type commandFunc func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error

type Bot struct {
	Deps
	log        *slog.Logger
	commands   map[string]commandFunc
	components map[string]commandFunc
	deferred   sync.Map // interaction id -> struct{}
}

func New(d Deps) *Bot {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	b := &Bot{Deps: d, log: d.Logger}
	b.commands = map[string]commandFunc{
		"balance":     b.handleBalance,
		"profile":     b.handleProfile,
		"daily":       b.handleDaily,
		"work":        b.handleWork,
		"rob":         b.handleRob,
		"vote":        b.handleVote,
		"give":        b.handleGive,
		"leaderboard": b.handleLeaderboard,
		"history":     b.handleHistory,
		"roulette":    b.handleRoulette,
		"slots":       b.handleSlots,
		"dice":        b.handleDice,
		"craps":       b.handleCraps,
		"blackjack":   b.handleBlackjack,
		"wordchain":   b.handleWordChain,
		"hunt":        b.handleHunt,
		"hotpotato":   b.handleHotPotato,
		"bank":        b.handleBank,
		"loan":        b.handleLoan,
		"cards":       b.handleCards,
		"market":      b.handleMarket,
		"trade":       b.handleTrade,
		"agreement":   b.handleAgreement,
	}
	// component ids are "<prefix>:<action>:<session id>"
	b.components = map[string]commandFunc{
		"bj":   b.handleBlackjackButton,
		"wc":   b.handleWordChainButton,
		"hunt": b.handleHuntButton,
		"hp":   b.handleHotPotatoButton,
	}
	return b
}

// HandleInteraction is the discordgo InteractionCreate handler
func (b *Bot) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var (
		name string
		fn   commandFunc
	)
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name = i.ApplicationCommandData().Name
		fn = b.commands[name]
	case discordgo.InteractionMessageComponent:
		name = utils.SplitCustomID(i.MessageComponentData().CustomID)[0]
		fn = b.components[name]
	default:
		return
	}
	if fn == nil {
		return
	}

	if i.Type == discordgo.InteractionApplicationCommand && deferredCommands[name] {
		if err := utils.DeferInteractionResponse(s, i, false); err != nil {
			b.log.Warn("defer failed", slog.String("command", name), slog.Any("error", err))
			return
		}
		b.markDeferred(i)
		defer b.deferred.Delete(i.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := fn(ctx, s, i); err != nil {
		b.fail(s, i, name, err)
	}
}

// fail answers a command that returned an error
func (b *Bot) fail(s *discordgo.Session, i *discordgo.InteractionCreate, command string, err error) {
	class := errorClass(err)
	b.Metrics.CommandFailed(class)
	switch class {
	case "invariant_violation":
		b.log.Error("invariant violated", slog.String("command", command), slog.String("user", utils.UserID(i)), slog.Any("error", err))
	case "unexpected":
		b.log.Error("command failed", slog.String("command", command), slog.String("user", utils.UserID(i)), slog.Any("error", err))
	default:
		b.log.Debug("command rejected", slog.String("command", command), slog.String("class", class), slog.Any("error", err))
	}

	embed := utils.ErrorEmbed(ErrorMessage(err))
	if class != "invariant_violation" && class != "unexpected" {
		embed.Fields = []*discordgo.MessageEmbedField{{Name: "Details", Value: detail(err)}}
	}
	if b.isDeferred(i) {
		if err := b.respondPrivate(s, i, embed); err != nil {
			b.log.Warn("error response failed", slog.String("command", command), slog.Any("error", err))
		}
		return
	}
	if err := utils.SendInteractionResponse(s, i, embed, nil, true); err != nil {
		// already acknowledged, e.g. after a component update
		if ferr := utils.SendFollowupMessage(s, i, embed, nil, true); ferr != nil {
			b.log.Warn("error response failed", slog.String("command", command), slog.Any("error", ferr))
		}
	}
}

func (b *Bot) markDeferred(i *discordgo.InteractionCreate) { b.deferred.Store(i.ID, struct{}{}) }

func (b *Bot) isDeferred(i *discordgo.InteractionCreate) bool {
	_, ok := b.deferred.Load(i.ID)
	return ok
}

// ErrorMessage maps each error class to the one message a user sees
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientFunds):
		return "You don't have enough coins for that."
	case errors.Is(err, models.ErrInvalidBet):
		return "That bet isn't allowed."
	case errors.Is(err, models.ErrInvalidAmount):
		return "That amount isn't valid."
	case errors.Is(err, models.ErrNotAuthorized):
		return "You're not allowed to do that."
	case errors.Is(err, models.ErrNotFound):
		return "Couldn't find that. It may have expired."
	case errors.Is(err, models.ErrInvalidState):
		return "That can't be done right now."
	case errors.Is(err, models.ErrTxConflict):
		return "The vault is busy. Please try again in a moment."
	}
	return utils.UnexpectedErrorText
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, models.ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, models.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, models.ErrInvalidBet):
		return "invalid_bet"
	case errors.Is(err, models.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, models.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, models.ErrTxConflict):
		return "tx_conflict"
	}
	return "unexpected"
}

// detail is the wrapped context of err without the sentinel's own text
func detail(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		models.ErrInsufficientFunds, models.ErrInvalidBet, models.ErrInvalidAmount,
		models.ErrNotAuthorized, models.ErrNotFound, models.ErrInvalidState, models.ErrTxConflict,
	} {
		if errors.Is(err, sentinel) {
			if _, rest, ok := strings.Cut(msg, sentinel.Error()+": "); ok {
				return rest
			}
		}
	}
	return msg
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

// commandOptions returns the subcommand name, if any, and its options by name
func commandOptions(i *discordgo.InteractionCreate) (string, options) {
	opts := i.ApplicationCommandData().Options
	sub := ""
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		sub = opts[0].Name
		opts = opts[0].Options
	}
	out := make(options, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return sub, out
}

func (o options) String(name string) string {
	if v, ok := o[name]; ok {
		return strings.TrimSpace(v.StringValue())
	}
	return ""
}

func (o options) Int(name string, fallback int64) int64 {
	if v, ok := o[name]; ok {
		return v.IntValue()
	}
	return fallback
}

// User returns the id of a user option
func (o options) User(name string) string {
	if v, ok := o[name]; ok {
		return fmt.Sprint(v.Value)
	}
	return ""
}

// amount parses a bet-style amount option against the caller's wallet
func (b *Bot) amount(ctx context.Context, accountID, raw string) (int64, error) {
	acct, err := b.Ledger.Account(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return positiveAmount(raw, acct.Balance)
}

// respond answers publicly, editing the placeholder of a deferred command
func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components ...discordgo.MessageComponent) error {
	if b.isDeferred(i) {
		return utils.UpdateInteractionResponse(s, i, embed, components)
	}
	return utils.SendInteractionResponse(s, i, embed, components, false)
}

// respondPrivate answers ephemerally. A deferred command's public placeholder
// is replaced by an ephemeral followup.
func (b *Bot) respondPrivate(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	if !b.isDeferred(i) {
		return utils.SendInteractionResponse(s, i, embed, nil, true)
	}
	if err := utils.SendFollowupMessage(s, i, embed, nil, true); err != nil {
		return err
	}
	if err := utils.DeleteInteractionResponse(s, i); err != nil {
		b.log.Debug("placeholder delete failed", slog.Any("error", err))
	}
	return nil
}
