package cogs

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"econbot/casino"
	"econbot/games/blackjack"
	"econbot/models"
	"econbot/sessions"
	"econbot/utils"
)

func TestErrorMessages(t *testing.T) {
	for _, tc := range []struct {
		err   error
		class string
	}{
		{fmt.Errorf("wallet: %w", models.ErrInsufficientFunds), "insufficient_funds"},
		{models.ErrInvalidBet, "invalid_bet"},
		{models.ErrInvalidAmount, "invalid_amount"},
		{models.ErrNotAuthorized, "not_authorized"},
		{models.ErrNotFound, "not_found"},
		{models.ErrInvalidState, "invalid_state"},
		{models.ErrTxConflict, "tx_conflict"},
		{models.ErrInvariantViolation, "invariant_violation"},
		{errors.New("boom"), "unexpected"},
	} {
		if got := errorClass(tc.err); got != tc.class {
			t.Errorf("errorClass(%v) = %q, want %q", tc.err, got, tc.class)
		}
		msg := ErrorMessage(tc.err)
		unexpected := msg == utils.UnexpectedErrorText
		if unexpected != (tc.class == "unexpected" || tc.class == "invariant_violation") {
			t.Errorf("ErrorMessage(%v) = %q", tc.err, msg)
		}
	}
}

func TestDetail(t *testing.T) {
	err := fmt.Errorf("%w: bet must be between 10 and 500", models.ErrInvalidBet)
	if got := detail(err); got != "bet must be between 10 and 500" {
		t.Errorf("detail = %q", got)
	}
	if got := detail(errors.New("plain")); got != "plain" {
		t.Errorf("detail = %q", got)
	}
}

func TestPositiveAmount(t *testing.T) {
	if n, err := positiveAmount("half", 300); err != nil || n != 150 {
		t.Errorf("half of 300 = %d, %v", n, err)
	}
	if _, err := positiveAmount("all", 0); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("all of nothing err = %v", err)
	}
}

func TestParseCardList(t *testing.T) {
	got, err := parseCardList("c1:2, c5 ,")
	if err != nil {
		t.Fatal(err)
	}
	want := []models.CardQty{{CardID: "c1", Quantity: 2}, {CardID: "c5", Quantity: 1}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("parseCardList = %+v", got)
	}
	if _, err := parseCardList("c1:zero"); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("bad quantity err = %v", err)
	}
	if cards, _ := parseCardList(""); len(cards) != 0 {
		t.Errorf("empty list = %+v", cards)
	}
}

func componentInteraction(customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{CustomID: customID},
	}}
}

func TestComponentTarget(t *testing.T) {
	id := sessions.ID(sessions.Blackjack, "42")
	action, got := componentTarget(componentInteraction(utils.CustomID("bj", sessions.ActHit, id)))
	if action != sessions.ActHit || got != id {
		t.Errorf("componentTarget = %q, %q", action, got)
	}
	if action, got := componentTarget(componentInteraction("bj")); action != "" || got != "" {
		t.Errorf("short id = %q, %q", action, got)
	}
}

func TestEveryCommandHasHandler(t *testing.T) {
	b := New(Deps{})
	seen := make(map[string]bool)
	for _, c := range Commands() {
		if seen[c.Name] {
			t.Errorf("duplicate command %s", c.Name)
		}
		seen[c.Name] = true
		if b.commands[c.Name] == nil {
			t.Errorf("no handler for /%s", c.Name)
		}
		for _, o := range c.Options {
			if len(o.Description) > 100 {
				t.Errorf("/%s %s description too long", c.Name, o.Name)
			}
		}
	}
	if len(seen) != len(b.commands) {
		t.Errorf("%d commands registered, %d handlers", len(seen), len(b.commands))
	}
}

func TestDeferredCommands(t *testing.T) {
	b := New(Deps{})
	for name := range deferredCommands {
		if b.commands[name] == nil {
			t.Errorf("deferred command /%s has no handler", name)
		}
	}
	for _, name := range []string{"blackjack", "roulette", "hunt"} {
		if deferredCommands[name] {
			t.Errorf("/%s must answer immediately with its buttons", name)
		}
	}

	first := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{ID: "100"}}
	second := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{ID: "101"}}
	b.markDeferred(first)
	if !b.isDeferred(first) || b.isDeferred(second) {
		t.Fatal("deferral leaked between interactions")
	}
	b.deferred.Delete(first.ID)
	if b.isDeferred(first) {
		t.Fatal("deferral outlived its interaction")
	}
}

func hand(cards ...string) blackjack.Hand {
	h := make(blackjack.Hand, 0, len(cards))
	for _, c := range cards {
		h = append(h, blackjack.Card{Rank: c, Suit: "♠️"})
	}
	return h
}

func TestBlackjackRender(t *testing.T) {
	v := sessions.View{
		ID:   sessions.ID(sessions.Blackjack, "42"),
		Kind: sessions.Blackjack,
		Public: sessions.BlackjackView{
			Phase:       blackjack.PlayerTurn,
			Player:      hand("9", "2"),
			PlayerValue: 11,
			Dealer:      hand("K"),
			DealerValue: 10,
			Bet:         100,
			CanDouble:   true,
		},
	}
	rows := SessionComponents(v)
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	buttons := rows[0].(discordgo.ActionsRow).Components
	if len(buttons) != 3 {
		t.Fatalf("buttons = %d, want hit, stand and double", len(buttons))
	}
	if id := buttons[0].(discordgo.Button).CustomID; id != "bj:hit:blackjack:42" {
		t.Errorf("hit id = %q", id)
	}
	embed := SessionEmbed(v)
	if !strings.Contains(embed.Fields[2].Value, "🎴") {
		t.Errorf("hole card not hidden: %q", embed.Fields[2].Value)
	}

	v.Public = sessions.BlackjackView{
		Phase: blackjack.Settled, Player: hand("A", "K"), PlayerValue: 21,
		Dealer: hand("9", "7"), DealerValue: 16, Bet: 100, Result: blackjack.ResultNatural, Payout: 250,
	}
	v.Balances = map[string]int64{"42": 1150}
	if rows := SessionComponents(v); rows != nil {
		t.Errorf("settled hand still has buttons")
	}
	embed = SessionEmbed(v)
	if embed.Color != utils.ColorWin {
		t.Errorf("color = %x", embed.Color)
	}
	if !strings.Contains(embed.Fields[3].Value, "Blackjack!") || embed.Fields[4].Value != "1,150 "+utils.CoinsEmoji {
		t.Errorf("fields = %+v %+v", embed.Fields[3], embed.Fields[4])
	}
}

func TestLobbyComponents(t *testing.T) {
	wc := sessions.View{ID: "wordchain:c1", Kind: sessions.WordChain, State: models.StatusWaiting, Public: sessions.WordChainView{}}
	if len(SessionComponents(wc)) != 1 {
		t.Error("waiting word chain has no join button")
	}
	wc.State = models.StatusInProgress
	if SessionComponents(wc) != nil {
		t.Error("running word chain still offers join")
	}
	hunt := sessions.View{ID: "treasurehunt:42", Kind: sessions.TreasureHunt, State: models.StatusInProgress, Public: sessions.HuntView{Grid: "@."}}
	if rows := SessionComponents(hunt); len(rows) != 2 {
		t.Errorf("hunt rows = %d", len(rows))
	}
	hp := sessions.View{ID: "hotpotato:c1", Kind: sessions.HotPotato, State: models.StatusCompleted, Public: sessions.PotatoView{Loser: "7"}}
	if !strings.Contains(SessionEmbed(hp).Description, "<@7>") {
		t.Errorf("loser missing: %q", SessionEmbed(hp).Description)
	}
}

func TestWagerEmbed(t *testing.T) {
	res := &casino.Result{Win: true, Payout: 300, NewBalance: 1200, Multiplier: 3, Details: map[string]any{"reels": []string{"🍒", "🍒", "🍒"}}}
	e := wagerEmbed(casino.Slots, 100, res)
	if e.Title != "Slots" || e.Color != utils.ColorWin {
		t.Errorf("title %q color %x", e.Title, e.Color)
	}
	if !strings.Contains(e.Description, "200") {
		t.Errorf("description = %q", e.Description)
	}
	if e.Fields[3].Value != "reels: `🍒 🍒 🍒`" {
		t.Errorf("details = %q", e.Fields[3].Value)
	}
	push := wagerEmbed(casino.Dice, 100, &casino.Result{Payout: 100, NewBalance: 900})
	if push.Color != utils.ColorPush {
		t.Errorf("push color = %x", push.Color)
	}
}
