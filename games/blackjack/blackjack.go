// Package blackjack holds the single-deck blackjack hand and its state machine.
package blackjack

import (
	"fmt"
	"slices"

	"econbot/config"
	"econbot/games"
	"econbot/models"
)

// Phase is where a hand is in its lifecycle
type Phase string

const (
	PlayerTurn Phase = "player_turn"
	DealerTurn Phase = "dealer_turn"
	Settled    Phase = "settled"
)

// Result is how a settled hand ended
type Result string

const (
	ResultNatural    Result = "blackjack"
	ResultDealerBust Result = "dealer_bust"
	ResultWin        Result = "win"
	ResultPush       Result = "push"
	ResultLose       Result = "lose"
	ResultBust       Result = "bust"
)

// Action is a player move
type Action string

const (
	Hit    Action = "hit"
	Stand  Action = "stand"
	Double Action = "double"
)

// Game is one blackjack hand against the dealer
type Game struct {
	PlayerID   string
	Bet        int64
	Doubled    bool
	Player     Hand
	Dealer     Hand
	Phase      Phase
	Result     Result
	Multiplier float64

	table config.BlackjackPreset
	deck  *Deck
}

// Deal starts a hand: player, dealer, player, dealer. A player natural
// settles at once without the dealer drawing.
func Deal(playerID string, bet int64, table config.BlackjackPreset, deck *Deck) *Game {
	g := &Game{PlayerID: playerID, Bet: bet, Phase: PlayerTurn, table: table, deck: deck}
	g.Player = append(g.Player, deck.Deal())
	g.Dealer = append(g.Dealer, deck.Deal())
	g.Player = append(g.Player, deck.Deal())
	g.Dealer = append(g.Dealer, deck.Deal())

	if g.Player.IsNatural() {
		if g.Dealer.IsNatural() {
			g.settle(ResultPush, 1)
		} else {
			g.settle(ResultNatural, table.NaturalPayout)
		}
	}
	return g
}

// Apply performs a player action. Any action outside the player's turn is
// rejected with ErrInvalidState.
func (g *Game) Apply(a Action) error {
	if g.Phase != PlayerTurn {
		return fmt.Errorf("%w: hand is %s", models.ErrInvalidState, g.Phase)
	}
	switch a {
	case Hit:
		g.Player = append(g.Player, g.deck.Deal())
		if g.Player.IsBust() {
			g.settle(ResultBust, 0)
		}
		return nil
	case Stand:
		g.playDealer()
		return nil
	case Double:
		if !g.CanDouble() {
			return fmt.Errorf("%w: double is only allowed on the first two cards", models.ErrInvalidState)
		}
		g.Doubled = true
		g.Bet *= 2
		g.Player = append(g.Player, g.deck.Deal())
		if g.Player.IsBust() {
			g.settle(ResultBust, 0)
			return nil
		}
		g.playDealer()
		return nil
	}
	return fmt.Errorf("%w: unknown action %q", models.ErrInvalidState, a)
}

// Clone copies the hand. The deck's card order is shared, its position is not.
func (g *Game) Clone() *Game {
	c := *g
	c.Player = slices.Clone(g.Player)
	c.Dealer = slices.Clone(g.Dealer)
	d := *g.deck
	c.deck = &d
	return &c
}

// Table is the preset the hand is played under
func (g *Game) Table() config.BlackjackPreset { return g.table }

// CanDouble reports whether the hand is still on its first two cards
func (g *Game) CanDouble() bool {
	return g.Phase == PlayerTurn && len(g.Player) == 2 && !g.Doubled
}

// playDealer draws while the dealer is under the stand value, then settles
func (g *Game) playDealer() {
	g.Phase = DealerTurn
	for g.Dealer.Value() < g.table.DealerStand {
		g.Dealer = append(g.Dealer, g.deck.Deal())
	}

	player, dealer := g.Player.Value(), g.Dealer.Value()
	switch {
	case g.Dealer.IsBust():
		g.settle(ResultDealerBust, 2)
	case player > dealer:
		g.settle(ResultWin, 2)
	case player == dealer:
		g.settle(ResultPush, 1)
	default:
		g.settle(ResultLose, 0)
	}
}

func (g *Game) settle(r Result, multiplier float64) {
	g.Phase = Settled
	g.Result = r
	g.Multiplier = multiplier
}

// Payout is the total return owed for the settled hand
func (g *Game) Payout() int64 {
	if g.Phase != Settled {
		return 0
	}
	return games.Payout(g.Bet, g.Multiplier)
}

// View is what a player may see. The dealer's hole card stays hidden until
// the hand leaves the player's turn.
type View struct {
	Phase       Phase  `json:"phase"`
	Player      Hand   `json:"player"`
	PlayerValue int    `json:"player_value"`
	Dealer      Hand   `json:"dealer"`
	DealerValue int    `json:"dealer_value"`
	Bet         int64  `json:"bet"`
	Result      Result `json:"result,omitempty"`
	Payout      int64  `json:"payout"`
	CanDouble   bool   `json:"can_double"`
}

func (g *Game) View() View {
	v := View{
		Phase:       g.Phase,
		Player:      g.Player,
		PlayerValue: g.Player.Value(),
		Bet:         g.Bet,
		Result:      g.Result,
		Payout:      g.Payout(),
		CanDouble:   g.CanDouble(),
	}
	if g.Phase == PlayerTurn {
		v.Dealer = g.Dealer[:1]
	} else {
		v.Dealer = g.Dealer
	}
	v.DealerValue = v.Dealer.Value()
	return v
}
