package sessions

import (
	"time"

	"econbot/games/blackjack"
	"econbot/games/hotpotato"
	"econbot/games/treasurehunt"
	"econbot/games/wordchain"
	"econbot/models"
)

// View is the renderer-agnostic snapshot returned after every transition.
// Public holds one of BlackjackView, WordChainView, HuntView or PotatoView.
type View struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	ChannelID string            `json:"channel_id,omitempty"`
	State     models.GameStatus `json:"state"`
	Public    any               `json:"public"`
	// Event names what the last transition did, such as "hit" or "exploded"
	Event    string           `json:"event,omitempty"`
	Detail   any              `json:"detail,omitempty"`
	Balances map[string]int64 `json:"balances,omitempty"`
}

type BlackjackView = blackjack.View

type WordChainView struct {
	Players      []wordchain.Player `json:"players"`
	Current      string             `json:"current,omitempty"`
	LastWord     string             `json:"last_word,omitempty"`
	Pot          int64              `json:"pot"`
	EntryFee     int64              `json:"entry_fee"`
	JoinDeadline time.Time          `json:"join_deadline"`
	TurnDeadline time.Time          `json:"turn_deadline"`
	Winner       string             `json:"winner,omitempty"`
}

type HuntView struct {
	Grid      string `json:"grid"`
	Row       int    `json:"row"`
	Col       int    `json:"col"`
	Found     int    `json:"found"`
	Treasures int    `json:"treasures"`
	Moves     int    `json:"moves"`
}

type PotatoView struct {
	Players      []string  `json:"players"`
	Holder       string    `json:"holder,omitempty"`
	Passes       int       `json:"passes"`
	NextChance   float64   `json:"next_chance"`
	Pot          int64     `json:"pot"`
	HoldDeadline time.Time `json:"hold_deadline"`
	Loser        string    `json:"loser,omitempty"`
}

func (m *Manager) view(s *session, st step, balances map[string]int64) View {
	v := View{
		ID:        s.id,
		Kind:      s.kind,
		ChannelID: s.channelID,
		State:     status(s.game),
		Event:     st.event,
		Detail:    st.detail,
		Balances:  balances,
	}
	switch g := s.game.(type) {
	case *blackjack.Game:
		v.Public = g.View()
	case *wordchain.Game:
		v.Public = WordChainView{
			Players:      append([]wordchain.Player(nil), g.Players...),
			Current:      g.Current(),
			LastWord:     g.LastWord,
			Pot:          g.Pot,
			EntryFee:     g.EntryFee,
			JoinDeadline: g.JoinDeadline,
			TurnDeadline: g.TurnDeadline,
			Winner:       g.Winner,
		}
	case *treasurehunt.Game:
		v.Public = HuntView{
			Grid:      g.Render(),
			Row:       g.Row,
			Col:       g.Col,
			Found:     g.Found,
			Treasures: g.Treasures,
			Moves:     g.Moves,
		}
	case *hotpotato.Game:
		v.Public = PotatoView{
			Players:      append([]string(nil), g.Players...),
			Holder:       g.Holder,
			Passes:       g.Passes,
			NextChance:   hotpotato.ExplosionChance(g.Passes+1, g.MinPasses, g.MaxPasses),
			Pot:          g.Pot,
			HoldDeadline: g.HoldDeadline,
			Loser:        g.Loser,
		}
	}
	return v
}
