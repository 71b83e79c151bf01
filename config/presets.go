package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"econbot/models"
)

//go:embed presets.yaml
var defaultPresets []byte

//go:embed presets.schema.json
var presetsSchema []byte

// SlotSymbol is one weighted reel symbol
type SlotSymbol struct {
	ID         string `yaml:"id"`
	Emoji      string `yaml:"emoji"`
	Weight     int    `yaml:"weight"`
	Multiplier int64  `yaml:"multiplier"`
}

// SlotPreset is a named slot machine
type SlotPreset struct {
	BellSymbol      string       `yaml:"bell_symbol"`
	BellConsolation float64      `yaml:"bell_consolation"`
	Symbols         []SlotSymbol `yaml:"symbols"`
}

// Symbol looks up a reel symbol by id
func (p SlotPreset) Symbol(id string) (SlotSymbol, bool) {
	for _, s := range p.Symbols {
		if s.ID == id {
			return s, true
		}
	}
	return SlotSymbol{}, false
}

// TotalWeight is the sum of every symbol weight
func (p SlotPreset) TotalWeight() int {
	total := 0
	for _, s := range p.Symbols {
		total += s.Weight
	}
	return total
}

type DiceMultiplier struct {
	Sum        int     `yaml:"sum"`
	Multiplier float64 `yaml:"multiplier"`
}

// DicePreset maps every two-dice sum to its total-return multiplier
type DicePreset struct {
	Multipliers []DiceMultiplier `yaml:"multipliers"`
}

// Multiplier returns the payout multiplier for sum
func (p DicePreset) Multiplier(sum int) (float64, bool) {
	for _, m := range p.Multipliers {
		if m.Sum == sum {
			return m.Multiplier, true
		}
	}
	return 0, false
}

type BlackjackPreset struct {
	DealerStand       int           `yaml:"dealer_stand"`
	NaturalPayout     float64       `yaml:"natural_payout"`
	InactivityTimeout time.Duration `yaml:"inactivity_timeout"`
}

type WordChainPreset struct {
	EntryFee       int64         `yaml:"entry_fee"`
	MinPlayers     int           `yaml:"min_players"`
	MaxPlayers     int           `yaml:"max_players"`
	JoinWindow     time.Duration `yaml:"join_window"`
	TurnTimeout    time.Duration `yaml:"turn_timeout"`
	MinTurnTimeout time.Duration `yaml:"min_turn_timeout"`
	MaxTurnTimeout time.Duration `yaml:"max_turn_timeout"`
	MinWordLength  int           `yaml:"min_word_length"`
}

// ClampTurnTimeout bounds a requested turn timeout to the preset range. Zero
// selects the default.
func (p WordChainPreset) ClampTurnTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return p.TurnTimeout
	}
	if p.MinTurnTimeout > 0 && d < p.MinTurnTimeout {
		return p.MinTurnTimeout
	}
	if p.MaxTurnTimeout > 0 && d > p.MaxTurnTimeout {
		return p.MaxTurnTimeout
	}
	return d
}

type TreasureHuntPreset struct {
	EntryFee        int64         `yaml:"entry_fee"`
	GridSize        int           `yaml:"grid_size"`
	Treasures       int           `yaml:"treasures"`
	Traps           int           `yaml:"traps"`
	Clues           int           `yaml:"clues"`
	Monsters        int           `yaml:"monsters"`
	TreasureReward  int64         `yaml:"treasure_reward"`
	TrapPenalty     int64         `yaml:"trap_penalty"`
	MonsterPenalty  int64         `yaml:"monster_penalty"`
	CompletionBonus int64         `yaml:"completion_bonus"`
	IdleTTL         time.Duration `yaml:"idle_ttl"`
}

type HotPotatoPreset struct {
	EntryFee    int64         `yaml:"entry_fee"`
	MinPlayers  int           `yaml:"min_players"`
	MaxPlayers  int           `yaml:"max_players"`
	MinPasses   int           `yaml:"min_passes"`
	MaxPasses   int           `yaml:"max_passes"`
	Penalty     int64         `yaml:"penalty"`
	HoldTimeout time.Duration `yaml:"hold_timeout"`
}

type CardPreset struct {
	PackSize      int            `yaml:"pack_size"`
	RarityWeights map[string]int `yaml:"rarity_weights"`
	Catalog       []models.Card  `yaml:"catalog"`
}

// Card looks up a catalog entry by id
func (p CardPreset) Card(id string) (models.Card, bool) {
	for _, c := range p.Catalog {
		if c.ID == id {
			return c, true
		}
	}
	return models.Card{}, false
}

// Presets holds every named game configuration. Slot, dice and blackjack
// tables are keyed by preset name so variants can run side by side.
type Presets struct {
	Version      int                        `yaml:"version"`
	Slots        map[string]SlotPreset      `yaml:"slots"`
	Dice         map[string]DicePreset      `yaml:"dice"`
	Blackjack    map[string]BlackjackPreset `yaml:"blackjack"`
	WordChain    WordChainPreset            `yaml:"wordchain"`
	TreasureHunt TreasureHuntPreset         `yaml:"treasurehunt"`
	HotPotato    HotPotatoPreset            `yaml:"hotpotato"`
	Cards        CardPreset                 `yaml:"cards"`
}

// LoadPresets reads presets from path, or the embedded defaults when path is
// empty. The document is validated against the embedded JSON schema before it
// is decoded.
func LoadPresets(path string) (*Presets, error) {
	raw := defaultPresets
	source := "embedded presets.yaml"
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read presets: %w", err)
		}
		raw, source = b, path
	}
	return ParsePresets(raw, source)
}

// ParsePresets validates and decodes a presets document
func ParsePresets(raw []byte, source string) (*Presets, error) {
	if err := validatePresets(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	var p Presets
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if err := p.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &p, nil
}

func validatePresets(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("presets.schema.json", bytes.NewReader(presetsSchema)); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	schema, err := compiler.Compile("presets.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	// round-trip through JSON so the validator sees plain JSON types
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert yaml: %w", err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return fmt.Errorf("convert yaml: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// check covers the cross-field rules JSON Schema cannot express
func (p *Presets) check() error {
	for name, sp := range p.Slots {
		seen := map[string]bool{}
		for _, s := range sp.Symbols {
			if seen[s.ID] {
				return fmt.Errorf("slots %s: duplicate symbol %q", name, s.ID)
			}
			seen[s.ID] = true
		}
		if sp.BellSymbol != "" && !seen[sp.BellSymbol] {
			return fmt.Errorf("slots %s: bell symbol %q not on the reel", name, sp.BellSymbol)
		}
	}
	for name, dp := range p.Dice {
		for sum := 2; sum <= 12; sum++ {
			if _, ok := dp.Multiplier(sum); !ok {
				return fmt.Errorf("dice %s: missing multiplier for sum %d", name, sum)
			}
		}
	}
	wc := p.WordChain
	if wc.MaxPlayers < wc.MinPlayers {
		return fmt.Errorf("wordchain: max_players %d < min_players %d", wc.MaxPlayers, wc.MinPlayers)
	}
	if wc.MinWordLength == 0 {
		p.WordChain.MinWordLength = 2
	}
	th := p.TreasureHunt
	if th.Treasures+th.Traps+th.Clues+th.Monsters > th.GridSize*th.GridSize-1 {
		return fmt.Errorf("treasurehunt: %d contents do not fit a %dx%d grid", th.Treasures+th.Traps+th.Clues+th.Monsters, th.GridSize, th.GridSize)
	}
	hp := p.HotPotato
	if hp.MaxPasses < hp.MinPasses {
		return fmt.Errorf("hotpotato: max_passes %d < min_passes %d", hp.MaxPasses, hp.MinPasses)
	}
	if hp.MinPlayers == 0 {
		p.HotPotato.MinPlayers = 2
	}
	for _, c := range p.Cards.Catalog {
		if _, ok := p.Cards.RarityWeights[c.Rarity]; !ok {
			return fmt.Errorf("cards: %s has rarity %q with no weight", c.ID, c.Rarity)
		}
	}
	return nil
}

// SlotMachine returns the named slot preset
func (p *Presets) SlotMachine(name string) (SlotPreset, error) {
	sp, ok := p.Slots[name]
	if !ok {
		return SlotPreset{}, fmt.Errorf("%w: slots preset %q", models.ErrNotFound, name)
	}
	return sp, nil
}

// DiceTable returns the named dice preset
func (p *Presets) DiceTable(name string) (DicePreset, error) {
	dp, ok := p.Dice[name]
	if !ok {
		return DicePreset{}, fmt.Errorf("%w: dice preset %q", models.ErrNotFound, name)
	}
	return dp, nil
}

// BlackjackTable returns the named blackjack preset
func (p *Presets) BlackjackTable(name string) (BlackjackPreset, error) {
	bp, ok := p.Blackjack[name]
	if !ok {
		return BlackjackPreset{}, fmt.Errorf("%w: blackjack preset %q", models.ErrNotFound, name)
	}
	return bp, nil
}
