package market

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"econbot/config"
	"econbot/database"
	"econbot/economy"
	"econbot/games"
	"econbot/models"
)

// Config holds marketplace business constants
type Config struct {
	PackPrice   int64
	ListingTTL  time.Duration
	OfferTTL    time.Duration
	MinInterval time.Duration
}

// DefaultConfig returns the marketplace defaults
func DefaultConfig(packPrice int64) Config {
	return Config{
		PackPrice:   packPrice,
		ListingTTL:  7 * 24 * time.Hour,
		OfferTTL:    24 * time.Hour,
		MinInterval: time.Hour,
	}
}

// Service runs card packs, listings, trade offers and trade agreements.
// Every settlement moves coins and cards in one store transaction.
type Service struct {
	ledger *economy.Ledger
	cards  config.CardPreset
	cfg    Config
	rng    games.RNG
	log    *slog.Logger
}

func NewService(ledger *economy.Ledger, cards config.CardPreset, cfg Config, rng games.RNG, logger *slog.Logger) *Service {
	if rng == nil {
		rng = games.NewRNG()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, cards: cards, cfg: cfg, rng: rng, log: logger}
}

// lineTotal is qty*unitPrice, rejected when it would not fit in an int64
func lineTotal(qty, unitPrice int64) (int64, error) {
	if qty <= 0 || unitPrice <= 0 {
		return 0, fmt.Errorf("%w: quantity and price must be positive", models.ErrInvalidAmount)
	}
	if unitPrice > math.MaxInt64/qty {
		return 0, fmt.Errorf("%w: %d x %d is too large", models.ErrInvalidAmount, qty, unitPrice)
	}
	return qty * unitPrice, nil
}

// Catalog returns every collectible card
func (s *Service) Catalog() []models.Card {
	return s.cards.Catalog
}

// drawCard picks a rarity by weight, then a card of that rarity uniformly
func (s *Service) drawCard() (models.Card, error) {
	rarities := make([]string, 0, len(s.cards.RarityWeights))
	total := 0
	for r, w := range s.cards.RarityWeights {
		rarities = append(rarities, r)
		total += w
	}
	if total == 0 {
		return models.Card{}, fmt.Errorf("%w: card catalog has no rarity weights", models.ErrInvalidState)
	}
	sort.Strings(rarities)

	roll := s.rng.Intn(total)
	picked := rarities[len(rarities)-1]
	for _, r := range rarities {
		if roll < s.cards.RarityWeights[r] {
			picked = r
			break
		}
		roll -= s.cards.RarityWeights[r]
	}

	var pool []models.Card
	for _, c := range s.cards.Catalog {
		if c.Rarity == picked {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return models.Card{}, fmt.Errorf("%w: no %s cards in the catalog", models.ErrInvalidState, picked)
	}
	return pool[s.rng.Intn(len(pool))], nil
}

// OpenPack charges the pack price and adds PackSize random cards to the
// buyer's inventory.
func (s *Service) OpenPack(ctx context.Context, accountID string) ([]models.Card, int64, error) {
	drawn := make([]models.Card, 0, s.cards.PackSize)
	for i := 0; i < s.cards.PackSize; i++ {
		c, err := s.drawCard()
		if err != nil {
			return nil, 0, err
		}
		drawn = append(drawn, c)
	}

	var balance int64
	err := s.ledger.InTx(ctx, string(models.KindPack), func(tx database.Tx) error {
		now := s.ledger.Now()
		var err error
		if balance, err = economy.ApplyDelta(ctx, tx, accountID, -s.cfg.PackPrice, models.KindPack, "card pack", now); err != nil {
			return err
		}
		for _, c := range drawn {
			if err := addCards(ctx, tx, accountID, c.ID, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return drawn, balance, nil
}

// Inventory lists an account's cards
func (s *Service) Inventory(ctx context.Context, accountID string) ([]models.InventoryItem, error) {
	return database.ReadOnly(ctx, s.ledger.Store(), func(tx database.Tx) ([]models.InventoryItem, error) {
		return tx.ListInventory(ctx, accountID)
	})
}

func addCards(ctx context.Context, tx database.Tx, accountID, cardID string, qty int64) error {
	have, err := tx.LockInventory(ctx, accountID, cardID)
	if err != nil {
		return fmt.Errorf("lock inventory: %w", err)
	}
	return tx.SetInventory(ctx, accountID, cardID, have+qty)
}

func removeCards(ctx context.Context, tx database.Tx, accountID, cardID string, qty int64) error {
	have, err := tx.LockInventory(ctx, accountID, cardID)
	if err != nil {
		return fmt.Errorf("lock inventory: %w", err)
	}
	if have < qty {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", models.ErrInsufficientFunds, accountID, have, cardID, qty)
	}
	return tx.SetInventory(ctx, accountID, cardID, have-qty)
}

func moveCards(ctx context.Context, tx database.Tx, from, to string, cards []models.CardQty) error {
	for _, c := range cards {
		if err := removeCards(ctx, tx, from, c.CardID, c.Quantity); err != nil {
			return err
		}
		if err := addCards(ctx, tx, to, c.CardID, c.Quantity); err != nil {
			return err
		}
	}
	return nil
}
