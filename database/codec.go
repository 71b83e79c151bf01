package database

import (
	"encoding/json"
	"fmt"

	"econbot/models"
)

func encodeCards(cards []models.CardQty) ([]byte, error) {
	if cards == nil {
		cards = []models.CardQty{}
	}
	b, err := json.Marshal(cards)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cards: %w", err)
	}
	return b, nil
}

func decodeCards(raw []byte, dst *[]models.CardQty) error {
	if len(raw) == 0 {
		*dst = nil
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode cards: %w", err)
	}
	return nil
}
