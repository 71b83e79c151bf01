package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"econbot/database"
	"econbot/economy"
	"econbot/models"
)

// CreateListing puts qty of cardID up for sale. The cards leave the seller's
// inventory into escrow until the listing sells, is cancelled or expires.
func (s *Service) CreateListing(ctx context.Context, sellerID, cardID string, qty, unitPrice int64, ttl time.Duration) (*models.MarketListing, error) {
	if _, err := lineTotal(qty, unitPrice); err != nil {
		return nil, err
	}
	if _, ok := s.cards.Card(cardID); !ok {
		return nil, fmt.Errorf("%w: card %s", models.ErrNotFound, cardID)
	}
	if ttl <= 0 {
		ttl = s.cfg.ListingTTL
	}

	var listing *models.MarketListing
	err := s.ledger.InTx(ctx, "listing_create", func(tx database.Tx) error {
		now := s.ledger.Now()
		if _, err := tx.GetAccount(ctx, sellerID); err != nil {
			return err
		}
		if err := removeCards(ctx, tx, sellerID, cardID, qty); err != nil {
			return err
		}
		listing = &models.MarketListing{
			ID:                uuid.NewString(),
			SellerID:          sellerID,
			ProductRef:        cardID,
			Quantity:          qty,
			RemainingQuantity: qty,
			UnitPrice:         unitPrice,
			CreatedAt:         now,
			ExpiresAt:         now.Add(ttl),
			Status:            models.ListingActive,
		}
		return tx.InsertListing(ctx, listing)
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// Purchase buys qty from a listing. The buyer pays exactly qty*price, the
// seller receives exactly that, and the cards leave escrow, all in one
// transaction.
func (s *Service) Purchase(ctx context.Context, buyerID, listingID string, qty int64) (*models.PurchaseResult, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", models.ErrInvalidAmount)
	}
	var res models.PurchaseResult
	err := s.ledger.InTx(ctx, string(models.KindMarketBuy), func(tx database.Tx) error {
		res = models.PurchaseResult{}
		now := s.ledger.Now()
		l, err := tx.LockListing(ctx, listingID)
		if err != nil {
			return err
		}
		if l.Status != models.ListingActive || !now.Before(l.ExpiresAt) {
			return fmt.Errorf("%w: listing %s is %s", models.ErrInvalidState, l.ID, l.Status)
		}
		if l.SellerID == buyerID {
			return fmt.Errorf("%w: cannot buy your own listing", models.ErrInvalidState)
		}
		if qty > l.RemainingQuantity {
			return fmt.Errorf("%w: only %d left", models.ErrInvalidAmount, l.RemainingQuantity)
		}
		if err := economy.LockPair(ctx, tx, buyerID, l.SellerID); err != nil {
			return err
		}

		total, err := lineTotal(qty, l.UnitPrice)
		if err != nil {
			return err
		}
		desc := fmt.Sprintf("%dx %s", qty, l.ProductRef)
		if res.BuyerBalance, err = economy.ApplyDelta(ctx, tx, buyerID, -total, models.KindMarketBuy, desc, now); err != nil {
			return err
		}
		if res.SellerBalance, err = economy.ApplyDelta(ctx, tx, l.SellerID, total, models.KindMarketSell, desc, now); err != nil {
			return err
		}
		if err := addCards(ctx, tx, buyerID, l.ProductRef, qty); err != nil {
			return err
		}
		l.RemainingQuantity -= qty
		if l.RemainingQuantity == 0 {
			l.Status = models.ListingSold
		}
		if err := tx.UpdateListing(ctx, l); err != nil {
			return err
		}
		res.Listing, res.Quantity, res.TotalPrice = l, qty, total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CancelListing returns the escrowed cards to the seller. Only the seller
// may cancel.
func (s *Service) CancelListing(ctx context.Context, actorID, listingID string) (*models.MarketListing, error) {
	var listing *models.MarketListing
	err := s.ledger.InTx(ctx, "listing_cancel", func(tx database.Tx) error {
		l, err := tx.LockListing(ctx, listingID)
		if err != nil {
			return err
		}
		if l.SellerID != actorID {
			return fmt.Errorf("%w: only the seller can cancel a listing", models.ErrNotAuthorized)
		}
		if l.Status != models.ListingActive {
			return fmt.Errorf("%w: listing is %s", models.ErrInvalidState, l.Status)
		}
		if err := closeListing(ctx, tx, l, models.ListingCancelled); err != nil {
			return err
		}
		listing = l
		return nil
	})
	return listing, err
}

func closeListing(ctx context.Context, tx database.Tx, l *models.MarketListing, status models.ListingStatus) error {
	if l.RemainingQuantity > 0 {
		if err := addCards(ctx, tx, l.SellerID, l.ProductRef, l.RemainingQuantity); err != nil {
			return err
		}
	}
	l.Status = status
	return tx.UpdateListing(ctx, l)
}

// ExpireListings closes every active listing past its expiry and returns
// the unsold cards.
func (s *Service) ExpireListings(ctx context.Context) (int, error) {
	now := s.ledger.Now()
	expired, err := database.ReadOnly(ctx, s.ledger.Store(), func(tx database.Tx) ([]models.MarketListing, error) {
		return tx.ExpiredListings(ctx, now)
	})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range expired {
		closed := false
		err := s.ledger.InTx(ctx, "listing_expire", func(tx database.Tx) error {
			closed = false
			l, err := tx.LockListing(ctx, e.ID)
			if err != nil {
				return err
			}
			if l.Status != models.ListingActive {
				return nil
			}
			closed = true
			return closeListing(ctx, tx, l, models.ListingExpired)
		})
		if err != nil {
			s.log.Error("expire listing", slog.String("listing", e.ID), slog.Any("error", err))
			continue
		}
		if closed {
			n++
		}
	}
	return n, nil
}

// Listings returns active listings, cheapest first. An empty productRef
// matches every product.
func (s *Service) Listings(ctx context.Context, productRef string, limit int) ([]models.MarketListing, error) {
	if limit <= 0 || limit > 50 {
		limit = 25
	}
	return database.ReadOnly(ctx, s.ledger.Store(), func(tx database.Tx) ([]models.MarketListing, error) {
		return tx.ActiveListings(ctx, productRef, limit)
	})
}
