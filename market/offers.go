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

// OfferRequest describes a proposed trade
type OfferRequest struct {
	SenderID      string
	ReceiverID    string
	SenderCards   []models.CardQty
	ReceiverCards []models.CardQty
	CoinsOffered  int64
	TTL           time.Duration
}

func (s *Service) validCards(cards []models.CardQty) error {
	for _, c := range cards {
		if c.Quantity <= 0 {
			return fmt.Errorf("%w: card quantity must be positive", models.ErrInvalidAmount)
		}
		if _, ok := s.cards.Card(c.CardID); !ok {
			return fmt.Errorf("%w: card %s", models.ErrNotFound, c.CardID)
		}
	}
	return nil
}

// CreateOffer records a pending trade. Nothing moves until the receiver
// accepts, so the sender's holdings are only checked, not escrowed.
func (s *Service) CreateOffer(ctx context.Context, req OfferRequest) (*models.TradeOffer, error) {
	if req.SenderID == req.ReceiverID {
		return nil, fmt.Errorf("%w: cannot trade with yourself", models.ErrInvalidState)
	}
	if req.CoinsOffered < 0 {
		return nil, fmt.Errorf("%w: coins offered cannot be negative", models.ErrInvalidAmount)
	}
	if len(req.SenderCards) == 0 && len(req.ReceiverCards) == 0 && req.CoinsOffered == 0 {
		return nil, fmt.Errorf("%w: empty trade", models.ErrInvalidAmount)
	}
	if err := s.validCards(req.SenderCards); err != nil {
		return nil, err
	}
	if err := s.validCards(req.ReceiverCards); err != nil {
		return nil, err
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.cfg.OfferTTL
	}

	var offer *models.TradeOffer
	err := s.ledger.InTx(ctx, "offer_create", func(tx database.Tx) error {
		now := s.ledger.Now()
		sender, err := tx.GetAccount(ctx, req.SenderID)
		if err != nil {
			return err
		}
		if _, err := tx.GetAccount(ctx, req.ReceiverID); err != nil {
			return err
		}
		if sender.Balance < req.CoinsOffered {
			return fmt.Errorf("%w: offering %d with %d in wallet", models.ErrInsufficientFunds, req.CoinsOffered, sender.Balance)
		}
		for _, c := range req.SenderCards {
			have, err := tx.LockInventory(ctx, req.SenderID, c.CardID)
			if err != nil {
				return err
			}
			if have < c.Quantity {
				return fmt.Errorf("%w: you hold %d of %s", models.ErrInsufficientFunds, have, c.CardID)
			}
		}
		offer = &models.TradeOffer{
			ID:            uuid.NewString(),
			SenderID:      req.SenderID,
			ReceiverID:    req.ReceiverID,
			SenderCards:   req.SenderCards,
			ReceiverCards: req.ReceiverCards,
			CoinsOffered:  req.CoinsOffered,
			Status:        models.TradePending,
			CreatedAt:     now,
			ExpiresAt:     now.Add(ttl),
		}
		return tx.InsertOffer(ctx, offer)
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// AcceptOffer settles a pending offer. Only the receiver may accept. Either
// every card and coin moves or none does.
func (s *Service) AcceptOffer(ctx context.Context, actorID, offerID string) (*models.TradeOffer, error) {
	var offer *models.TradeOffer
	err := s.ledger.InTx(ctx, string(models.KindTrade), func(tx database.Tx) error {
		now := s.ledger.Now()
		o, err := tx.LockOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if o.ReceiverID != actorID {
			return fmt.Errorf("%w: only the receiver can accept this trade", models.ErrNotAuthorized)
		}
		if o.Status != models.TradePending {
			return fmt.Errorf("%w: trade is %s", models.ErrInvalidState, o.Status)
		}
		if !now.Before(o.ExpiresAt) {
			return fmt.Errorf("%w: trade expired", models.ErrInvalidState)
		}
		if err := economy.LockPair(ctx, tx, o.SenderID, o.ReceiverID); err != nil {
			return err
		}
		if err := moveCards(ctx, tx, o.SenderID, o.ReceiverID, o.SenderCards); err != nil {
			return err
		}
		if err := moveCards(ctx, tx, o.ReceiverID, o.SenderID, o.ReceiverCards); err != nil {
			return err
		}
		if o.CoinsOffered > 0 {
			desc := "trade " + o.ID
			if _, err := economy.ApplyDelta(ctx, tx, o.SenderID, -o.CoinsOffered, models.KindTrade, desc, now); err != nil {
				return err
			}
			if _, err := economy.ApplyDelta(ctx, tx, o.ReceiverID, o.CoinsOffered, models.KindTrade, desc, now); err != nil {
				return err
			}
		}
		if err := tx.SetOfferStatus(ctx, o.ID, models.TradeCompleted); err != nil {
			return err
		}
		o.Status = models.TradeCompleted
		offer = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("trade completed", slog.String("offer", offer.ID), slog.String("sender", offer.SenderID), slog.String("receiver", offer.ReceiverID))
	return offer, nil
}

// CancelOffer withdraws or declines a pending offer. Either party may cancel.
func (s *Service) CancelOffer(ctx context.Context, actorID, offerID string) (*models.TradeOffer, error) {
	var offer *models.TradeOffer
	err := s.ledger.InTx(ctx, "offer_cancel", func(tx database.Tx) error {
		o, err := tx.LockOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if o.SenderID != actorID && o.ReceiverID != actorID {
			return fmt.Errorf("%w: not a party to this trade", models.ErrNotAuthorized)
		}
		if o.Status != models.TradePending {
			return fmt.Errorf("%w: trade is %s", models.ErrInvalidState, o.Status)
		}
		if err := tx.SetOfferStatus(ctx, o.ID, models.TradeCancelled); err != nil {
			return err
		}
		o.Status = models.TradeCancelled
		offer = o
		return nil
	})
	return offer, err
}

// ExpireOffers marks pending offers past their expiry as expired
func (s *Service) ExpireOffers(ctx context.Context) (int, error) {
	n := 0
	err := s.ledger.InTx(ctx, "offer_expire", func(tx database.Tx) error {
		n = 0
		expired, err := tx.ExpiredOffers(ctx, s.ledger.Now())
		if err != nil {
			return err
		}
		for _, o := range expired {
			if err := tx.SetOfferStatus(ctx, o.ID, models.TradeExpired); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// PendingOffers lists open offers the account sent or received
func (s *Service) PendingOffers(ctx context.Context, accountID string) ([]models.TradeOffer, error) {
	return database.ReadOnly(ctx, s.ledger.Store(), func(tx database.Tx) ([]models.TradeOffer, error) {
		return tx.PendingOffers(ctx, accountID)
	})
}
