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

// CreateAgreement proposes a standing order: every interval the buyer buys
// quantity of productRef from the seller at unitPrice. The agreement stays
// pending until the seller accepts it.
func (s *Service) CreateAgreement(ctx context.Context, buyerID, sellerID, productRef string, qty, unitPrice int64, interval time.Duration) (*models.TradeAgreement, error) {
	if buyerID == sellerID {
		return nil, fmt.Errorf("%w: cannot trade with yourself", models.ErrInvalidState)
	}
	if _, err := lineTotal(qty, unitPrice); err != nil {
		return nil, err
	}
	if interval < s.cfg.MinInterval {
		return nil, fmt.Errorf("%w: interval must be at least %s", models.ErrInvalidAmount, s.cfg.MinInterval)
	}
	if _, ok := s.cards.Card(productRef); !ok {
		return nil, fmt.Errorf("%w: product %s", models.ErrNotFound, productRef)
	}

	var agreement *models.TradeAgreement
	err := s.ledger.InTx(ctx, "agreement_create", func(tx database.Tx) error {
		now := s.ledger.Now()
		if _, err := tx.GetAccount(ctx, buyerID); err != nil {
			return err
		}
		if _, err := tx.GetAccount(ctx, sellerID); err != nil {
			return err
		}
		agreement = &models.TradeAgreement{
			ID:         uuid.NewString(),
			SellerID:   sellerID,
			BuyerID:    buyerID,
			ProductRef: productRef,
			Quantity:   qty,
			UnitPrice:  unitPrice,
			Interval:   interval,
			NextRunAt:  now.Add(interval),
			Status:     models.AgreementPending,
			CreatedAt:  now,
		}
		return tx.InsertAgreement(ctx, agreement)
	})
	if err != nil {
		return nil, err
	}
	return agreement, nil
}

// AcceptAgreement activates a pending agreement. Only the seller may accept;
// the first delivery is due one interval after acceptance.
func (s *Service) AcceptAgreement(ctx context.Context, actorID, agreementID string) (*models.TradeAgreement, error) {
	return s.updateAgreement(ctx, agreementID, func(a *models.TradeAgreement) error {
		if actorID != a.SellerID {
			return fmt.Errorf("%w: only the seller can accept an agreement", models.ErrNotAuthorized)
		}
		if a.Status != models.AgreementPending {
			return fmt.Errorf("%w: agreement is %s", models.ErrInvalidState, a.Status)
		}
		a.Status = models.AgreementActive
		a.NextRunAt = s.ledger.Now().Add(a.Interval)
		return nil
	})
}

// CancelAgreement ends an agreement. Either party may cancel, which is also
// how a seller declines a pending one.
func (s *Service) CancelAgreement(ctx context.Context, actorID, agreementID string) (*models.TradeAgreement, error) {
	return s.updateAgreement(ctx, agreementID, func(a *models.TradeAgreement) error {
		if actorID != a.BuyerID && actorID != a.SellerID {
			return fmt.Errorf("%w: not a party to this agreement", models.ErrNotAuthorized)
		}
		if a.Status == models.AgreementCancelled {
			return fmt.Errorf("%w: agreement already cancelled", models.ErrInvalidState)
		}
		a.Status = models.AgreementCancelled
		return nil
	})
}

// ResumeAgreement reactivates a suspended agreement on the buyer's request
func (s *Service) ResumeAgreement(ctx context.Context, actorID, agreementID string) (*models.TradeAgreement, error) {
	return s.updateAgreement(ctx, agreementID, func(a *models.TradeAgreement) error {
		if actorID != a.BuyerID {
			return fmt.Errorf("%w: only the buyer can resume an agreement", models.ErrNotAuthorized)
		}
		if a.Status != models.AgreementSuspended {
			return fmt.Errorf("%w: agreement is %s", models.ErrInvalidState, a.Status)
		}
		a.Status = models.AgreementActive
		a.NextRunAt = s.ledger.Now()
		return nil
	})
}

func (s *Service) updateAgreement(ctx context.Context, agreementID string, apply func(*models.TradeAgreement) error) (*models.TradeAgreement, error) {
	var agreement *models.TradeAgreement
	err := s.ledger.InTx(ctx, "agreement_update", func(tx database.Tx) error {
		a, err := tx.LockAgreement(ctx, agreementID)
		if err != nil {
			return err
		}
		if err := apply(a); err != nil {
			return err
		}
		if err := tx.UpdateAgreement(ctx, a); err != nil {
			return err
		}
		agreement = a
		return nil
	})
	return agreement, err
}

// RunResult summarizes one maintenance pass over due agreements
type RunResult struct {
	Delivered int
	Skipped   int
	Suspended int
}

// RunDueAgreements executes every agreement whose next run is due. Each run
// is one purchase in its own transaction. A seller without stock skips the
// run; a buyer who cannot pay suspends the agreement.
func (s *Service) RunDueAgreements(ctx context.Context) (RunResult, error) {
	now := s.ledger.Now()
	due, err := database.ReadOnly(ctx, s.ledger.Store(), func(tx database.Tx) ([]models.TradeAgreement, error) {
		return tx.DueAgreements(ctx, now)
	})
	if err != nil {
		return RunResult{}, err
	}

	var out RunResult
	for _, d := range due {
		var outcome string
		err := s.ledger.InTx(ctx, "agreement_run", func(tx database.Tx) error {
			outcome = ""
			a, err := tx.LockAgreement(ctx, d.ID)
			if err != nil {
				return err
			}
			if a.Status != models.AgreementActive || a.NextRunAt.After(now) {
				return nil
			}
			outcome, err = s.runAgreement(ctx, tx, a, now)
			return err
		})
		if err != nil {
			s.log.Error("run agreement", slog.String("agreement", d.ID), slog.Any("error", err))
			continue
		}
		switch outcome {
		case "delivered":
			out.Delivered++
		case "skipped":
			out.Skipped++
		case "suspended":
			out.Suspended++
		}
	}
	return out, nil
}

func (s *Service) runAgreement(ctx context.Context, tx database.Tx, a *models.TradeAgreement, now time.Time) (string, error) {
	if err := economy.LockPair(ctx, tx, a.BuyerID, a.SellerID); err != nil {
		return "", err
	}
	a.NextRunAt = now.Add(a.Interval)

	stock, err := tx.LockInventory(ctx, a.SellerID, a.ProductRef)
	if err != nil {
		return "", err
	}
	if stock < a.Quantity {
		return "skipped", tx.UpdateAgreement(ctx, a)
	}
	total, err := lineTotal(a.Quantity, a.UnitPrice)
	if err != nil {
		return "", err
	}
	buyer, err := tx.GetAccount(ctx, a.BuyerID)
	if err != nil {
		return "", err
	}
	if buyer.Balance < total {
		a.Status = models.AgreementSuspended
		s.log.Info("agreement suspended", slog.String("agreement", a.ID), slog.String("buyer", a.BuyerID), slog.Int64("due", total))
		return "suspended", tx.UpdateAgreement(ctx, a)
	}

	desc := fmt.Sprintf("agreement %s: %dx %s", a.ID, a.Quantity, a.ProductRef)
	if _, err := economy.ApplyDelta(ctx, tx, a.BuyerID, -total, models.KindMarketBuy, desc, now); err != nil {
		return "", err
	}
	if _, err := economy.ApplyDelta(ctx, tx, a.SellerID, total, models.KindMarketSell, desc, now); err != nil {
		return "", err
	}
	if err := moveCards(ctx, tx, a.SellerID, a.BuyerID, []models.CardQty{{CardID: a.ProductRef, Quantity: a.Quantity}}); err != nil {
		return "", err
	}
	a.RunsCompleted++
	return "delivered", tx.UpdateAgreement(ctx, a)
}
