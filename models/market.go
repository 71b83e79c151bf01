package models

import "time"

// Card is a collectible from the card catalog
type Card struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Rarity string `json:"rarity" yaml:"rarity"`
	Value  int64  `json:"value" yaml:"value"`
}

// InventoryItem is a stack of one card owned by an account
type InventoryItem struct {
	AccountID string `json:"account_id"`
	CardID    string `json:"card_id"`
	Quantity  int64  `json:"quantity"`
}

// CardQty pairs a card with a quantity inside a trade offer
type CardQty struct {
	CardID   string `json:"card_id"`
	Quantity int64  `json:"quantity"`
}

// ListingStatus is the lifecycle state of a market listing
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingSold      ListingStatus = "sold"
	ListingCancelled ListingStatus = "cancelled"
	ListingExpired   ListingStatus = "expired"
)

// MarketListing is a standing offer to sell ProductRef at UnitPrice. A listing
// may be bought in full by one buyer or drained across several purchases.
type MarketListing struct {
	ID                string        `json:"id"`
	SellerID          string        `json:"seller_id"`
	ProductRef        string        `json:"product_ref"`
	Quantity          int64         `json:"quantity"`
	RemainingQuantity int64         `json:"remaining_quantity"`
	UnitPrice         int64         `json:"unit_price"`
	CreatedAt         time.Time     `json:"created_at"`
	ExpiresAt         time.Time     `json:"expires_at"`
	Status            ListingStatus `json:"status"`
}

// EscrowValue is the coin value still locked in the listing
func (l *MarketListing) EscrowValue() int64 {
	if l.Status != ListingActive {
		return 0
	}
	return l.RemainingQuantity * l.UnitPrice
}

// TradeStatus is the lifecycle state of a trade offer
type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeCompleted TradeStatus = "completed"
	TradeCancelled TradeStatus = "cancelled"
	TradeExpired   TradeStatus = "expired"
)

// TradeOffer is a proposed bilateral swap of cards and coins
type TradeOffer struct {
	ID            string      `json:"id"`
	SenderID      string      `json:"sender_id"`
	ReceiverID    string      `json:"receiver_id"`
	SenderCards   []CardQty   `json:"sender_cards"`
	ReceiverCards []CardQty   `json:"receiver_cards"`
	CoinsOffered  int64       `json:"coins_offered"`
	Status        TradeStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     time.Time   `json:"expires_at"`
}

// AgreementStatus is the lifecycle state of a recurring trade agreement
type AgreementStatus string

const (
	AgreementPending   AgreementStatus = "pending"
	AgreementActive    AgreementStatus = "active"
	AgreementCancelled AgreementStatus = "cancelled"
	AgreementSuspended AgreementStatus = "suspended"
)

// TradeAgreement delivers Quantity of ProductRef from seller to buyer every
// Interval at UnitPrice.
type TradeAgreement struct {
	ID            string          `json:"id"`
	SellerID      string          `json:"seller_id"`
	BuyerID       string          `json:"buyer_id"`
	ProductRef    string          `json:"product_ref"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     int64           `json:"unit_price"`
	Interval      time.Duration   `json:"interval"`
	NextRunAt     time.Time       `json:"next_run_at"`
	Status        AgreementStatus `json:"status"`
	RunsCompleted int64           `json:"runs_completed"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PurchaseResult describes a settled purchase
type PurchaseResult struct {
	Listing       *MarketListing
	Quantity      int64
	TotalPrice    int64
	BuyerBalance  int64
	SellerBalance int64
}
