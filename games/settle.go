package games

import "econbot/models"

// Entry is one ledger movement a game step owes. The session manager applies
// every entry of a step in a single transaction.
type Entry struct {
	AccountID   string
	Amount      int64
	Description string
	// Kind is the ledger kind; empty books the entry as a session movement
	Kind models.TransactionKind
	// Clamp limits a debit to whatever the account holds instead of failing
	Clamp bool
}

// Debit is a penalty clamped to the payer's balance
func Debit(accountID string, amount int64, desc string) Entry {
	return Entry{AccountID: accountID, Amount: -amount, Description: desc, Clamp: true}
}

// Credit pays amount to accountID
func Credit(accountID string, amount int64, desc string) Entry {
	return Entry{AccountID: accountID, Amount: amount, Description: desc}
}

// Stake takes an entry fee or bet. Unlike Debit it fails when the account is
// short.
func Stake(accountID string, amount int64, desc string) Entry {
	return Entry{AccountID: accountID, Amount: -amount, Description: desc, Kind: models.KindWager}
}

// Refund returns a stake
func Refund(accountID string, amount int64, desc string) Entry {
	return Entry{AccountID: accountID, Amount: amount, Description: desc, Kind: models.KindRefund}
}
