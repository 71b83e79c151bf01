package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"econbot/models"
)

// openStores returns every backend available in this environment
func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	stores := map[string]Store{}
	sqlite, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "econ.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(sqlite.Close)
	stores["sqlite"] = sqlite

	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		pg, err := OpenPostgres(ctx, url)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		t.Cleanup(pg.Close)
		stores["postgres"] = pg
	}
	return stores
}

func uniqueID(t *testing.T, prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func TestAccountCreatedOnFirstRead(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t, "acct")
			acct, err := ReadOnly(ctx, store, func(tx Tx) (*models.Account, error) {
				return tx.GetAccount(ctx, id)
			})
			if err != nil {
				t.Fatalf("GetAccount: %v", err)
			}
			if acct.Balance != 0 || acct.Experience != 0 || acct.LastDailyClaim != nil {
				t.Fatalf("expected zeroed account, got %+v", acct)
			}
		})
	}
}

func TestPatchAccount(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t, "acct")
			claimed := time.Now().UTC().Truncate(time.Millisecond)

			err := store.InTx(ctx, func(tx Tx) error {
				if _, err := tx.LockAccount(ctx, id); err != nil {
					return err
				}
				return tx.PatchAccount(ctx, id, models.AccountPatch{
					ExperienceIncrement:  250,
					GamesPlayedIncrement: 1,
					LastDailyClaim:       &claimed,
				})
			})
			if err != nil {
				t.Fatalf("patch: %v", err)
			}

			// second patch without a timestamp must keep the stored one
			err = store.InTx(ctx, func(tx Tx) error {
				return tx.PatchAccount(ctx, id, models.AccountPatch{GamesWonIncrement: 1})
			})
			if err != nil {
				t.Fatalf("patch: %v", err)
			}

			acct, err := ReadOnly(ctx, store, func(tx Tx) (*models.Account, error) {
				return tx.GetAccount(ctx, id)
			})
			if err != nil {
				t.Fatalf("GetAccount: %v", err)
			}
			if acct.Experience != 250 || acct.GamesPlayed != 1 || acct.GamesWon != 1 {
				t.Errorf("unexpected counters: %+v", acct)
			}
			if acct.LastDailyClaim == nil || !acct.LastDailyClaim.Equal(claimed) {
				t.Errorf("last daily claim = %v, want %v", acct.LastDailyClaim, claimed)
			}
		})
	}
}

func TestNegativeBalanceRejectedByStore(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t, "acct")
			err := store.InTx(ctx, func(tx Tx) error {
				if _, err := tx.LockAccount(ctx, id); err != nil {
					return err
				}
				return tx.SetBalance(ctx, id, -1)
			})
			if !errors.Is(err, models.ErrInvariantViolation) {
				t.Fatalf("expected invariant violation, got %v", err)
			}
		})
	}
}

func TestRollbackOnError(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t, "acct")
			boom := errors.New("boom")
			err := store.InTx(ctx, func(tx Tx) error {
				if _, err := tx.LockAccount(ctx, id); err != nil {
					return err
				}
				if err := tx.SetBalance(ctx, id, 900); err != nil {
					return err
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
			acct, err := ReadOnly(ctx, store, func(tx Tx) (*models.Account, error) {
				return tx.GetAccount(ctx, id)
			})
			if err != nil {
				t.Fatalf("GetAccount: %v", err)
			}
			if acct.Balance != 0 {
				t.Fatalf("balance leaked out of rolled back tx: %d", acct.Balance)
			}
		})
	}
}

func TestCooldownUpsert(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t, "acct")
			now := time.Now().UTC()

			set := func(at time.Time) (bool, time.Time) {
				var ok bool
				var exp time.Time
				err := store.InTx(ctx, func(tx Tx) error {
					var err error
					ok, exp, err = tx.SetCooldownIfExpired(ctx, id, "daily", at, at.Add(time.Hour))
					return err
				})
				if err != nil {
					t.Fatalf("SetCooldownIfExpired: %v", err)
				}
				return ok, exp
			}

			if ok, _ := set(now); !ok {
				t.Fatal("first set should be allowed")
			}
			ok, exp := set(now.Add(time.Minute))
			if ok {
				t.Fatal("second set inside the window should be refused")
			}
			if d := exp.Sub(now.Add(time.Hour)); d > time.Millisecond || d < -time.Millisecond {
				t.Errorf("stored expiry moved: %v", exp)
			}
			if ok, _ := set(now.Add(2 * time.Hour)); !ok {
				t.Fatal("set after expiry should overwrite")
			}
		})
	}
}

func TestSingleActiveLoanIndex(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t, "acct")
			now := time.Now().UTC()
			insert := func(loanID string) error {
				return store.InTx(ctx, func(tx Tx) error {
					if _, err := tx.LockAccount(ctx, id); err != nil {
						return err
					}
					return tx.InsertLoan(ctx, &models.Loan{
						ID: loanID, AccountID: id, Principal: 100, RemainingAmount: 110,
						InterestAmount: 10, IssuedAt: now, DueAt: now.Add(time.Hour), Status: models.LoanActive,
					})
				})
			}
			if err := insert(uuid.NewString()); err != nil {
				t.Fatalf("first loan: %v", err)
			}
			err := insert(uuid.NewString())
			if !errors.Is(err, models.ErrInvalidState) {
				t.Fatalf("expected invalid state for second active loan, got %v", err)
			}
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t, "session")
			err := store.InTx(ctx, func(tx Tx) error {
				return tx.SaveSession(ctx, &models.PersistedSession{
					ID: id, Kind: "wordchain", State: []byte(`{"a":1}`), UpdatedAt: time.Now(),
				})
			})
			if err != nil {
				t.Fatalf("SaveSession: %v", err)
			}
			got, err := ReadOnly(ctx, store, func(tx Tx) (*models.PersistedSession, error) {
				return tx.LoadSession(ctx, id)
			})
			if err != nil {
				t.Fatalf("LoadSession: %v", err)
			}
			if string(got.State) != `{"a":1}` || got.Kind != "wordchain" {
				t.Fatalf("unexpected session %+v", got)
			}

			if err := store.InTx(ctx, func(tx Tx) error { return tx.DeleteSession(ctx, id) }); err != nil {
				t.Fatalf("DeleteSession: %v", err)
			}
			_, err = ReadOnly(ctx, store, func(tx Tx) (*models.PersistedSession, error) {
				return tx.LoadSession(ctx, id)
			})
			if !errors.Is(err, models.ErrNotFound) {
				t.Fatalf("expected not found after delete, got %v", err)
			}
		})
	}
}
