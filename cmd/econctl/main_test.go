package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"econbot/database"
	"econbot/economy"
	"econbot/models"
)

func TestParseSince(t *testing.T) {
	if got, err := parseSince(""); err != nil || !got.IsZero() {
		t.Errorf("empty = %v, %v", got, err)
	}
	got, err := parseSince("2025-05-01T09:00:00Z")
	if err != nil || !got.Equal(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("rfc3339 = %v, %v", got, err)
	}
	got, err = parseSince("72h")
	if err != nil || time.Since(got) < 71*time.Hour {
		t.Errorf("duration = %v, %v", got, err)
	}
	for _, bad := range []string{"yesterday", "-5h"} {
		if _, err := parseSince(bad); err == nil {
			t.Errorf("parseSince(%q) accepted", bad)
		}
	}
}

func TestSummariseExport(t *testing.T) {
	ctx := context.Background()
	store, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "ctl.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	ledger := economy.NewLedger(store, nil, nil)

	if _, err := ledger.Grant(ctx, "ann", 500, "seed"); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.Grant(ctx, "bob", 300, "seed"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ledger.Transfer(ctx, "ann", "bob", 200, "gift"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	n, err := ledger.Export(ctx, &buf, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	s, err := summarise(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if s.Rows != n || s.Accounts != 2 {
		t.Errorf("rows %d (exported %d), accounts %d", s.Rows, n, s.Accounts)
	}
	if s.ByKind[models.KindAdmin] != 800 {
		t.Errorf("admin total = %d", s.ByKind[models.KindAdmin])
	}
	if s.ByKind[models.KindTransfer] != 0 {
		t.Errorf("transfers should net to zero, got %d", s.ByKind[models.KindTransfer])
	}
}
