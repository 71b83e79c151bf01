package economy

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"econbot/database"
	"econbot/models"
)

// Export streams every ledger row created at or after since to w as
// zstd-compressed JSON lines, oldest first. It returns the row count.
func (l *Ledger) Export(ctx context.Context, w io.Writer, since time.Time) (int, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, fmt.Errorf("zstd writer: %w", err)
	}
	buf := bufio.NewWriterSize(enc, 128*1024)
	lines := json.NewEncoder(buf)

	n := 0
	err = l.store.InTx(ctx, func(tx database.Tx) error {
		n = 0
		return tx.EachTransaction(ctx, since, func(t models.Transaction) error {
			n++
			return lines.Encode(t)
		})
	})
	if err != nil {
		enc.Close()
		return 0, fmt.Errorf("export ledger: %w", err)
	}
	if err := buf.Flush(); err != nil {
		enc.Close()
		return 0, err
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	return n, nil
}

// ReadExport decodes an export produced by Export
func ReadExport(r io.Reader, fn func(models.Transaction) error) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var t models.Transaction
		if err := json.Unmarshal(sc.Bytes(), &t); err != nil {
			return fmt.Errorf("decode ledger row: %w", err)
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return sc.Err()
}
