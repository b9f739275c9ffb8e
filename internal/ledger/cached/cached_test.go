package cached

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dompet/internal/core"
	"dompet/internal/ledger"
	ledgermem "dompet/internal/ledger/memory"
)

// countingLedger counts reads that reach the wrapped ledger.
type countingLedger struct {
	ledger.Ledger
	reads     int
	appendErr error
}

func (c *countingLedger) TransactionsFor(ctx context.Context, userID string, start, end *core.Date) ([]core.Transaction, error) {
	c.reads++
	return c.Ledger.TransactionsFor(ctx, userID, start, end)
}

func (c *countingLedger) Append(ctx context.Context, txs ...core.Transaction) error {
	if c.appendErr != nil {
		return c.appendErr
	}
	return c.Ledger.Append(ctx, txs...)
}

// gatedLedger blocks the first read after it has fetched from the wrapped
// ledger until release is closed.
type gatedLedger struct {
	ledger.Ledger
	once    sync.Once
	fetched chan struct{}
	release chan struct{}
}

func (g *gatedLedger) TransactionsFor(ctx context.Context, userID string, start, end *core.Date) ([]core.Transaction, error) {
	txs, err := g.Ledger.TransactionsFor(ctx, userID, start, end)
	g.once.Do(func() {
		close(g.fetched)
		<-g.release
	})
	return txs, err
}

func tx(user string, day int, amount float64) core.Transaction {
	return core.Transaction{
		UserID:      user,
		PostedDate:  core.NewDate(2024, 1, day),
		Description: "entry",
		Amount:      amount,
		Category:    "food",
		AccountType: core.UnknownAccount,
	}
}

func TestLedger_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := &countingLedger{Ledger: ledgermem.New()}
	l := New(inner, 16, time.Minute)

	if err := l.Append(ctx, tx("u1", 1, -10), tx("u2", 1, -5)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := l.TransactionsFor(ctx, "u1", nil, nil)
		if err != nil || len(got) != 1 {
			t.Fatalf("TransactionsFor() = %v, %v", got, err)
		}
	}
	if inner.reads != 1 {
		t.Fatalf("inner reads = %d, want 1", inner.reads)
	}

	start := core.NewDate(2024, 1, 2)
	if _, err := l.TransactionsFor(ctx, "u1", &start, nil); err != nil {
		t.Fatal(err)
	}
	if inner.reads != 2 {
		t.Fatalf("a different range must miss; reads = %d", inner.reads)
	}
	if _, err := l.TransactionsFor(ctx, "u2", nil, nil); err != nil {
		t.Fatal(err)
	}

	if err := l.Append(ctx, tx("u1", 3, -20)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, _ := l.TransactionsFor(ctx, "u1", nil, nil)
	if len(got) != 2 {
		t.Fatalf("after append got %d transactions, want 2", len(got))
	}
	before := inner.reads
	if _, err := l.TransactionsFor(ctx, "u2", nil, nil); err != nil {
		t.Fatal(err)
	}
	if inner.reads != before {
		t.Fatal("appending for u1 must not evict u2")
	}

	if hits, misses := l.Stats(); hits == 0 || misses == 0 {
		t.Fatalf("Stats() = %d hits, %d misses", hits, misses)
	}
}

func TestLedger_CallerCannotMutateCache(t *testing.T) {
	ctx := context.Background()
	l := New(ledgermem.New(), 16, time.Minute)
	if err := l.Append(ctx, tx("u1", 1, -10)); err != nil {
		t.Fatal(err)
	}

	first, _ := l.TransactionsFor(ctx, "u1", nil, nil)
	first[0].Amount = 999
	second, _ := l.TransactionsFor(ctx, "u1", nil, nil)
	if second[0].Amount != -10 {
		t.Fatalf("cached entry was mutated: %v", second[0].Amount)
	}
}

func TestLedger_AppendErrorStillInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := &countingLedger{Ledger: ledgermem.New()}
	l := New(inner, 16, time.Minute)

	if _, err := l.TransactionsFor(ctx, "u1", nil, nil); err != nil {
		t.Fatal(err)
	}
	inner.appendErr = errors.New("disk full")
	if err := l.Append(ctx, tx("u1", 1, -10)); !errors.Is(err, inner.appendErr) {
		t.Fatalf("Append() = %v, want %v", err, inner.appendErr)
	}
	if _, err := l.TransactionsFor(ctx, "u1", nil, nil); err != nil {
		t.Fatal(err)
	}
	if inner.reads != 2 {
		t.Fatalf("inner reads = %d, want 2", inner.reads)
	}
}

func TestLedger_ReadOverlappingAppendIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &gatedLedger{
		Ledger:  ledgermem.New(),
		fetched: make(chan struct{}),
		release: make(chan struct{}),
	}
	l := New(inner, 16, time.Minute)

	done := make(chan []core.Transaction)
	go func() {
		got, _ := l.TransactionsFor(ctx, "u1", nil, nil)
		done <- got
	}()

	<-inner.fetched
	if err := l.Append(ctx, tx("u1", 1, -10)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	close(inner.release)

	if got := <-done; len(got) != 0 {
		t.Fatalf("overlapping read got %d transactions, want 0", len(got))
	}
	got, err := l.TransactionsFor(ctx, "u1", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("read after append got %d transactions, want 1", len(got))
	}
}

func TestLedger_Entries(t *testing.T) {
	ctx := context.Background()
	l := New(ledgermem.New(), 16, time.Minute)

	start := core.NewDate(2024, 1, 2)
	for _, s := range []*core.Date{nil, &start} {
		if _, err := l.TransactionsFor(ctx, "u1", s, nil); err != nil {
			t.Fatal(err)
		}
	}
	if got := l.Entries(); got != 2 {
		t.Fatalf("Entries() = %d, want 2", got)
	}
	if err := l.Append(ctx, tx("u1", 3, -1)); err != nil {
		t.Fatal(err)
	}
	if got := l.Entries(); got != 0 {
		t.Fatalf("Entries() after append = %d, want 0", got)
	}
}
