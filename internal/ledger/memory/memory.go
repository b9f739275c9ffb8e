package memory

import (
	"context"
	"sync"

	"dompet/internal/core"
	"dompet/internal/ledger"
)

// Ledger keeps transactions in process memory. It is the default backend for
// local development and tests.
type Ledger struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Transaction
}

func New() *Ledger {
	return &Ledger{nextID: 1}
}

// Append stores the transactions and assigns ids to those without one.
func (l *Ledger) Append(_ context.Context, txs ...core.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tx := range txs {
		if tx.ID == 0 {
			tx.ID = l.nextID
			l.nextID++
		}
		l.items = append(l.items, tx)
	}
	return nil
}

// TransactionsFor returns copies of the user's transactions in insertion order.
func (l *Ledger) TransactionsFor(ctx context.Context, userID string, start, end *core.Date) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, tx := range l.items {
		if tx.UserID != userID || !ledger.InRange(tx.PostedDate, start, end) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}
