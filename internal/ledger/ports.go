package ledger

import (
	"context"

	"dompet/internal/core"
)

// Ports for the transaction ledger.
type (
	// Reader returns a user's transactions. Bounds are inclusive; a nil
	// bound is unbounded in that direction.
	Reader interface {
		TransactionsFor(ctx context.Context, userID string, start, end *core.Date) ([]core.Transaction, error)
	}

	// Writer persists already normalised transactions.
	Writer interface {
		Append(ctx context.Context, txs ...core.Transaction) error
	}

	Ledger interface {
		Reader
		Writer
	}
)

// InRange reports whether d lies within the inclusive bounds.
func InRange(d core.Date, start, end *core.Date) bool {
	if start != nil && d.Before(*start) {
		return false
	}
	if end != nil && d.After(*end) {
		return false
	}
	return true
}
