package ingestion

import (
	"context"
	"fmt"

	"dompet/internal/analytics"
	"dompet/internal/core"
	"dompet/internal/ledger"
	applog "dompet/internal/log"
)

// Service validates and stores transactions, then emits an analytics event
type Service struct {
	ledger  ledger.Ledger
	tracker analytics.Tracker
	logger  *applog.Logger
}

func NewService(l ledger.Ledger, tracker analytics.Tracker, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Service{
		ledger:  l,
		tracker: tracker,
		logger:  logger.WithComponent(applog.ComponentIngestion),
	}
}

// Ingest stores the batch and returns how many records were written. The
// whole batch is rejected if any record is invalid.
func (s *Service) Ingest(ctx context.Context, txs []core.Transaction) (int, error) {
	records := make([]core.Transaction, 0, len(txs))
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return 0, fmt.Errorf("transaction %d: %w", i, err)
		}
		records = append(records, tx.Normalize())
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := s.ledger.Append(ctx, records...); err != nil {
		return 0, fmt.Errorf("append transactions: %w", err)
	}

	userID := records[len(records)-1].UserID
	s.logger.InfoContext(ctx, "Transactions ingested",
		applog.FieldUserID, userID,
		applog.FieldCount, len(records))

	if s.tracker != nil {
		ev := analytics.NewEvent(userID, analytics.EventTransactionsIngested, map[string]any{"count": len(records)})
		if err := s.tracker.Track(ctx, ev); err != nil {
			// records are already stored
			s.logger.WarnContext(ctx, "Failed to track analytics event",
				applog.FieldEventName, ev.Name,
				applog.FieldError, err)
		}
	}
	return len(records), nil
}

// List returns every transaction of the user in insertion order.
func (s *Service) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	txs, err := s.ledger.TransactionsFor(ctx, userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}
