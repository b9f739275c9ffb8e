// Package insights aggregates ledger transactions into cashflow summaries,
// category breakdowns and recommendations.
package insights

import (
	"context"
	"fmt"

	"dompet/internal/core"
	"dompet/internal/ledger"
)

// Service runs the aggregations against a ledger. Ledger errors are returned
// wrapped, never coerced into a zero result.
type Service struct {
	ledger ledger.Reader
}

func NewService(r ledger.Reader) *Service {
	return &Service{ledger: r}
}

func (s *Service) CashflowSummary(ctx context.Context, userID string, start, end *core.Date) (core.CashflowSummary, error) {
	txs, err := s.ledger.TransactionsFor(ctx, userID, start, end)
	if err != nil {
		return core.CashflowSummary{}, fmt.Errorf("load transactions: %w", err)
	}
	return Summarize(txs), nil
}

func (s *Service) ExpenseByCategory(ctx context.Context, userID string, start, end *core.Date) ([]core.CategoryAmount, error) {
	txs, err := s.ledger.TransactionsFor(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return CategoryBreakdown(txs), nil
}

// Recommendations summarises the whole ledger and derives the advice list.
func (s *Service) Recommendations(ctx context.Context, userID string) ([]string, error) {
	summary, err := s.CashflowSummary(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}
	return IncomeOpportunities(summary), nil
}
