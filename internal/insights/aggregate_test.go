package insights

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"dompet/internal/core"
	mem "dompet/internal/ledger/memory"
)

func seedTransactions() []core.Transaction {
	return []core.Transaction{
		{UserID: "u1", PostedDate: core.NewDate(2024, 1, 1), Description: "Salary", Amount: 6000, Category: "income"},
		{UserID: "u1", PostedDate: core.NewDate(2024, 1, 5), Description: "Rent", Amount: -1800, Category: "housing"},
		{UserID: "u1", PostedDate: core.NewDate(2024, 1, 15), Description: "Utilities", Amount: -300, Category: "utilities"},
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(seedTransactions())
	want := core.CashflowSummary{TotalIncome: 6000, TotalExpense: 2100, NetCashflow: 3900, SavingRate: 0.65}
	if got != want {
		t.Fatalf("Summarize() = %+v, want %+v", got, want)
	}
}

func TestSummarizeZeroIncome(t *testing.T) {
	got := Summarize([]core.Transaction{
		{Amount: -120.5},
		{Amount: -79.5},
	})
	if got.SavingRate != 0.0 {
		t.Fatalf("expected zero saving rate, got %v", got.SavingRate)
	}
	if got.TotalIncome != 0 || got.TotalExpense != 200 || got.NetCashflow != -200 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); got != (core.CashflowSummary{}) {
		t.Fatalf("expected zero summary, got %+v", got)
	}
}

func TestSummarizeRounding(t *testing.T) {
	got := Summarize([]core.Transaction{
		{Amount: 0.1}, {Amount: 0.2}, {Amount: 1000},
		{Amount: -333.333},
	})
	if got.TotalIncome != 1000.3 || got.TotalExpense != 333.33 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got.SavingRate != 0.67 {
		t.Fatalf("expected saving rate 0.67, got %v", got.SavingRate)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	got := CategoryBreakdown(seedTransactions())
	want := []core.CategoryAmount{{Category: "housing", Amount: 1800}, {Category: "utilities", Amount: 300}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CategoryBreakdown() = %v, want %v", got, want)
	}
}

func TestCategoryBreakdownUncategorisedAndZero(t *testing.T) {
	got := CategoryBreakdown([]core.Transaction{
		{Amount: -10, Category: ""},
		{Amount: -5, Category: "   "},
		{Amount: -0.001, Category: "dust"},
		{Amount: 50, Category: "salary"},
		{Amount: -2.5, Category: "food"},
		{Amount: -2.5, Category: "food"},
	})
	want := []core.CategoryAmount{{Category: core.Uncategorised, Amount: 15}, {Category: "food", Amount: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CategoryBreakdown() = %v, want %v", got, want)
	}
}

func TestIncomeOpportunities(t *testing.T) {
	tests := []struct {
		name    string
		summary core.CashflowSummary
		want    []string
	}{
		{
			name:    "healthy high income",
			summary: core.CashflowSummary{TotalIncome: 6000, TotalExpense: 2100, NetCashflow: 3900, SavingRate: 0.65},
			want:    []string{RecOptimiseContribution},
		},
		{
			name:    "empty ledger",
			summary: core.CashflowSummary{},
			want:    []string{RecEmergencyFund, RecReduceRecurringCosts, RecSupplementaryIncome},
		},
		{
			name:    "low saving rate high income",
			summary: core.CashflowSummary{TotalIncome: 8000, TotalExpense: 7000, NetCashflow: 1000, SavingRate: 0.13},
			want:    []string{RecEmergencyFund, RecOptimiseContribution},
		},
		{
			name:    "boundary values",
			summary: core.CashflowSummary{TotalIncome: 5000, TotalExpense: 4000, NetCashflow: 1000, SavingRate: 0.20},
			want:    []string{RecOptimiseContribution},
		},
		{
			name:    "healthy low income",
			summary: core.CashflowSummary{TotalIncome: 3000, TotalExpense: 1500, NetCashflow: 1500, SavingRate: 0.5},
			want:    []string{RecSupplementaryIncome},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IncomeOpportunities(tt.summary); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("IncomeOpportunities() = %v, want %v", got, tt.want)
			}
		})
	}
}

type failingLedger struct{ err error }

func (f failingLedger) TransactionsFor(context.Context, string, *core.Date, *core.Date) ([]core.Transaction, error) {
	return nil, f.err
}

func TestServiceAgainstLedger(t *testing.T) {
	ctx := context.Background()
	l := mem.New()
	if err := l.Append(ctx, seedTransactions()...); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := NewService(l)

	summary, err := s.CashflowSummary(ctx, "u1", nil, nil)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalIncome != 6000 || summary.TotalExpense != 2100 || summary.NetCashflow != 3900 || summary.SavingRate != 0.65 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	start, end := core.NewDate(2024, 1, 2), core.NewDate(2024, 1, 10)
	ranged, err := s.ExpenseByCategory(ctx, "u1", &start, &end)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if !reflect.DeepEqual(ranged, []core.CategoryAmount{{Category: "housing", Amount: 1800}}) {
		t.Fatalf("unexpected ranged breakdown %v", ranged)
	}

	recs, err := s.Recommendations(ctx, "u1")
	if err != nil || !reflect.DeepEqual(recs, []string{RecOptimiseContribution}) {
		t.Fatalf("unexpected recommendations %v err=%v", recs, err)
	}
}

func TestServicePropagatesLedgerErrors(t *testing.T) {
	boom := errors.New("ledger unavailable")
	s := NewService(failingLedger{err: boom})
	ctx := context.Background()

	if _, err := s.CashflowSummary(ctx, "u1", nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected ledger error, got %v", err)
	}
	if _, err := s.ExpenseByCategory(ctx, "u1", nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected ledger error, got %v", err)
	}
	if _, err := s.Recommendations(ctx, "u1"); !errors.Is(err, boom) {
		t.Fatalf("expected ledger error, got %v", err)
	}
}
