package insights

import (
	"github.com/shopspring/decimal"

	"dompet/internal/core"
)

const (
	// TargetSavingRate is the rate below which an emergency-fund top-up is suggested.
	TargetSavingRate = 0.20
	// SupplementaryIncomeThreshold splits side-income advice from contribution advice.
	SupplementaryIncomeThreshold = 5000.0
)

const (
	RecEmergencyFund        = "Increase emergency fund contributions to reach at least a 20% saving rate."
	RecReduceRecurringCosts = "Review recurring subscriptions and renegotiate utility bills to reduce monthly burn."
	RecSupplementaryIncome  = "Explore part-time gig economy platforms popular in Malaysia such as Grab, FoodPanda, or Upwork."
	RecOptimiseContribution = "Consider optimising EPF/PRS contributions for tax relief while reallocating surplus into higher-yield instruments."
)

// Summarize computes the cashflow summary of the given transactions. Income
// sums positive amounts, expense sums the absolute value of negative ones.
func Summarize(txs []core.Transaction) core.CashflowSummary {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		amt := decimal.NewFromFloat(tx.Amount)
		switch {
		case amt.IsPositive():
			income = income.Add(amt)
		case amt.IsNegative():
			expense = expense.Add(amt.Abs())
		}
	}
	net := income.Sub(expense)
	rate := decimal.Zero
	if !income.IsZero() {
		rate = net.Div(income)
	}
	return core.CashflowSummary{
		TotalIncome:  round2(income),
		TotalExpense: round2(expense),
		NetCashflow:  round2(net),
		SavingRate:   round2(rate),
	}
}

// CategoryBreakdown sums expenses per category in first-seen order. Empty
// categories fall into core.Uncategorised and zero totals are omitted.
func CategoryBreakdown(txs []core.Transaction) []core.CategoryAmount {
	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, tx := range txs {
		amt := decimal.NewFromFloat(tx.Amount)
		if !amt.IsNegative() {
			continue
		}
		cat := core.CategoryOrDefault(tx.Category)
		if _, ok := totals[cat]; !ok {
			order = append(order, cat)
		}
		totals[cat] = totals[cat].Add(amt.Abs())
	}

	out := make([]core.CategoryAmount, 0, len(order))
	for _, cat := range order {
		v := round2(totals[cat])
		if v == 0 {
			continue
		}
		out = append(out, core.CategoryAmount{Category: cat, Amount: v})
	}
	return out
}

// IncomeOpportunities applies the recommendation rules in fixed order. The
// first two are independent; the last pair is split on the income threshold.
func IncomeOpportunities(s core.CashflowSummary) []string {
	var recs []string
	if s.SavingRate < TargetSavingRate {
		recs = append(recs, RecEmergencyFund)
	}
	if s.NetCashflow <= 0 {
		recs = append(recs, RecReduceRecurringCosts)
	}
	if s.TotalIncome < SupplementaryIncomeThreshold {
		recs = append(recs, RecSupplementaryIncome)
	} else {
		recs = append(recs, RecOptimiseContribution)
	}
	return recs
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
