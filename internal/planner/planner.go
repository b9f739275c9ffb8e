// Package planner classifies a message into an ordered list of intents
// using fixed keyword rules. It holds no state.
package planner

import (
	"strings"

	"dompet/internal/core"
)

// Intent names one action the orchestrator takes for a message.
type Intent string

const (
	CollectProfile   Intent = "collect_profile"
	CashflowSummary  Intent = "cashflow_summary"
	ExpenseBreakdown Intent = "expense_breakdown"
	Recommendations  Intent = "recommendations"
	ChitChat         Intent = "chit_chat"
)

// Rule emits Intent when When reports true for the memory, or when the
// lower-cased message contains any of Keywords.
type Rule struct {
	Intent   Intent
	Keywords []string
	When     func(core.UserMemory) bool
}

func (r Rule) matches(lowered string, memory core.UserMemory) bool {
	if r.When != nil {
		return r.When(memory)
	}
	for _, k := range r.Keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}

func missingProfile(m core.UserMemory) bool { return m.Profile == nil }

// DefaultRules returns the rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Intent: CollectProfile, When: missingProfile},
		{Intent: CashflowSummary, Keywords: []string{"cashflow", "summary", "income", "spend", "expense"}},
		{Intent: ExpenseBreakdown, Keywords: []string{"category", "breakdown", "spending"}},
		{Intent: Recommendations, Keywords: []string{"recommend", "advice", "plan", "goal"}},
	}
}

type Planner struct {
	rules []Rule
}

func New() *Planner {
	return NewWithRules(DefaultRules())
}

func NewWithRules(rules []Rule) *Planner {
	return &Planner{rules: append([]Rule(nil), rules...)}
}

// Rules returns a copy of the table the planner evaluates.
func (p *Planner) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// Plan evaluates every rule in order and returns the distinct intents that
// matched. ChitChat is returned only when nothing else matched, so the
// result is never empty.
func (p *Planner) Plan(message string, memory core.UserMemory) []Intent {
	lowered := strings.ToLower(message)
	seen := make(map[Intent]struct{}, len(p.rules))
	intents := make([]Intent, 0, len(p.rules))
	for _, r := range p.rules {
		if _, dup := seen[r.Intent]; dup {
			continue
		}
		if r.matches(lowered, memory) {
			seen[r.Intent] = struct{}{}
			intents = append(intents, r.Intent)
		}
	}
	if len(intents) == 0 {
		intents = append(intents, ChitChat)
	}
	return intents
}

// Join renders intents as the semicolon-separated tag stored on turns.
func Join(intents []Intent) string {
	parts := make([]string, len(intents))
	for i, in := range intents {
		parts[i] = string(in)
	}
	return strings.Join(parts, ";")
}

// Strings converts intents to plain strings for transport.
func Strings(intents []Intent) []string {
	out := make([]string, len(intents))
	for i, in := range intents {
		out[i] = string(in)
	}
	return out
}
