// Package conversation composes the memory store, the planner and the
// insights aggregator into a single message handler.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dompet/internal/analytics"
	"dompet/internal/core"
	"dompet/internal/insights"
	applog "dompet/internal/log"
	"dompet/internal/memory"
	"dompet/internal/observability"
	"dompet/internal/planner"
)

const (
	replyCollectProfile = "To personalise your financial plan I need some basics like your monthly income, household size, and key goals."
	replyNoExpenses     = "I don't have any expense records yet to analyse categories."
	replyOnTrack        = "You're on track! I'll keep monitoring for new opportunities."
	replyChitChat       = "I'm here to help with your Malaysian personal finance questions whenever you're ready."
	replyFallback       = "Let me know how I can assist with your finances."
)

// Aggregator is the part of insights.Service the orchestrator needs.
type Aggregator interface {
	CashflowSummary(ctx context.Context, userID string, start, end *core.Date) (core.CashflowSummary, error)
	ExpenseByCategory(ctx context.Context, userID string, start, end *core.Date) ([]core.CategoryAmount, error)
}

type Service struct {
	store    *memory.Store
	planner  *planner.Planner
	insights Aggregator
	tracker  analytics.Tracker
	metrics  *observability.Metrics
	logger   *applog.Logger
}

type Option func(*Service)

func WithTracker(t analytics.Tracker) Option {
	return func(s *Service) { s.tracker = t }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Service) { s.logger = l.WithComponent(applog.ComponentConversation) }
}

func NewService(store *memory.Store, p *planner.Planner, agg Aggregator, opts ...Option) *Service {
	s := &Service{
		store:    store,
		planner:  p,
		insights: agg,
		logger:   applog.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleMessage merges any structured update, plans the intents, renders the
// reply and records both turns. A ledger failure aborts the call after the
// user turn has been stored and before the assistant turn is written.
func (s *Service) HandleMessage(ctx context.Context, userID string, msg Message) (Response, error) {
	started := time.Now()

	var mem core.UserMemory
	if upd := msg.toStore(); !upd.IsEmpty() {
		mem = s.store.Update(userID, upd)
	} else {
		mem = s.store.Get(userID)
	}

	intents := s.planner.Plan(msg.Text, mem)
	s.logger.DebugContext(ctx, "Planned intents",
		applog.FieldUserID, userID,
		applog.FieldIntents, planner.Join(intents))

	s.store.AppendTurn(userID, core.ConversationTurn{Role: core.RoleUser, Content: msg.Text})

	fragments, err := s.render(ctx, userID, intents, mem)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to render reply",
			applog.FieldUserID, userID,
			applog.FieldError, err)
		return Response{}, fmt.Errorf("handle message: %w", err)
	}

	reply := replyFallback
	if len(fragments) > 0 {
		reply = strings.Join(fragments, "\n")
	}

	mem = s.store.AppendTurn(userID, core.ConversationTurn{
		Role:    core.RoleAssistant,
		Content: reply,
		Intent:  planner.Join(intents),
	})

	if s.metrics != nil {
		s.metrics.ObserveIntents(planner.Strings(intents))
		s.metrics.ObserveMessage(time.Since(started))
	}
	s.track(ctx, userID, intents, msg.Channel)

	s.logger.InfoContext(ctx, "Message handled",
		applog.FieldUserID, userID,
		applog.FieldIntents, planner.Join(intents),
		applog.FieldReplyLen, len(reply))

	return Response{Message: reply, Actions: intents, Memory: mem}, nil
}

func (s *Service) render(ctx context.Context, userID string, intents []planner.Intent, mem core.UserMemory) ([]string, error) {
	var (
		fragments []string
		summary   *core.CashflowSummary
	)
	loadSummary := func() (core.CashflowSummary, error) {
		if summary != nil {
			return *summary, nil
		}
		sm, err := s.insights.CashflowSummary(ctx, userID, nil, nil)
		if err != nil {
			return core.CashflowSummary{}, err
		}
		summary = &sm
		return sm, nil
	}

	for _, intent := range intents {
		switch intent {
		case planner.CollectProfile:
			if mem.Profile == nil {
				fragments = append(fragments, replyCollectProfile)
			}
		case planner.CashflowSummary:
			sm, err := loadSummary()
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, renderSummary(sm))
		case planner.ExpenseBreakdown:
			breakdown, err := s.insights.ExpenseByCategory(ctx, userID, nil, nil)
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, renderBreakdown(breakdown))
		case planner.Recommendations:
			sm, err := loadSummary()
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, renderRecommendations(insights.IncomeOpportunities(sm)))
		case planner.ChitChat:
			if len(fragments) == 0 {
				fragments = append(fragments, replyChitChat)
			}
		}
	}
	return fragments, nil
}

func (s *Service) track(ctx context.Context, userID string, intents []planner.Intent, channel core.Channel) {
	if s.tracker == nil {
		return
	}
	if channel == "" {
		channel = core.ChannelChat
	}
	ev := analytics.NewEvent(userID, analytics.EventConversationMessage, map[string]any{
		"intents": planner.Strings(intents),
		"channel": string(channel),
	})
	if err := s.tracker.Track(ctx, ev); err != nil {
		if s.metrics != nil {
			s.metrics.AnalyticsErrors.Inc()
		}
		s.logger.WarnContext(ctx, "Failed to track analytics event",
			applog.FieldEventName, ev.Name,
			applog.FieldUserID, userID,
			applog.FieldError, err)
	}
}

// GetMemory returns the user's memory bundle, creating it if needed.
func (s *Service) GetMemory(userID string) core.UserMemory {
	return s.store.Get(userID)
}

// UpdateMemory merges the update and returns the result.
func (s *Service) UpdateMemory(userID string, u MemoryUpdate) core.UserMemory {
	return s.store.Update(userID, u.toStore())
}

func renderSummary(sm core.CashflowSummary) string {
	return fmt.Sprintf("Cashflow summary: income %s, expenses %s, net %s with a saving rate of %s.",
		core.FormatAmount(sm.TotalIncome), core.FormatAmount(sm.TotalExpense), core.FormatAmount(sm.NetCashflow), core.FormatPercent(sm.SavingRate))
}

func renderBreakdown(breakdown []core.CategoryAmount) string {
	if len(breakdown) == 0 {
		return replyNoExpenses
	}
	parts := make([]string, len(breakdown))
	for i, c := range breakdown {
		parts[i] = c.Category + ": " + core.FormatAmount(c.Amount)
	}
	return "Top spending categories: " + strings.Join(parts, ", ") + "."
}

func renderRecommendations(recs []string) string {
	if len(recs) == 0 {
		return replyOnTrack
	}
	var b strings.Builder
	b.WriteString("Here are some tailored next steps:")
	for _, r := range recs {
		b.WriteString("\n- ")
		b.WriteString(r)
	}
	return b.String()
}
