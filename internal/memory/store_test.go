package memory

import (
	"fmt"
	"sync"
	"testing"

	"dompet/internal/core"
)

func amount(v float64) *float64 { return &v }

func TestGetCreatesEmptyMemoryLazily(t *testing.T) {
	s := NewStore()
	if s.Len() != 0 {
		t.Fatalf("expected empty store")
	}
	m := s.Get("u1")
	if m.UserID != "u1" || m.Profile != nil {
		t.Fatalf("unexpected memory %+v", m)
	}
	if m.Goals == nil || m.Obligations == nil || m.ConversationHistory == nil {
		t.Fatalf("collections should be empty, not nil")
	}
	s.Get("u1")
	if s.Len() != 1 {
		t.Fatalf("expected exactly one bundle, got %d", s.Len())
	}
}

func TestUpdateGoalIsIdempotent(t *testing.T) {
	s := NewStore()
	goal := core.FinancialGoal{Name: "Emergency fund", TargetAmount: amount(12000), Priority: core.PriorityHigh}

	s.Update("u1", Update{Goals: []core.FinancialGoal{goal}})
	m := s.Update("u1", Update{Goals: []core.FinancialGoal{goal}})

	if len(m.Goals) != 1 {
		t.Fatalf("expected one goal, got %d", len(m.Goals))
	}
}

func TestUpdateGoalOverridesByCaseInsensitiveName(t *testing.T) {
	s := NewStore()
	s.Update("u1", Update{Goals: []core.FinancialGoal{
		{Name: "Emergency fund", TargetAmount: amount(12000), Priority: core.PriorityHigh},
		{Name: "Holiday", TargetAmount: amount(3000), Priority: core.PriorityLow},
	}})
	m := s.Update("u1", Update{Goals: []core.FinancialGoal{
		{Name: "EMERGENCY FUND", TargetAmount: amount(15000), Priority: core.PriorityHigh},
	}})

	if len(m.Goals) != 2 {
		t.Fatalf("expected goal count unchanged, got %d", len(m.Goals))
	}
	if m.Goals[0].Key() != "emergency fund" || *m.Goals[0].TargetAmount != 15000 {
		t.Fatalf("expected replaced goal in first position, got %+v", m.Goals[0])
	}
	if m.Goals[1].Name != "Holiday" {
		t.Fatalf("unexpected second goal %+v", m.Goals[1])
	}
}

func TestUpdateObligationsMergeAndAppend(t *testing.T) {
	s := NewStore()
	s.Update("u1", Update{Obligations: []core.Obligation{{Name: "Rent", Amount: 1500, Cadence: core.Monthly}}})
	m := s.Update("u1", Update{Obligations: []core.Obligation{
		{Name: "rent", Amount: 1600, Cadence: core.Monthly},
		{Name: "Car loan", Amount: 900, Cadence: core.Monthly},
	}})

	if len(m.Obligations) != 2 {
		t.Fatalf("expected 2 obligations, got %d", len(m.Obligations))
	}
	if m.Obligations[0].Amount != 1600 || m.Obligations[1].Name != "Car loan" {
		t.Fatalf("unexpected obligations %+v", m.Obligations)
	}
}

func TestUpdateProfileReplacesWholesale(t *testing.T) {
	s := NewStore()
	age := 32
	loc := "Kuala Lumpur"
	s.Update("u1", Update{Profile: &core.UserProfile{Name: "Aisha", Age: &age, Location: &loc, RiskAppetite: core.Balanced}})
	m := s.Update("u1", Update{Profile: &core.UserProfile{Name: "Aisha", RiskAppetite: core.Aggressive}})

	if m.Profile == nil || m.Profile.Age != nil || m.Profile.Location != nil {
		t.Fatalf("expected profile replaced wholesale, got %+v", m.Profile)
	}
	if m.Profile.RiskAppetite != core.Aggressive {
		t.Fatalf("unexpected risk appetite %q", m.Profile.RiskAppetite)
	}
}

func TestUpdateAbsentFieldsAreUntouched(t *testing.T) {
	s := NewStore()
	s.Update("u1", Update{
		Profile: &core.UserProfile{Name: "Aisha", RiskAppetite: core.Balanced},
		Goals:   []core.FinancialGoal{{Name: "House", Priority: core.PriorityMedium}},
	})
	m := s.Update("u1", Update{Obligations: []core.Obligation{{Name: "Rent", Amount: 1, Cadence: core.Monthly}}})

	if m.Profile == nil || len(m.Goals) != 1 || len(m.Obligations) != 1 {
		t.Fatalf("absent fields were modified: %+v", m)
	}
}

func TestAppendTurnCapsHistory(t *testing.T) {
	s := NewStore()
	var m core.UserMemory
	for i := 0; i < 25; i++ {
		m = s.AppendTurn("u1", core.ConversationTurn{Role: core.RoleUser, Content: fmt.Sprintf("turn-%d", i)})
	}

	if len(m.ConversationHistory) != DefaultHistoryLimit {
		t.Fatalf("expected %d turns, got %d", DefaultHistoryLimit, len(m.ConversationHistory))
	}
	for i, turn := range m.ConversationHistory {
		want := fmt.Sprintf("turn-%d", i+5)
		if turn.Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, turn.Content)
		}
	}
}

func TestCustomHistoryLimit(t *testing.T) {
	s := NewStoreWithLimit(3)
	for i := 0; i < 5; i++ {
		s.AppendTurn("u1", core.ConversationTurn{Role: core.RoleUser, Content: fmt.Sprint(i)})
	}
	m := s.Get("u1")
	if len(m.ConversationHistory) != 3 || m.ConversationHistory[0].Content != "2" {
		t.Fatalf("unexpected history %+v", m.ConversationHistory)
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := NewStore()
	m := s.Update("u1", Update{Goals: []core.FinancialGoal{{Name: "House", TargetAmount: amount(1), Priority: core.PriorityLow}}})
	*m.Goals[0].TargetAmount = 999
	m.Goals = append(m.Goals, core.FinancialGoal{Name: "Leak"})

	fresh := s.Get("u1")
	if len(fresh.Goals) != 1 || *fresh.Goals[0].TargetAmount != 1 {
		t.Fatalf("store state leaked through snapshot: %+v", fresh.Goals)
	}
}

func TestConcurrentDisjointGoalUpdates(t *testing.T) {
	s := NewStore()
	const writers = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Update("u1", Update{Goals: []core.FinancialGoal{{Name: fmt.Sprintf("goal-%d", i), Priority: core.PriorityLow}}})
			s.AppendTurn("u1", core.ConversationTurn{Role: core.RoleUser, Content: "x"})
		}(i)
	}
	wg.Wait()

	m := s.Get("u1")
	if len(m.Goals) != writers {
		t.Fatalf("lost updates: expected %d goals, got %d", writers, len(m.Goals))
	}
	if len(m.ConversationHistory) != DefaultHistoryLimit {
		t.Fatalf("expected capped history, got %d", len(m.ConversationHistory))
	}
}

func TestMergeByKeyOrder(t *testing.T) {
	got := mergeByKey([]string{"a", "b"}, []string{"c", "A", "d"}, func(s string) string {
		if s == "A" {
			return "a"
		}
		return s
	})
	want := []string{"A", "b", "c", "d"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestUpdateIsEmpty(t *testing.T) {
	if !(Update{}).IsEmpty() {
		t.Fatalf("zero update should be empty")
	}
	if !(Update{Goals: []core.FinancialGoal{}}).IsEmpty() {
		t.Fatalf("empty goal list should not count as an update")
	}
	if (Update{Profile: &core.UserProfile{Name: "x"}}).IsEmpty() {
		t.Fatalf("profile update should not be empty")
	}
}
