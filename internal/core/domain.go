package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"

	Weekly    Cadence = "weekly"
	Monthly   Cadence = "monthly"
	Quarterly Cadence = "quarterly"
	Yearly    Cadence = "yearly"

	IncomeWeekly   IncomeCadence = "weekly"
	IncomeBiweekly IncomeCadence = "biweekly"
	IncomeMonthly  IncomeCadence = "monthly"
	IncomeAdHoc    IncomeCadence = "ad-hoc"

	Conservative RiskAppetite = "conservative"
	Balanced     RiskAppetite = "balanced"
	Aggressive   RiskAppetite = "aggressive"

	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"

	ChannelChat  Channel = "chat"
	ChannelVoice Channel = "voice"
	ChannelEmail Channel = "email"
)

type (
	Priority      string
	Cadence       string
	IncomeCadence string
	RiskAppetite  string
	Role          string
	Channel       string

	// FinancialGoal is a long or short term objective. Its identity is the
	// lower-cased name.
	FinancialGoal struct {
		Name         string   `json:"name"`
		TargetAmount *float64 `json:"target_amount,omitempty"`
		TargetDate   *Date    `json:"target_date,omitempty"`
		Priority     Priority `json:"priority"`
		Notes        *string  `json:"notes,omitempty"`
	}

	// Obligation is a recurring payment or liability the user must service.
	Obligation struct {
		Name     string  `json:"name"`
		Amount   float64 `json:"amount"`
		Cadence  Cadence `json:"cadence"`
		Category *string `json:"category,omitempty"`
	}

	IncomeStream struct {
		Name    string        `json:"name"`
		Cadence IncomeCadence `json:"cadence"`
		Amount  *float64      `json:"amount,omitempty"`
	}

	// UserProfile is always replaced wholesale, never merged field by field.
	UserProfile struct {
		Name          string         `json:"name"`
		Age           *int           `json:"age,omitempty"`
		HouseholdSize *int           `json:"household_size,omitempty"`
		Location      *string        `json:"location,omitempty"`
		IncomeStreams []IncomeStream `json:"income_streams"`
		RiskAppetite  RiskAppetite   `json:"risk_appetite"`
	}

	ConversationTurn struct {
		Role    Role   `json:"role"`
		Content string `json:"content"`
		Intent  string `json:"intent,omitempty"`
	}

	// UserMemory is the memory bundle kept for one user.
	UserMemory struct {
		UserID              string             `json:"user_id"`
		Profile             *UserProfile       `json:"profile"`
		Goals               []FinancialGoal    `json:"goals"`
		Obligations         []Obligation       `json:"obligations"`
		ConversationHistory []ConversationTurn `json:"conversation_history"`
	}
)

var (
	ErrEmptyUserID         = errors.New("empty user id")
	ErrEmptyMessage        = errors.New("empty message")
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidPriority     = errors.New("invalid priority")
	ErrInvalidCadence      = errors.New("invalid cadence")
	ErrInvalidRiskAppetite = errors.New("invalid risk appetite")
	ErrInvalidChannel      = errors.New("invalid channel")
	ErrInvalidAge          = errors.New("invalid age")
	ErrInvalidHousehold    = errors.New("invalid household size")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrInvalidRange        = errors.New("start date is after end date")
)

// NewUserMemory returns an empty bundle with non-nil collections.
func NewUserMemory(userID string) UserMemory {
	return UserMemory{
		UserID:              userID,
		Goals:               []FinancialGoal{},
		Obligations:         []Obligation{},
		ConversationHistory: []ConversationTurn{},
	}
}

// Key returns the merge identity of the goal.
func (g FinancialGoal) Key() string {
	return strings.ToLower(g.Name)
}

// Key returns the merge identity of the obligation.
func (o Obligation) Key() string {
	return strings.ToLower(o.Name)
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (c Cadence) IsValid() bool {
	switch c {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (c IncomeCadence) IsValid() bool {
	switch c {
	case IncomeWeekly, IncomeBiweekly, IncomeMonthly, IncomeAdHoc:
		return true
	}
	return false
}

func (r RiskAppetite) IsValid() bool {
	switch r {
	case Conservative, Balanced, Aggressive:
		return true
	}
	return false
}

func (c Channel) IsValid() bool {
	switch c {
	case ChannelChat, ChannelVoice, ChannelEmail:
		return true
	}
	return false
}

// ApplyDefaults fills the enumerations left blank by the caller.
func (g *FinancialGoal) ApplyDefaults() {
	if g.Priority == "" {
		g.Priority = PriorityMedium
	}
}

func (g FinancialGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.Priority.IsValid() {
		return fmt.Errorf("goal %q: %w", g.Name, ErrInvalidPriority)
	}
	if g.TargetAmount != nil && *g.TargetAmount < 0 {
		return fmt.Errorf("goal %q: %w", g.Name, ErrNegativeAmount)
	}
	if g.TargetDate != nil {
		if err := g.TargetDate.Validate(); err != nil {
			return fmt.Errorf("goal %q: %w", g.Name, err)
		}
	}
	return nil
}

func (o *Obligation) ApplyDefaults() {
	if o.Cadence == "" {
		o.Cadence = Monthly
	}
}

func (o Obligation) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return ErrEmptyName
	}
	if !o.Cadence.IsValid() {
		return fmt.Errorf("obligation %q: %w", o.Name, ErrInvalidCadence)
	}
	if o.Amount < 0 {
		return fmt.Errorf("obligation %q: %w", o.Name, ErrNegativeAmount)
	}
	return nil
}

func (s *IncomeStream) ApplyDefaults() {
	if s.Cadence == "" {
		s.Cadence = IncomeMonthly
	}
}

func (s IncomeStream) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if !s.Cadence.IsValid() {
		return fmt.Errorf("income stream %q: %w", s.Name, ErrInvalidCadence)
	}
	if s.Amount != nil && *s.Amount < 0 {
		return fmt.Errorf("income stream %q: %w", s.Name, ErrNegativeAmount)
	}
	return nil
}

func (p *UserProfile) ApplyDefaults() {
	if p.RiskAppetite == "" {
		p.RiskAppetite = Balanced
	}
	if p.IncomeStreams == nil {
		p.IncomeStreams = []IncomeStream{}
	}
	for i := range p.IncomeStreams {
		p.IncomeStreams[i].ApplyDefaults()
	}
}

func (p UserProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > 150) {
		return ErrInvalidAge
	}
	if p.HouseholdSize != nil && *p.HouseholdSize < 1 {
		return ErrInvalidHousehold
	}
	if !p.RiskAppetite.IsValid() {
		return ErrInvalidRiskAppetite
	}
	for _, s := range p.IncomeStreams {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so callers never share backing arrays with the
// store that produced the bundle.
func (m UserMemory) Clone() UserMemory {
	out := UserMemory{
		UserID:              m.UserID,
		Goals:               make([]FinancialGoal, len(m.Goals)),
		Obligations:         make([]Obligation, len(m.Obligations)),
		ConversationHistory: make([]ConversationTurn, len(m.ConversationHistory)),
	}
	if m.Profile != nil {
		p := m.Profile.Clone()
		out.Profile = &p
	}
	for i, g := range m.Goals {
		out.Goals[i] = g.Clone()
	}
	for i, o := range m.Obligations {
		out.Obligations[i] = o.Clone()
	}
	copy(out.ConversationHistory, m.ConversationHistory)
	return out
}

// Clone returns a copy that shares no pointers with g.
func (g FinancialGoal) Clone() FinancialGoal {
	g.TargetAmount = clonePtr(g.TargetAmount)
	g.TargetDate = clonePtr(g.TargetDate)
	g.Notes = clonePtr(g.Notes)
	return g
}

func (o Obligation) Clone() Obligation {
	o.Category = clonePtr(o.Category)
	return o
}

func (p UserProfile) Clone() UserProfile {
	p.Age = clonePtr(p.Age)
	p.HouseholdSize = clonePtr(p.HouseholdSize)
	p.Location = clonePtr(p.Location)
	streams := make([]IncomeStream, len(p.IncomeStreams))
	for i, s := range p.IncomeStreams {
		s.Amount = clonePtr(s.Amount)
		streams[i] = s
	}
	p.IncomeStreams = streams
	return p
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Date is a calendar day serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Before reports whether d falls on an earlier day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls on a later day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}
