package conversation

import (
	"fmt"
	"strings"

	"dompet/internal/core"
	"dompet/internal/memory"
	"dompet/internal/planner"
)

// MemoryUpdate is the structured payload that can accompany a message or be
// submitted on its own.
type MemoryUpdate struct {
	Profile     *core.UserProfile    `json:"profile,omitempty"`
	Goals       []core.FinancialGoal `json:"goals,omitempty"`
	Obligations []core.Obligation    `json:"obligations,omitempty"`
}

// Message is an inbound message from any conversational channel.
type Message struct {
	Text    string       `json:"message"`
	Channel core.Channel `json:"channel,omitempty"`
	MemoryUpdate
}

type Response struct {
	Message string           `json:"message"`
	Actions []planner.Intent `json:"actions"`
	Memory  core.UserMemory  `json:"memory"`
}

// Prepare fills enumeration defaults and rejects malformed entries.
func (u *MemoryUpdate) Prepare() error {
	if u.Profile != nil {
		u.Profile.ApplyDefaults()
		if err := u.Profile.Validate(); err != nil {
			return fmt.Errorf("profile: %w", err)
		}
	}
	for i := range u.Goals {
		u.Goals[i].ApplyDefaults()
		if err := u.Goals[i].Validate(); err != nil {
			return err
		}
	}
	for i := range u.Obligations {
		u.Obligations[i].ApplyDefaults()
		if err := u.Obligations[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (u MemoryUpdate) toStore() memory.Update {
	return memory.Update{Profile: u.Profile, Goals: u.Goals, Obligations: u.Obligations}
}

// Prepare defaults the channel to chat and validates the payload.
func (m *Message) Prepare() error {
	if strings.TrimSpace(m.Text) == "" {
		return core.ErrEmptyMessage
	}
	if m.Channel == "" {
		m.Channel = core.ChannelChat
	}
	if !m.Channel.IsValid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidChannel, m.Channel)
	}
	return m.MemoryUpdate.Prepare()
}
