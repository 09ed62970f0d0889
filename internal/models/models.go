package models

import (
	"fmt"
	"strings"
	"time"
)

// JokeRecord is one entry of a session's joke history.
type JokeRecord struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type SelectionMode string

const (
	ModeAdd     SelectionMode = "add"
	ModeReplace SelectionMode = "replace"
)

func ParseSelectionMode(s string) (SelectionMode, error) {
	switch SelectionMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAdd:
		return ModeAdd, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("unknown selection mode %q", s)
	}
}

func (m SelectionMode) Toggle() SelectionMode {
	if m == ModeReplace {
		return ModeAdd
	}
	return ModeReplace
}

func (m SelectionMode) Valid() bool {
	return m == ModeAdd || m == ModeReplace
}

type JokeType string

const (
	JokeTypeSingle  JokeType = "single"
	JokeTypeTwoPart JokeType = "twopart"
)

// JokeAPIResponse is the subset of the JokeAPI payload the plugin reads.
type JokeAPIResponse struct {
	Error    bool     `json:"error"`
	Joke     string   `json:"joke,omitempty"`
	Setup    string   `json:"setup,omitempty"`
	Delivery string   `json:"delivery,omitempty"`
	Type     JokeType `json:"type"`
}

// TextElement describes a text element to be inserted into a design.
type TextElement struct {
	Text string `json:"text"`
}

type DesignElement struct {
	ID        int64     `json:"id"`
	DesignID  int64     `json:"design_id"`
	Text      string    `json:"text"`
	Selected  bool      `json:"selected"`
	CreatedAt time.Time `json:"created_at"`
}

type JokeUsage struct {
	ID        int64         `json:"id"`
	DesignID  int64         `json:"design_id"`
	Content   string        `json:"content"`
	Mode      SelectionMode `json:"mode"`
	Fallback  bool          `json:"fallback"`
	CreatedAt time.Time     `json:"created_at"`
}

type User struct {
	ID              int64     `json:"id"`
	TelegramID      int64     `json:"telegram_id"`
	Username        string    `json:"username"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	CreatedAt       time.Time `json:"created_at"`
	LastInteraction time.Time `json:"last_interaction"`
}
