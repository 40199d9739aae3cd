// Package state holds the session-level data model: the game setup, the
// session phase, and the serialized snapshot exchanged with storage.
package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/storyweave/adventure/pkg/chat"
	"github.com/storyweave/adventure/pkg/i18n"
	"github.com/storyweave/adventure/pkg/scene"
)

// Phase is the session lifecycle state. Ended is terminal; a fresh
// session is the only way back to play.
type Phase string

const (
	PhaseSetup   Phase = "setup"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

// GameSetup is the player-authored configuration for a story. It is
// immutable during play; edits are staged as pending directives and
// applied on the next submitted choice.
type GameSetup struct {
	Persona               string        `json:"persona"`
	Genre                 string        `json:"genre"`
	Background            string        `json:"background"`
	Intro                 string        `json:"intro"`
	NumCharacters         int           `json:"numCharacters"`
	CharacterNames        []string      `json:"characterNames"`
	CharacterDescriptions []string      `json:"characterDescriptions"`
	Model                 string        `json:"model"`
	APIKey                string        `json:"apiKey,omitempty"`
	Lang                  i18n.Language `json:"lang"`
	CustomInstruction     string        `json:"customSystemInstruction,omitempty"`
}

// Validate checks the roster invariant: name and description lists must
// both match NumCharacters in length.
func (s *GameSetup) Validate() error {
	if s.Genre == "" {
		return fmt.Errorf("genre is required")
	}
	if s.Persona == "" {
		return fmt.Errorf("persona is required")
	}
	if len(s.CharacterNames) != s.NumCharacters {
		return fmt.Errorf("expected %d character names, got %d", s.NumCharacters, len(s.CharacterNames))
	}
	if len(s.CharacterDescriptions) != s.NumCharacters {
		return fmt.Errorf("expected %d character descriptions, got %d", s.NumCharacters, len(s.CharacterDescriptions))
	}
	return nil
}

// Snapshot is the full serialized session handed to the persistence
// adapter. The adapter never holds live references; save passes a copy
// out and load passes a copy back in.
type Snapshot struct {
	ID            uuid.UUID          `json:"id"`
	Phase         Phase              `json:"phase"`
	Setup         GameSetup          `json:"setup"`
	Player        *scene.PlayerState `json:"playerState,omitempty"`
	Choices       []scene.Choice     `json:"choices,omitempty"`
	Transcript    chat.Transcript    `json:"transcript,omitempty"`
	DialoguePages []string           `json:"dialoguePages,omitempty"`
	CurrentPage   int                `json:"currentPage"`
	Model         string             `json:"model"`
	Lang          i18n.Language      `json:"lang"`
	SavedAt       time.Time          `json:"savedAt"`
}
