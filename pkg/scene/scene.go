// Package scene defines the structured payload the storyteller model
// returns each turn, and the parsing/normalization from its wire format.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed marks a model response that could not be parsed into a
// valid scene. It is recoverable: the caller offers a retry.
var ErrMalformed = errors.New("malformed scene payload")

// KV is the wire representation of one stat or item-description entry.
// The model emits ordered key/value pairs; Normalize folds them into maps.
type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Choice is one selectable action offered to the player.
type Choice struct {
	Text          string `json:"text"`
	Description   string `json:"description,omitempty"`
	IsSkillCheck  bool   `json:"isSkillCheck,omitempty"`
	Skill         string `json:"skill,omitempty"`
	SuccessChance int    `json:"successChance,omitempty"`
}

// PlayerState is the player-visible state derived from the newest scene.
// It is replaced wholesale after every successful model turn, never merged.
// Stats values are float64 when numeric, string otherwise. Extra carries
// any additional keys the model attached to playerState.
type PlayerState struct {
	Stats            map[string]any             `json:"stats"`
	Inventory        []string                   `json:"inventory"`
	ItemDescriptions map[string]string          `json:"itemDescriptions"`
	CurrentLocation  string                     `json:"currentLocation"`
	Day              int                        `json:"day"`
	TimeOfDay        string                     `json:"timeOfDay"`
	Extra            map[string]json.RawMessage `json:"extra,omitempty"`
}

// Scene is one validated, normalized model turn.
type Scene struct {
	Dialogue []string    `json:"dialogue"`
	Player   PlayerState `json:"playerState"`
	Choices  []Choice    `json:"choices"`
	IsEnding bool        `json:"isEnding"`
}

// wireScene mirrors the model's output schema. Pointer and raw fields
// distinguish absent from zero for the required-field checks.
type wireScene struct {
	Dialogue    []string        `json:"dialogue"`
	PlayerState json.RawMessage `json:"playerState"`
	Choices     []Choice        `json:"choices"`
	IsEnding    *bool           `json:"isEnding"`
}

type wirePlayerState struct {
	Stats            []KV     `json:"stats"`
	Inventory        []string `json:"inventory"`
	ItemDescriptions []KV     `json:"itemDescriptions"`
	CurrentLocation  string   `json:"currentLocation"`
	Day              int      `json:"day"`
	TimeOfDay        string   `json:"timeOfDay"`
}

// knownPlayerStateKeys are folded into PlayerState fields; everything
// else the model invents lands in Extra.
var knownPlayerStateKeys = map[string]bool{
	"stats":            true,
	"inventory":        true,
	"itemDescriptions": true,
	"currentLocation":  true,
	"day":              true,
	"timeOfDay":        true,
}

// Parse validates raw model output and normalizes it into a Scene.
// Missing required fields (dialogue, playerState, choices, isEnding) or
// invalid JSON return ErrMalformed. Choices cardinality is not enforced.
func Parse(raw string) (*Scene, error) {
	trimmed := stripFences(raw)

	var ws wireScene
	if err := json.Unmarshal([]byte(trimmed), &ws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ws.Dialogue == nil {
		return nil, fmt.Errorf("%w: missing dialogue", ErrMalformed)
	}
	if len(ws.PlayerState) == 0 || string(ws.PlayerState) == "null" {
		return nil, fmt.Errorf("%w: missing playerState", ErrMalformed)
	}
	if ws.Choices == nil {
		return nil, fmt.Errorf("%w: missing choices", ErrMalformed)
	}
	if ws.IsEnding == nil {
		return nil, fmt.Errorf("%w: missing isEnding", ErrMalformed)
	}

	player, err := normalizePlayerState(ws.PlayerState)
	if err != nil {
		return nil, err
	}

	return &Scene{
		Dialogue: ws.Dialogue,
		Player:   *player,
		Choices:  ws.Choices,
		IsEnding: *ws.IsEnding,
	}, nil
}

func normalizePlayerState(raw json.RawMessage) (*PlayerState, error) {
	var wps wirePlayerState
	if err := json.Unmarshal(raw, &wps); err != nil {
		return nil, fmt.Errorf("%w: playerState: %v", ErrMalformed, err)
	}

	ps := &PlayerState{
		Stats:            make(map[string]any, len(wps.Stats)),
		Inventory:        wps.Inventory,
		ItemDescriptions: make(map[string]string, len(wps.ItemDescriptions)),
		CurrentLocation:  wps.CurrentLocation,
		Day:              wps.Day,
		TimeOfDay:        wps.TimeOfDay,
	}
	if ps.Inventory == nil {
		ps.Inventory = []string{}
	}

	for _, kv := range wps.Stats {
		if kv.Key == "" {
			continue
		}
		ps.Stats[kv.Key] = CoerceStat(kv.Value)
	}
	for _, kv := range wps.ItemDescriptions {
		if kv.Key == "" || kv.Value == "" {
			continue
		}
		ps.ItemDescriptions[kv.Key] = kv.Value
	}

	// Preserve model-invented keys without giving them schema status.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		for k, v := range fields {
			if knownPlayerStateKeys[k] {
				continue
			}
			if ps.Extra == nil {
				ps.Extra = make(map[string]json.RawMessage)
			}
			ps.Extra[k] = v
		}
	}

	return ps, nil
}

// CoerceStat converts a wire stat value to float64 when it parses as a
// number, otherwise returns the original text.
func CoerceStat(value string) any {
	if n, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return n
	}
	return value
}

// StatValue renders a normalized stat back to its wire string form.
func StatValue(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return n
	default:
		return fmt.Sprintf("%v", v)
	}
}

// stripFences removes a markdown code fence some models wrap around JSON.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
