package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
	"dialogue": ["You wake on cold stone.", "A torch gutters nearby."],
	"playerState": {
		"stats": [
			{"key": "체력", "value": "7"},
			{"key": "mood", "value": "uneasy"},
			{"key": "gold", "value": "12.5"}
		],
		"inventory": ["torch", "rope"],
		"itemDescriptions": [
			{"key": "torch", "value": "Burns low but steady."}
		],
		"currentLocation": "The Undercroft",
		"day": 3,
		"timeOfDay": "저녁",
		"weather": "raining"
	},
	"choices": [
		{"text": "Take the torch"},
		{"text": "Climb the stair", "isSkillCheck": true, "skill": "힘", "successChance": 60},
		{"text": "Call out", "description": "Someone may answer."}
	],
	"isEnding": false
}`

func TestParseValid(t *testing.T) {
	s, err := Parse(validPayload)
	require.NoError(t, err)

	assert.Len(t, s.Dialogue, 2)
	assert.False(t, s.IsEnding)
	assert.Len(t, s.Choices, 3)
	assert.Equal(t, "The Undercroft", s.Player.CurrentLocation)
	assert.Equal(t, 3, s.Player.Day)
	assert.Equal(t, "저녁", s.Player.TimeOfDay)

	assert.Equal(t, float64(7), s.Player.Stats["체력"])
	assert.Equal(t, "uneasy", s.Player.Stats["mood"])
	assert.Equal(t, 12.5, s.Player.Stats["gold"])

	assert.Equal(t, []string{"torch", "rope"}, s.Player.Inventory)
	assert.Equal(t, "Burns low but steady.", s.Player.ItemDescriptions["torch"])

	require.Contains(t, s.Player.Extra, "weather")
	assert.JSONEq(t, `"raining"`, string(s.Player.Extra["weather"]))

	check := s.Choices[1]
	assert.True(t, check.IsSkillCheck)
	assert.Equal(t, "힘", check.Skill)
	assert.Equal(t, 60, check.SuccessChance)
}

func TestParseStripsCodeFence(t *testing.T) {
	s, err := Parse("```json\n" + validPayload + "\n```")
	require.NoError(t, err)
	assert.Len(t, s.Dialogue, 2)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "The dragon roars at you."},
		{"truncated", `{"dialogue": ["a"], "playerState"`},
		{"missing dialogue", `{"playerState": {"stats": []}, "choices": [], "isEnding": false}`},
		{"missing playerState", `{"dialogue": ["a"], "choices": [], "isEnding": false}`},
		{"null playerState", `{"dialogue": ["a"], "playerState": null, "choices": [], "isEnding": false}`},
		{"missing choices", `{"dialogue": ["a"], "playerState": {"stats": []}, "isEnding": false}`},
		{"missing isEnding", `{"dialogue": ["a"], "playerState": {"stats": []}, "choices": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseAllowsAnyChoiceCount(t *testing.T) {
	// The instruction asks the model for 2-4 choices, but the validator
	// accepts 0 and more than 4.
	raw := `{
		"dialogue": ["The end of the road."],
		"playerState": {"stats": [], "inventory": [], "itemDescriptions": [],
			"currentLocation": "gate", "day": 1, "timeOfDay": "아침"},
		"choices": [],
		"isEnding": true
	}`
	s, err := Parse(raw)
	require.NoError(t, err)
	assert.Empty(t, s.Choices)
	assert.True(t, s.IsEnding)
}

func TestInventoryDefaultsEmpty(t *testing.T) {
	raw := `{
		"dialogue": ["a"],
		"playerState": {"stats": [], "itemDescriptions": [],
			"currentLocation": "x", "day": 1, "timeOfDay": "m"},
		"choices": [{"text": "go"}],
		"isEnding": false
	}`
	s, err := Parse(raw)
	require.NoError(t, err)
	assert.NotNil(t, s.Player.Inventory)
	assert.Empty(t, s.Player.Inventory)
}

func TestStatCoercionRoundTrip(t *testing.T) {
	// encode -> decode -> encode keeps the key set and value forms.
	values := map[string]string{
		"체력":   "7",
		"gold": "12.5",
		"mood": "uneasy",
		"luck": "-3",
	}
	first := make(map[string]any, len(values))
	for k, v := range values {
		first[k] = CoerceStat(v)
	}
	second := make(map[string]any, len(first))
	for k, v := range first {
		second[k] = CoerceStat(StatValue(v))
	}
	assert.Equal(t, first, second)

	assert.IsType(t, float64(0), first["체력"])
	assert.IsType(t, "", first["mood"])
}

func TestStatsSkipEmptyKeys(t *testing.T) {
	raw := `{
		"dialogue": ["a"],
		"playerState": {"stats": [{"key": "", "value": "9"}, {"key": "hp", "value": "5"}],
			"inventory": [], "itemDescriptions": [],
			"currentLocation": "x", "day": 1, "timeOfDay": "m"},
		"choices": [{"text": "go"}],
		"isEnding": false
	}`
	s, err := Parse(raw)
	require.NoError(t, err)
	assert.Len(t, s.Player.Stats, 1)
	assert.Equal(t, float64(5), s.Player.Stats["hp"])
}
