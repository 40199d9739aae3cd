package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyweave/adventure/pkg/chat"
	"github.com/storyweave/adventure/pkg/i18n"
	"github.com/storyweave/adventure/pkg/prompts"
	"github.com/storyweave/adventure/pkg/scene"
	"github.com/storyweave/adventure/pkg/state"
)

func sceneText(dialogue ...string) string {
	// minimal valid scene payload
	out := `{"dialogue": [`
	for i, d := range dialogue {
		if i > 0 {
			out += ","
		}
		out += `"` + d + `"`
	}
	return out + `], "playerState": {"stats": [], "inventory": [], "itemDescriptions": [], "currentLocation": "x", "day": 1, "timeOfDay": "m"}, "choices": [], "isEnding": false}`
}

func TestLog(t *testing.T) {
	setup := &state.GameSetup{Persona: "P", Genre: "fantasy", Background: "B", Intro: "I", Lang: i18n.English}

	check := prompts.CheckResult{Roll: 12, Success: true}
	action := prompts.ChoicePrompt(
		scene.Choice{Text: "Leap the chasm", IsSkillCheck: true, Skill: "agility", SuccessChance: 80},
		nil, &check, i18n.English)
	choice := prompts.ChoicePrompt(scene.Choice{Text: "Enter the cave"}, nil, nil, i18n.English)

	tr := chat.Transcript{
		{Role: chat.RoleUser, Text: prompts.InitialPrompt(setup)},
		{Role: chat.RoleModel, Text: sceneText("You stand at the chasm. <<Agility increased by 1>>")},
		{Role: chat.RoleUser, Text: action},
		{Role: chat.RoleModel, Text: sceneText("You land hard but alive.")},
		{Role: chat.RoleUser, Text: prompts.DirectiveNote(nil, "more rain", i18n.English)},
		{Role: chat.RoleModel, Text: prompts.DirectiveAck},
		{Role: chat.RoleUser, Text: choice},
		{Role: chat.RoleModel, Text: sceneText("The cave swallows the light.")},
	}

	log := Log(tr)

	assert.Contains(t, log, "You stand at the chasm. Agility increased by 1")
	assert.NotContains(t, log, "<<", "stat markup must be stripped")
	assert.Contains(t, log, "[ACTION] > Leap the chasm (succeeded)")
	assert.Contains(t, log, "[CHOICE] > Enter the cave")
	assert.Contains(t, log, "The cave swallows the light.")

	// Synthetic and setup turns stay out of the log.
	assert.NotContains(t, log, "Game Master Note")
	assert.NotContains(t, log, "Start a new story")
	assert.NotContains(t, log, `"..."`)
}

func TestLogEmptyTranscript(t *testing.T) {
	require.Empty(t, Log(nil))
}
