// Package prompts renders the instruction text sent to the storyteller
// model. All builders are pure; the skill-check roll is the only
// nondeterminism and it is injected through Roller.
package prompts

import (
	"fmt"
	"strings"

	"github.com/storyweave/adventure/pkg/chat"
	"github.com/storyweave/adventure/pkg/i18n"
	"github.com/storyweave/adventure/pkg/scene"
	"github.com/storyweave/adventure/pkg/state"
)

// SystemInstruction renders the fixed storyteller directive for the
// target language, with the player's custom addendum appended verbatim
// when configured.
func SystemInstruction(lang i18n.Language, custom string) string {
	s := fmt.Sprintf(BaseSystemInstruction, lang.Name())
	if custom != "" {
		s += customInstructionHeader + custom
	}
	return s
}

// InitialPrompt renders the first user turn of a new story from the
// setup. Every setup field appears verbatim.
func InitialPrompt(setup *state.GameSetup) string {
	var roster strings.Builder
	for i, name := range setup.CharacterNames {
		desc := ""
		if i < len(setup.CharacterDescriptions) {
			desc = setup.CharacterDescriptions[i]
		}
		roster.WriteString(fmt.Sprintf("- %s: %s\n", name, desc))
	}

	return fmt.Sprintf(`Start a new story with the following detailed setup:
- Genre: %s
- Player Persona: %s
- Background Setting: %s
- Main Characters (in addition to the player):
%s- Story Introduction: %s

Generate the very first scene of the story in the designated language. The player state should reflect the persona and starting situation.`,
		setup.Genre, setup.Persona, setup.Background, roster.String(), setup.Intro)
}

// ChoicePrompt renders the continuation request for a submitted choice.
// For skill checks, check must carry the already-resolved roll; the
// prompt states roll and outcome as fact so the model only narrates.
func ChoicePrompt(c scene.Choice, stats map[string]any, check *CheckResult, lang i18n.Language) string {
	if check == nil {
		desc := c.Description
		if desc == "" {
			desc = i18n.T("n/a", lang)
		}
		return fmt.Sprintf("My choice is: %q\n\nAlso consider this optional description of my intent: %q\n\nContinue the story.", c.Text, desc)
	}

	outcome := i18n.T("failed", lang)
	if check.Success {
		outcome = i18n.T("succeeded", lang)
	}
	skill := c.Skill
	if skill == "" {
		skill = i18n.T("unspecifiedSkill", lang)
	}
	statValue := i18n.T("n/a", lang)
	if v, ok := stats[skill]; ok {
		statValue = scene.StatValue(v)
	}

	return fmt.Sprintf("(The player attempted: %q. This was a skill check using '%s' (Player's Stat: %s) with a %d%% chance. The player rolled %d and %s.)\n\nDescribe the narrative outcome of this %s attempt and continue the story.",
		c.Text, skill, statValue, c.SuccessChance, check.Roll, outcome, outcome)
}

// DirectiveNote renders the out-of-band game-master turn for staged
// setting changes and/or a story-direction hint. Returns "" when there
// is nothing to inject.
func DirectiveNote(setupChange *state.GameSetup, direction string, lang i18n.Language) string {
	var notes []string

	if setupChange != nil {
		var roster []string
		for i, name := range setupChange.CharacterNames {
			desc := ""
			if i < len(setupChange.CharacterDescriptions) {
				desc = setupChange.CharacterDescriptions[i]
			}
			roster = append(roster, fmt.Sprintf("%s (%s)", name, desc))
		}
		custom := setupChange.CustomInstruction
		if custom == "" {
			custom = i18n.T("n/a", lang)
		}
		notes = append(notes, fmt.Sprintf("The story's core parameters have been updated. Please adhere to these new settings from this point forward.\n- Genre: %s\n- Player Persona: %s\n- Background: %s\n- Characters: %s\n- Custom Instruction: %s",
			setupChange.Genre, setupChange.Persona, setupChange.Background, strings.Join(roster, ", "), custom))
	}
	if direction != "" {
		notes = append(notes, fmt.Sprintf("The player has provided a specific direction for the next scene: %q. Please incorporate this direction into the story's continuation.", direction))
	}
	if len(notes) == 0 {
		return ""
	}
	return directiveHeader + "\n\n" + strings.Join(notes, "\n\n")
}

// SummaryPrompt renders the secondary summarization request over the
// full prior transcript.
func SummaryPrompt(t chat.Transcript, lang i18n.Language) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(summaryInstruction, lang.Name()))
	for _, turn := range t {
		sb.WriteString(turn.Role)
		sb.WriteString(": ")
		sb.WriteString(turn.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// SummaryAck is the synthetic model turn paired with a compaction summary.
func SummaryAck(lang i18n.Language) string {
	return i18n.T("understood", lang)
}

// SummaryPlaceholder substitutes for a summary when the summarization
// call itself fails; the player's turn proceeds regardless.
func SummaryPlaceholder(lang i18n.Language) string {
	return i18n.T("summaryUnavailable", lang)
}
