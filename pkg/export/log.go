// Package export flattens a transcript into a human-readable story log,
// offered to the player as a downloadable artifact. Pure formatting,
// no state.
package export

import (
	"regexp"
	"strings"

	"github.com/storyweave/adventure/pkg/chat"
	"github.com/storyweave/adventure/pkg/scene"
)

var (
	markupRe  = regexp.MustCompile(`<<|>>`)
	attemptRe = regexp.MustCompile(`\(The player attempted: "([^"]*)"`)
	outcomeRe = regexp.MustCompile(`\. The player rolled \d+ and (succeeded|failed|성공|실패|成功|失敗)\.`)
	choiceRe  = regexp.MustCompile(`My choice is: "([^"]*)"`)
)

// Log renders the transcript as flat story text: scene dialogue per model
// turn with stat-change markup stripped, and [CHOICE]/[ACTION] markers
// for user turns. Synthetic turns (summaries, directives, acks) are
// skipped for a clean log.
func Log(t chat.Transcript) string {
	var lines []string

	for _, turn := range t {
		switch turn.Role {
		case chat.RoleModel:
			s, err := scene.Parse(turn.Text)
			if err != nil {
				// Directive acks and summary acknowledgments land here.
				continue
			}
			if len(s.Dialogue) == 0 {
				continue
			}
			text := strings.Join(s.Dialogue, "\n\n")
			lines = append(lines, markupRe.ReplaceAllString(text, ""))

		case chat.RoleUser:
			if m := attemptRe.FindStringSubmatch(turn.Text); m != nil {
				outcome := ""
				if om := outcomeRe.FindStringSubmatch(turn.Text); om != nil {
					outcome = " (" + om[1] + ")"
				}
				lines = append(lines, "\n[ACTION] > "+m[1]+outcome+"\n")
			} else if m := choiceRe.FindStringSubmatch(turn.Text); m != nil && m[1] != "" {
				lines = append(lines, "\n[CHOICE] > "+m[1]+"\n")
			}
		}
	}

	return strings.Join(lines, "\n")
}
