package chat

import (
	"fmt"
	"strings"
)

const (
	RoleUser  = "user"  // the player
	RoleModel = "model" // the storyteller
)

// SummaryPrefix tags the synthetic user turn produced by compaction.
// LastSummary scans for it, so the prefix must stay stable across saves.
const SummaryPrefix = "This is a summary of the story so far:\n"

// CompactionThreshold is the transcript length beyond which history
// is summarized before the next model call.
const CompactionThreshold = 10

// Turn is one exchange unit in the conversation. A model turn's Text is
// the raw serialized scene payload, so it can be re-parsed later for
// log export or summary lookup.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Transcript is the ordered conversation sent to the model. It is treated
// as an immutable value: every transform returns a new slice and leaves
// the receiver untouched.
type Transcript []Turn

// Append returns a new transcript with the turn added. Roles must strictly
// alternate starting with user.
func (t Transcript) Append(role, text string) (Transcript, error) {
	if role != RoleUser && role != RoleModel {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if len(t) == 0 && role != RoleUser {
		return nil, fmt.Errorf("transcript must start with a user turn, got %q", role)
	}
	if len(t) > 0 && t[len(t)-1].Role == role {
		return nil, fmt.Errorf("consecutive %q turns are not allowed", role)
	}
	out := make(Transcript, len(t), len(t)+1)
	copy(out, t)
	return append(out, Turn{Role: role, Text: text}), nil
}

// Alternates reports whether roles strictly alternate starting with user.
func (t Transcript) Alternates() bool {
	for i, turn := range t {
		want := RoleUser
		if i%2 == 1 {
			want = RoleModel
		}
		if turn.Role != want {
			return false
		}
	}
	return true
}

// NeedsCompaction reports whether the transcript has grown past the
// compaction threshold.
func (t Transcript) NeedsCompaction() bool {
	return len(t) > CompactionThreshold
}

// Compact replaces everything except the newest turn with a synthetic
// user turn carrying the summary and a synthetic model acknowledgment.
// The newest turn is the player's pending action and is preserved
// verbatim so the model still answers it.
func (t Transcript) Compact(summary, ack string) Transcript {
	if len(t) == 0 {
		return t
	}
	return Transcript{
		{Role: RoleUser, Text: SummaryPrefix + summary},
		{Role: RoleModel, Text: ack},
		t[len(t)-1],
	}
}

// InjectDirectives appends a synthetic user turn carrying a game-master
// note and a synthetic model acknowledgment, so the next model call sees
// the directive as context without it being narrated. The caller injects
// before appending the player's new choice turn.
func (t Transcript) InjectDirectives(note, ack string) (Transcript, error) {
	out, err := t.Append(RoleUser, note)
	if err != nil {
		return nil, err
	}
	return out.Append(RoleModel, ack)
}

// LastSummary returns the text of the most recent synthetic summary turn,
// scanning from the end. ok is false when no compaction has happened yet.
func (t Transcript) LastSummary() (summary string, ok bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Role == RoleUser && strings.HasPrefix(t[i].Text, SummaryPrefix) {
			return strings.TrimPrefix(t[i].Text, SummaryPrefix), true
		}
	}
	return "", false
}

// Last returns the newest turn, or a zero Turn for an empty transcript.
func (t Transcript) Last() Turn {
	if len(t) == 0 {
		return Turn{}
	}
	return t[len(t)-1]
}
