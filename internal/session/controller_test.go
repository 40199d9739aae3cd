package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyweave/adventure/internal/services"
	"github.com/storyweave/adventure/internal/storage"
	"github.com/storyweave/adventure/pkg/chat"
	"github.com/storyweave/adventure/pkg/i18n"
	"github.com/storyweave/adventure/pkg/prompts"
	"github.com/storyweave/adventure/pkg/scene"
	"github.com/storyweave/adventure/pkg/state"
)

func testSetup() state.GameSetup {
	return state.GameSetup{
		Persona:               "a wandering sellsword",
		Genre:                 "fantasy",
		Background:            "The kingdom of Vale has fallen silent.",
		Intro:                 "Rain hammers the old trade road.",
		NumCharacters:         1,
		CharacterNames:        []string{"Mira"},
		CharacterDescriptions: []string{"a scout with a grudge"},
		Lang:                  i18n.English,
	}
}

func scenePayload(choices int, ending bool) string {
	var b strings.Builder
	for i := 0; i < choices; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"text": "Option %d"}`, i+1)
	}
	return fmt.Sprintf(`{
		"dialogue": ["The rain does not let up.", "Mira waves you over."],
		"playerState": {
			"stats": [{"key": "체력", "value": "8"}],
			"inventory": ["sword"],
			"itemDescriptions": [],
			"currentLocation": "Trade Road",
			"day": 1,
			"timeOfDay": "evening"
		},
		"choices": [%s],
		"isEnding": %t
	}`, b.String(), ending)
}

type fixture struct {
	llm    *services.MockLLMService
	store  *storage.MockSaveStore
	rolls  *int
	ctrl   *Controller
	roll   int
	logger *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		llm:    services.NewMockLLMService(),
		store:  storage.NewMockSaveStore(),
		rolls:  new(int),
		roll:   37,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	f.llm.GenerateTurnFunc = func(ctx context.Context, req *services.TurnRequest) (string, error) {
		return scenePayload(3, false), nil
	}
	f.ctrl = New(Options{
		LLM:        f.llm,
		Store:      f.store,
		Roller: prompts.RollerFunc(func() int {
			*f.rolls++
			return f.roll
		}),
		Logger:     f.logger,
		Credential: "test-key",
		Model:      "test-model",
		Lang:       i18n.English,
	})
	return f
}

func (f *fixture) start(t *testing.T) *View {
	t.Helper()
	view, err := f.ctrl.StartGame(context.Background(), testSetup())
	require.NoError(t, err)
	return view
}

func TestStartGame(t *testing.T) {
	f := newFixture(t)
	view := f.start(t)

	assert.Equal(t, state.PhasePlaying, view.Phase)
	assert.Equal(t, i18n.English, view.Lang)
	assert.Empty(t, view.ErrorLine)
	require.Len(t, view.Choices, 3)
	require.Len(t, view.Pages, 1)
	assert.Equal(t, "The rain does not let up.\n\nMira waves you over.", view.Pages[0])
	require.NotNil(t, view.Player)
	assert.Equal(t, float64(8), view.Player.Stats["체력"])

	req := f.llm.LastGenerateTurn()
	require.NotNil(t, req)
	assert.Equal(t, "test-model", req.Model)
	assert.Contains(t, req.System, "ENGLISH")

	require.Len(t, req.Transcript, 1)
	first := req.Transcript[0]
	assert.Equal(t, chat.RoleUser, first.Role)
	assert.Contains(t, first.Text, "a wandering sellsword")
	assert.Contains(t, first.Text, "fantasy")
	assert.Contains(t, first.Text, "The kingdom of Vale has fallen silent.")
	assert.Contains(t, first.Text, "Rain hammers the old trade road.")
	assert.Contains(t, first.Text, "- Mira: a scout with a grudge")
}

func TestStartGameNoCredential(t *testing.T) {
	f := newFixture(t)
	f.ctrl.credential = ""

	_, err := f.ctrl.StartGame(context.Background(), testSetup())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestStartGameInvalidSetup(t *testing.T) {
	f := newFixture(t)
	setup := testSetup()
	setup.CharacterNames = nil

	_, err := f.ctrl.StartGame(context.Background(), setup)
	require.Error(t, err)
	assert.Empty(t, f.llm.GenerateTurnCalls)
}

func TestStartGameFailureThenRetry(t *testing.T) {
	f := newFixture(t)
	f.llm.GenerateTurnFunc = func(ctx context.Context, req *services.TurnRequest) (string, error) {
		return "", errors.New("connection reset")
	}

	view, err := f.ctrl.StartGame(context.Background(), testSetup())
	require.NoError(t, err)
	assert.Equal(t, state.PhaseSetup, view.Phase)
	assert.Equal(t, i18n.T("serviceError", i18n.English), view.ErrorLine)
	require.Len(t, view.Choices, 1)
	assert.Equal(t, i18n.T("retry", i18n.English), view.Choices[0].Text)

	f.llm.GenerateTurnFunc = func(ctx context.Context, req *services.TurnRequest) (string, error) {
		return scenePayload(2, false), nil
	}
	view, err = f.ctrl.SubmitChoice(context.Background(), view.Choices[0])
	require.NoError(t, err)
	assert.Equal(t, state.PhasePlaying, view.Phase)
	assert.Empty(t, view.ErrorLine)

	// The retried request is the original one, byte for byte.
	require.Len(t, f.llm.GenerateTurnCalls, 2)
	assert.Equal(t, f.llm.GenerateTurnCalls[0].Transcript, f.llm.GenerateTurnCalls[1].Transcript)
}

func TestSubmitChoicePlain(t *testing.T) {
	f := newFixture(t)
	view := f.start(t)

	view, err := f.ctrl.SubmitChoice(context.Background(), view.Choices[0])
	require.NoError(t, err)
	assert.Equal(t, state.PhasePlaying, view.Phase)
	assert.Len(t, view.Pages, 2)
	assert.Equal(t, 1, view.CurrentPage)

	req := f.llm.LastGenerateTurn()
	require.Len(t, req.Transcript, 3)
	last := req.Transcript[2]
	assert.Equal(t, chat.RoleUser, last.Role)
	assert.Contains(t, last.Text, `My choice is: "Option 1"`)
	assert.Zero(t, *f.rolls)
}

func TestSkillCheckResolvedBeforeCall(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.roll = 40

	choice := scene.Choice{Text: "Climb the wall", IsSkillCheck: true, Skill: "체력", SuccessChance: 40}
	_, err := f.ctrl.SubmitChoice(context.Background(), choice)
	require.NoError(t, err)

	assert.Equal(t, 1, *f.rolls)
	last := f.llm.LastGenerateTurn().Transcript.Last()
	assert.Contains(t, last.Text, `(The player attempted: "Climb the wall".`)
	assert.Contains(t, last.Text, "Player's Stat: 8")
	assert.Contains(t, last.Text, "rolled 40 and succeeded")
}

func TestSkillCheckHundredAlwaysSucceeds(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.roll = 100

	choice := scene.Choice{Text: "Breathe", IsSkillCheck: true, SuccessChance: 100}
	_, err := f.ctrl.SubmitChoice(context.Background(), choice)
	require.NoError(t, err)
	assert.Contains(t, f.llm.LastGenerateTurn().Transcript.Last().Text, "succeeded")
}

func TestRetryDoesNotReroll(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	f.llm.GenerateTurnFunc = func(ctx context.Context, req *services.TurnRequest) (string, error) {
		return "", errors.New("timeout")
	}
	choice := scene.Choice{Text: "Leap the gap", IsSkillCheck: true, SuccessChance: 50}
	view, err := f.ctrl.SubmitChoice(context.Background(), choice)
	require.NoError(t, err)
	require.Len(t, view.Choices, 1)
	firstPrompt := f.llm.LastGenerateTurn().Transcript.Last().Text

	f.llm.GenerateTurnFunc = func(ctx context.Context, req *services.TurnRequest) (string, error) {
		return scenePayload(3, false), nil
	}
	_, err = f.ctrl.SubmitChoice(context.Background(), view.Choices[0])
	require.NoError(t, err)

	assert.Equal(t, 1, *f.rolls)
	assert.Equal(t, firstPrompt, f.llm.LastGenerateTurn().Transcript.Last().Text)
}

func TestMalformedResponseKeepsState(t *testing.T) {
	f := newFixture(t)
	view := f.start(t)
	before := f.ctrl.Snapshot()

	f.llm.GenerateTurnFunc = func(ctx context.Context, req *services.TurnRequest) (string, error) {
		return `{"dialogue": "not a list"}`, nil
	}
	view, err := f.ctrl.SubmitChoice(context.Background(), view.Choices[0])
	require.NoError(t, err)

	assert.Equal(t, state.PhasePlaying, view.Phase)
	assert.Equal(t, i18n.T("malformedResponse", i18n.English), view.ErrorLine)
	require.Len(t, view.Choices, 1)
	assert.Equal(t, i18n.T("retry", i18n.English), view.Choices[0].Text)

	after := f.ctrl.Snapshot()
	assert.Equal(t, before.Transcript, after.Transcript)
	assert.Equal(t, before.Player, after.Player)
	assert.Equal(t, before.DialoguePages, after.DialoguePages)
}

func TestEndingLocksSession(t *testing.T) {
	f := newFixture(t)
	view := f.start(t)
	require.NoError(t, f.ctrl.SaveSession(context.Background()))
	assert.True(t, f.store.Has(f.ctrl.ID()))

	f.llm.GenerateTurnFunc = func(ctx context.Context, req *services.TurnRequest) (string, error) {
		return scenePayload(0, true), nil
	}
	view, err := f.ctrl.SubmitChoice(context.Background(), view.Choices[0])
	require.NoError(t, err)

	assert.Equal(t, state.PhaseEnded, view.Phase)
	assert.Empty(t, view.Choices)
	assert.False(t, f.store.Has(f.ctrl.ID()))

	assert.ErrorIs(t, f.ctrl.SaveSession(context.Background()), ErrNotPlaying)
	_, err = f.ctrl.SubmitChoice(context.Background(), scene.Choice{Text: "Option 1"})
	assert.ErrorIs(t, err, ErrEnded)
	assert.ErrorIs(t, f.ctrl.ChangeSettings(testSetup()), ErrEnded)
}

func TestCompaction(t *testing.T) {
	f := newFixture(t)
	view := f.start(t)

	// Four more exchanges bring the transcript to ten turns. The fifth
	// submission pushes it past the threshold.
	var err error
	for i := 0; i < 4; i++ {
		view, err = f.ctrl.SubmitChoice(context.Background(), view.Choices[0])
		require.NoError(t, err)
		assert.Empty(t, f.llm.SummarizeCalls)
	}

	view, err = f.ctrl.SubmitChoice(context.Background(), view.Choices[0])
	require.NoError(t, err)
	require.Len(t, f.llm.SummarizeCalls, 1)
	assert.Contains(t, f.llm.SummarizeCalls[0], "STORY SO FAR")

	req := f.llm.LastGenerateTurn()
	require.Len(t, req.Transcript, 3)
	assert.Equal(t, chat.RoleUser, req.Transcript[0].Role)
	assert.True(t, strings.HasPrefix(req.Transcript[0].Text, chat.SummaryPrefix))
	assert.Contains(t, req.Transcript[0].Text, "summary")
	assert.Equal(t, chat.RoleModel, req.Transcript[1].Role)
	assert.Contains(t, req.Transcript[2].Text, `My choice is: "Option 1"`)

	assert.Equal(t, "summary", f.ctrl.Summary())
}

func TestCompactionSurvivesSummarizeFailure(t *testing.T) {
	f := newFixture(t)
	view := f.start(t)
	f.llm.SummarizeFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	}

	var err error
	for i := 0; i < 5; i++ {
		view, err = f.ctrl.SubmitChoice(context.Background(), view.Choices[0])
		require.NoError(t, err)
	}

	assert.Equal(t, state.PhasePlaying, view.Phase)
	req := f.llm.LastGenerateTurn()
	require.Len(t, req.Transcript, 3)
	assert.Contains(t, req.Transcript[0].Text, prompts.SummaryPlaceholder(i18n.English))
}

func TestSummaryBeforeCompaction(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	assert.Equal(t, i18n.T("noSummary", i18n.English), f.ctrl.Summary())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := newFixture(t)
	view := f.start(t)
	view, err := f.ctrl.SubmitChoice(context.Background(), view.Choices[1])
	require.NoError(t, err)
	require.NoError(t, f.ctrl.SaveSession(context.Background()))

	restored := New(Options{
		LLM:        f.llm,
		Store:      f.store,
		Logger:     f.logger,
		Credential: "test-key",
	})
	require.NoError(t, restored.LoadSession(context.Background(), f.ctrl.ID()))

	got := restored.View()
	assert.Equal(t, view.Phase, got.Phase)
	assert.Equal(t, view.Pages, got.Pages)
	assert.Equal(t, view.Choices, got.Choices)
	assert.Equal(t, view.Player, got.Player)
	assert.Equal(t, view.CurrentPage, got.CurrentPage)
}

func TestLoadMissingSave(t *testing.T) {
	f := newFixture(t)
	err := f.ctrl.LoadSession(context.Background(), f.ctrl.ID())
	assert.ErrorIs(t, err, ErrNoSave)
}

func TestLoadNoCredential(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	require.NoError(t, f.ctrl.SaveSession(context.Background()))

	restored := New(Options{LLM: f.llm, Store: f.store, Logger: f.logger})
	err := restored.LoadSession(context.Background(), f.ctrl.ID())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestDirectivesInjectedOnceAndCleared(t *testing.T) {
	f := newFixture(t)
	view := f.start(t)

	changed := testSetup()
	changed.Persona = "a disgraced court mage"
	require.NoError(t, f.ctrl.ChangeSettings(changed))
	f.ctrl.SetStoryDirection("Bring the storm to a head.")

	view, err := f.ctrl.SubmitChoice(context.Background(), view.Choices[0])
	require.NoError(t, err)

	req := f.llm.LastGenerateTurn()
	joined := joinTexts(req.Transcript)
	assert.Equal(t, 1, strings.Count(joined, "Game Master Note"))
	assert.Contains(t, joined, "a disgraced court mage")
	assert.Contains(t, joined, "Bring the storm to a head.")
	assert.Contains(t, joined, prompts.DirectiveAck)

	// Consumed: the next turn carries no new note.
	_, err = f.ctrl.SubmitChoice(context.Background(), view.Choices[0])
	require.NoError(t, err)
	joined = joinTexts(f.llm.LastGenerateTurn().Transcript)
	assert.Equal(t, 1, strings.Count(joined, "Game Master Note"))
}

func TestSetCurrentPage(t *testing.T) {
	f := newFixture(t)
	view := f.start(t)
	view, err := f.ctrl.SubmitChoice(context.Background(), view.Choices[0])
	require.NoError(t, err)
	require.Equal(t, 1, view.CurrentPage)

	f.ctrl.SetCurrentPage(0)
	assert.Equal(t, 0, f.ctrl.View().CurrentPage)
	f.ctrl.SetCurrentPage(99)
	assert.Equal(t, 0, f.ctrl.View().CurrentPage)
}

func joinTexts(t chat.Transcript) string {
	texts := make([]string, len(t))
	for i, turn := range t {
		texts[i] = turn.Text
	}
	return strings.Join(texts, "\n---\n")
}
