// Package session owns one play session: the transcript, the derived
// player state, staged directives, and the Setup -> Playing -> Ended
// lifecycle. All external-call failures are converted here into
// display-safe text plus a retry affordance; nothing escapes raw.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/storyweave/adventure/internal/services"
	"github.com/storyweave/adventure/internal/storage"
	"github.com/storyweave/adventure/pkg/chat"
	"github.com/storyweave/adventure/pkg/export"
	"github.com/storyweave/adventure/pkg/i18n"
	"github.com/storyweave/adventure/pkg/prompts"
	"github.com/storyweave/adventure/pkg/scene"
	"github.com/storyweave/adventure/pkg/state"
)

var (
	ErrBusy         = errors.New("a model call is already in flight")
	ErrNoCredential = errors.New("no API key available")
	ErrNotPlaying   = errors.New("session is not in play")
	ErrEnded        = errors.New("session has ended")
	ErrNoSave       = errors.New("no saved session found")
)

// Options configures a Controller. All collaborators are injected; the
// controller owns no process-wide state.
type Options struct {
	LLM        services.LLMService
	Store      storage.SaveStore
	Roller     prompts.Roller
	Logger     *slog.Logger
	Credential string // resolved API key; empty means none available
	Model      string
	Lang       i18n.Language
}

// Controller is the session state machine. It exclusively owns the
// transcript, player state, setup, and pending directives for the
// lifetime of one play session.
type Controller struct {
	mu       sync.Mutex
	inFlight bool

	llm    services.LLMService
	store  storage.SaveStore
	roller prompts.Roller
	logger *slog.Logger

	id         uuid.UUID
	credential string
	phase      state.Phase
	setup      state.GameSetup
	model      string
	lang       i18n.Language

	transcript  chat.Transcript
	player      *scene.PlayerState
	choices     []scene.Choice
	pages       []string
	currentPage int
	errorLine   string

	// Staged directives, consumed on the next submitted choice.
	pendingSetup   *state.GameSetup
	storyDirection string

	// The last request sent; retry resends it unmodified.
	lastRequest *services.TurnRequest
}

// View is the player-facing projection of the session.
type View struct {
	ID          uuid.UUID          `json:"id"`
	Phase       state.Phase        `json:"phase"`
	Player      *scene.PlayerState `json:"playerState,omitempty"`
	Choices     []scene.Choice     `json:"choices"`
	Pages       []string           `json:"pages"`
	CurrentPage int                `json:"currentPage"`
	Lang        i18n.Language      `json:"lang"`
	ErrorLine   string             `json:"errorLine,omitempty"`
}

func New(opts Options) *Controller {
	roller := opts.Roller
	if roller == nil {
		roller = prompts.NewRoller()
	}
	lang := opts.Lang
	if lang == "" {
		lang = i18n.DefaultLanguage
	}
	return &Controller{
		llm:        opts.LLM,
		store:      opts.Store,
		roller:     roller,
		logger:     opts.Logger,
		credential: opts.Credential,
		id:         uuid.New(),
		phase:      state.PhaseSetup,
		model:      opts.Model,
		lang:       lang,
	}
}

func (c *Controller) ID() uuid.UUID { return c.id }

// StartGame begins a fresh story. It clears any prior save, sends the
// initial prompt, and transitions to Playing on success. Failure leaves
// the session in Setup with an error line and a Retry choice.
func (c *Controller) StartGame(ctx context.Context, setup state.GameSetup) (*View, error) {
	if c.credential == "" && setup.APIKey == "" {
		return nil, ErrNoCredential
	}
	if err := setup.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.inFlight = true

	c.setup = setup
	if setup.Model != "" {
		c.model = setup.Model
	}
	if setup.Lang != "" {
		c.lang = setup.Lang
	}
	c.phase = state.PhaseSetup
	c.player = nil
	c.choices = nil
	c.pages = nil
	c.currentPage = 0
	c.pendingSetup = nil
	c.storyDirection = ""

	// An abandoned save from a previous story is gone either way.
	if err := c.store.DeleteSnapshot(ctx, c.id); err != nil {
		c.logger.Warn("Failed to clear prior save", "error", err)
	}

	transcript, err := chat.Transcript{}.Append(chat.RoleUser, prompts.InitialPrompt(&setup))
	if err != nil {
		c.inFlight = false
		c.mu.Unlock()
		return nil, err
	}
	req := c.buildRequest(transcript)
	c.mu.Unlock()

	return c.call(ctx, req)
}

// SubmitChoice advances the story by one player action. It resolves
// skill checks before the network call, injects staged directives,
// compacts long history, and applies the resulting scene. A submission
// while a call is in flight returns ErrBusy.
func (c *Controller) SubmitChoice(ctx context.Context, choice scene.Choice) (*View, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.phase == state.PhaseEnded {
		c.mu.Unlock()
		return nil, ErrEnded
	}

	// The synthetic Retry choice resends the exact last request: same
	// prompt text, same roll.
	if c.lastRequest != nil && choice.Text == i18n.T("retry", c.lang) {
		req := c.lastRequest
		c.inFlight = true
		c.mu.Unlock()
		return c.call(ctx, req)
	}

	if c.phase != state.PhasePlaying {
		c.mu.Unlock()
		return nil, ErrNotPlaying
	}
	c.inFlight = true

	// Skill checks are rolled exactly once, before the network call.
	var check *prompts.CheckResult
	if choice.IsSkillCheck {
		result := prompts.ResolveCheck(choice, c.roller)
		check = &result
	}
	var stats map[string]any
	if c.player != nil {
		stats = c.player.Stats
	}
	prompt := prompts.ChoicePrompt(choice, stats, check, c.lang)

	transcript := c.transcript

	// Staged directives become a synthetic turn pair and are cleared
	// now, regardless of whether the upcoming call succeeds.
	note := prompts.DirectiveNote(c.pendingSetup, c.storyDirection, c.lang)
	if note != "" {
		injected, err := transcript.InjectDirectives(note, prompts.DirectiveAck)
		if err != nil {
			c.logger.Warn("Directive injection skipped", "error", err)
		} else {
			transcript = injected
		}
		if c.pendingSetup != nil {
			c.setup = *c.pendingSetup
			if c.pendingSetup.Model != "" {
				c.model = c.pendingSetup.Model
			}
		}
		c.pendingSetup = nil
		c.storyDirection = ""
	}

	transcript, err := transcript.Append(chat.RoleUser, prompt)
	if err != nil {
		c.inFlight = false
		c.mu.Unlock()
		return nil, err
	}

	lang := c.lang
	needsCompaction := transcript.NeedsCompaction()
	c.mu.Unlock()

	if needsCompaction {
		transcript = c.compact(ctx, transcript, lang)
	}

	c.mu.Lock()
	req := c.buildRequest(transcript)
	c.mu.Unlock()

	return c.call(ctx, req)
}

// compact summarizes everything before the pending user turn and
// splices the summary in. Summarization failure degrades to a
// placeholder rather than blocking the player's turn.
func (c *Controller) compact(ctx context.Context, transcript chat.Transcript, lang i18n.Language) chat.Transcript {
	prior := transcript[:len(transcript)-1]
	summary, err := c.llm.Summarize(ctx, prompts.SummaryPrompt(prior, lang))
	if err != nil {
		c.logger.Warn("History summarization failed", "error", err)
		summary = prompts.SummaryPlaceholder(lang)
	}
	return transcript.Compact(summary, prompts.SummaryAck(lang))
}

// call issues the model request and reconciles the outcome. It is the
// single failure boundary: transport and malformed-output errors both
// leave the pre-call state intact and surface a Retry choice.
func (c *Controller) call(ctx context.Context, req *services.TurnRequest) (*View, error) {
	raw, err := c.llm.GenerateTurn(ctx, req)

	c.mu.Lock()
	defer func() {
		c.inFlight = false
		c.mu.Unlock()
	}()

	if err != nil {
		c.logger.Error("Model call failed", "error", err)
		c.failTurn(req, i18n.T("serviceError", c.lang))
		return c.viewLocked(), nil
	}

	sc, err := scene.Parse(raw)
	if err != nil {
		// The raw text is logged for diagnosis but never displayed.
		c.logger.Error("Malformed model response", "error", err, "raw", raw)
		c.failTurn(req, i18n.T("malformedResponse", c.lang))
		return c.viewLocked(), nil
	}

	transcript, err := req.Transcript.Append(chat.RoleModel, raw)
	if err != nil {
		c.logger.Error("Transcript append failed", "error", err)
		c.failTurn(req, i18n.T("malformedResponse", c.lang))
		return c.viewLocked(), nil
	}

	c.transcript = transcript
	c.player = &sc.Player
	c.choices = sc.Choices
	c.pages = append(c.pages, strings.Join(sc.Dialogue, "\n\n"))
	c.currentPage = len(c.pages) - 1
	c.errorLine = ""
	c.lastRequest = nil

	if sc.IsEnding {
		c.phase = state.PhaseEnded
		c.choices = nil
		// An ended story is not resumable.
		if err := c.store.DeleteSnapshot(ctx, c.id); err != nil {
			c.logger.Warn("Failed to clear save after ending", "error", err)
		}
	} else {
		c.phase = state.PhasePlaying
	}

	return c.viewLocked(), nil
}

// failTurn records a recoverable failure: pre-call state is untouched,
// the display gains an error line, and the only choice is Retry.
func (c *Controller) failTurn(req *services.TurnRequest, message string) {
	c.errorLine = message
	c.choices = []scene.Choice{{Text: i18n.T("retry", c.lang)}}
	c.lastRequest = req
}

func (c *Controller) buildRequest(transcript chat.Transcript) *services.TurnRequest {
	return &services.TurnRequest{
		Model:       c.model,
		System:      prompts.SystemInstruction(c.lang, c.setup.CustomInstruction),
		Transcript:  transcript,
		Temperature: services.DefaultTemperature,
	}
}

// ChangeSettings stages a setup change; it takes effect on the next
// submitted choice so an in-flight narrative is not altered mid-turn.
func (c *Controller) ChangeSettings(setup state.GameSetup) error {
	if err := setup.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == state.PhaseEnded {
		return ErrEnded
	}
	c.pendingSetup = &setup
	return nil
}

// SetStoryDirection stages a free-text hint for the next scene.
func (c *Controller) SetStoryDirection(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storyDirection = text
}

// SetCurrentPage moves the reader's position within revealed dialogue.
func (c *Controller) SetCurrentPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if page >= 0 && page < len(c.pages) {
		c.currentPage = page
	}
}

// SaveSession persists a snapshot. Only a session in play can be saved;
// a persistence failure is reported but never corrupts live state.
func (c *Controller) SaveSession(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != state.PhasePlaying {
		c.mu.Unlock()
		return ErrNotPlaying
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.store.SaveSnapshot(ctx, snap.ID, snap); err != nil {
		c.logger.Error("Failed to save session", "error", err)
		return err
	}
	return nil
}

// LoadSession restores the session with the given ID from storage.
// A usable credential is required to reconstruct the external client.
func (c *Controller) LoadSession(ctx context.Context, id uuid.UUID) error {
	snap, err := c.store.LoadSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if snap == nil {
		return ErrNoSave
	}
	return c.Adopt(snap)
}

// Adopt restores session state from a snapshot.
func (c *Controller) Adopt(snap *state.Snapshot) error {
	if c.credential == "" && snap.Setup.APIKey == "" {
		return ErrNoCredential
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrBusy
	}

	c.id = snap.ID
	c.phase = snap.Phase
	c.setup = snap.Setup
	c.player = snap.Player
	c.choices = snap.Choices
	c.transcript = snap.Transcript
	c.pages = snap.DialoguePages
	c.currentPage = snap.CurrentPage
	if c.currentPage >= len(c.pages) {
		c.currentPage = 0
		if len(c.pages) > 0 {
			c.currentPage = len(c.pages) - 1
		}
	}
	if snap.Model != "" {
		c.model = snap.Model
	}
	if snap.Lang != "" {
		c.lang = snap.Lang
	}
	c.errorLine = ""
	c.lastRequest = nil
	c.pendingSetup = nil
	c.storyDirection = ""
	return nil
}

// Summary returns the most recent compaction summary, or the no-summary
// sentinel when the history has never been compacted.
func (c *Controller) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if summary, ok := c.transcript.LastSummary(); ok {
		return summary
	}
	return i18n.T("noSummary", c.lang)
}

// Transcript returns a copy of the raw conversation, including
// synthetic summary and directive turns. It backs the debug view; the
// pending request itself is never editable from outside.
func (c *Controller) Transcript() chat.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(chat.Transcript(nil), c.transcript...)
}

// ExportLog renders the full transcript as a downloadable story log.
func (c *Controller) ExportLog() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return export.Log(c.transcript)
}

func (c *Controller) View() *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() *View {
	choices := make([]scene.Choice, len(c.choices))
	copy(choices, c.choices)
	pages := make([]string, len(c.pages))
	copy(pages, c.pages)
	return &View{
		ID:          c.id,
		Phase:       c.phase,
		Player:      c.player,
		Choices:     choices,
		Pages:       pages,
		CurrentPage: c.currentPage,
		Lang:        c.lang,
		ErrorLine:   c.errorLine,
	}
}

// Snapshot returns a copy of the current session for persistence.
func (c *Controller) Snapshot() *state.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() *state.Snapshot {
	return &state.Snapshot{
		ID:            c.id,
		Phase:         c.phase,
		Setup:         c.setup,
		Player:        c.player,
		Choices:       append([]scene.Choice(nil), c.choices...),
		Transcript:    append(chat.Transcript(nil), c.transcript...),
		DialoguePages: append([]string(nil), c.pages...),
		CurrentPage:   c.currentPage,
		Model:         c.model,
		Lang:          c.lang,
	}
}
