package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/storyweave/adventure/internal/session"
	"github.com/storyweave/adventure/pkg/i18n"
	"github.com/storyweave/adventure/pkg/scene"
	"github.com/storyweave/adventure/pkg/state"
)

const (
	PlaceHolderText = "Pick a choice by number, or type / for commands..."

	typewriterInterval = 25 * time.Millisecond
	typewriterStep     = 2 // runes revealed per tick
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config        *ConsoleConfig
	client        *http.Client
	view          *session.View
	storyViewport viewport.Model
	metaViewport  viewport.Model
	textarea      textarea.Model
	ready         bool
	width         int
	height        int
	err           error
	loading       bool
	notice        string

	// Typewriter reveal state. While revealing, the newest page is
	// shown up to revealPos runes; any key press completes it.
	revealing  bool
	revealText []rune
	revealPos  int

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type turnMsg struct {
	view *session.View
	err  error
}

type noticeMsg struct {
	text string
	err  error
}

type typewriterTickMsg struct{}

type progressTickMsg struct{}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	skillStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // grey

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	endingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, view *session.View) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	m := ConsoleUI{
		config:        cfg,
		client:        client,
		view:          view,
		textarea:      ta,
		storyViewport: storyVp,
		metaViewport:  metaVp,
	}
	m.beginReveal()
	return m
}

// beginReveal arms the typewriter for the newest page.
func (m *ConsoleUI) beginReveal() {
	if m.view == nil || len(m.view.Pages) == 0 {
		return
	}
	m.revealText = []rune(m.view.Pages[len(m.view.Pages)-1])
	m.revealPos = 0
	m.revealing = true
}

// completeReveal short-circuits the typewriter to the full page.
func (m *ConsoleUI) completeReveal() {
	m.revealPos = len(m.revealText)
	m.revealing = false
}

func (m *ConsoleUI) writeStoryContent() {
	storyWidth := m.storyViewport.Width - 6
	if storyWidth < 10 {
		storyWidth = 10
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("ADVENTURE") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", storyWidth)) + "\n\n")

	if m.view != nil {
		for i, page := range m.view.Pages {
			text := page
			if i == len(m.view.Pages)-1 && m.revealing {
				text = string(m.revealText[:m.revealPos])
			}
			content.WriteString(narratorStyle.Render(wordwrap.String(renderMarkup(text), storyWidth)) + "\n\n")
			if i < len(m.view.Pages)-1 {
				content.WriteString(separatorStyle.Render(strings.Repeat("·", storyWidth/2)) + "\n\n")
			}
		}

		if m.view.ErrorLine != "" {
			content.WriteString(errorStyle.Render(wordwrap.String(m.view.ErrorLine, storyWidth)) + "\n\n")
		}

		if m.view.Phase == state.PhaseEnded && !m.revealing {
			content.WriteString(endingStyle.Render("— THE END —") + "\n\n")
		}

		if !m.revealing && !m.loading {
			for i, c := range m.view.Choices {
				line := fmt.Sprintf("%d. %s", i+1, c.Text)
				if c.IsSkillCheck {
					line += skillStyle.Render(fmt.Sprintf("  [%s %d%%]", c.Skill, c.SuccessChance))
				}
				content.WriteString(choiceStyle.Render(wordwrap.String(line, storyWidth)) + "\n")
			}
			if len(m.view.Choices) > 0 {
				content.WriteString("\n")
			}
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}
	if m.notice != "" {
		content.WriteString(noticeStyle.Render(wordwrap.String(m.notice, storyWidth)) + "\n")
	}
	if m.err != nil {
		content.WriteString(errorStyle.Render(wordwrap.String(m.err.Error(), storyWidth)) + "\n")
	}

	m.storyViewport.SetContent(content.String())
	m.storyViewport.GotoBottom()
}

// renderMarkup strips the <<...>> stat emphasis markers for terminal
// display.
func renderMarkup(s string) string {
	s = strings.ReplaceAll(s, "<<", "")
	return strings.ReplaceAll(s, ">>", "")
}

func (m *ConsoleUI) writeMetadata() {
	var content strings.Builder
	content.WriteString(titleStyle.Render("PLAYER") + "\n\n")

	if m.view != nil {
		content.WriteString("Session:\n")
		content.WriteString(m.view.ID.String()[:8] + "...\n\n")

		if p := m.view.Player; p != nil {
			if p.CurrentLocation != "" {
				content.WriteString("Location:\n")
				content.WriteString(p.CurrentLocation + "\n\n")
			}
			if p.Day > 0 {
				content.WriteString(i18n.Tf("day", m.view.Lang, "n", strconv.Itoa(p.Day)))
				if p.TimeOfDay != "" {
					content.WriteString(", " + p.TimeOfDay)
				}
				content.WriteString("\n\n")
			}
			if len(p.Stats) > 0 {
				content.WriteString("Stats:\n")
				for k, v := range p.Stats {
					content.WriteString(fmt.Sprintf("• %s: %s\n", k, scene.StatValue(v)))
				}
				content.WriteString("\n")
			}
			if len(p.Inventory) > 0 {
				content.WriteString("Inventory:\n")
				for _, item := range p.Inventory {
					content.WriteString("• " + item + "\n")
				}
				content.WriteString("\n")
			}
		}
	}

	content.WriteString("Commands:\n")
	content.WriteString("• 1..9: Pick choice\n")
	content.WriteString("• /save: Save game\n")
	content.WriteString("• /load: Load game\n")
	content.WriteString("• /summary: Story recap\n")
	content.WriteString("• /export: Copy log\n")
	content.WriteString("• /direction <text>\n")
	content.WriteString("• Ctrl+C: Quit\n")

	m.metaViewport.SetContent(content.String())
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.typewriterTick())
}

func (m ConsoleUI) typewriterTick() tea.Cmd {
	return tea.Tick(typewriterInterval, func(time.Time) tea.Msg {
		return typewriterTickMsg{}
	})
}

func (m ConsoleUI) progressTickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, vpCmd = m.storyViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		storyWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - storyWidth - 6

		m.storyViewport.Width = storyWidth - 2
		m.storyViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(storyWidth - 4)

		m.ready = true
		m.writeStoryContent()
		m.writeMetadata()

	case typewriterTickMsg:
		if m.revealing {
			m.revealPos += typewriterStep
			if m.revealPos >= len(m.revealText) {
				m.completeReveal()
			}
			m.writeStoryContent()
		}
		return m, m.typewriterTick()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeStoryContent()
			return m, m.progressTickCmd()
		}
		return m, nil

	case turnMsg:
		m.loading = false
		m.progressTick = 0
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.notice = ""
			newPage := msg.view != nil && m.view != nil && len(msg.view.Pages) > len(m.view.Pages)
			m.view = msg.view
			if newPage {
				m.beginReveal()
			}
		}
		m.writeStoryContent()
		m.writeMetadata()
		return m, nil

	case noticeMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.notice = msg.text
		}
		m.writeStoryContent()
		return m, nil

	case tea.KeyMsg:
		// A key press during the reveal completes it instead of acting.
		if m.revealing && msg.Type != tea.KeyCtrlC {
			m.completeReveal()
			m.writeStoryContent()
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			return m.handleInput(input)
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m ConsoleUI) handleInput(input string) (tea.Model, tea.Cmd) {
	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	n, err := strconv.Atoi(input)
	if err != nil || m.view == nil || n < 1 || n > len(m.view.Choices) {
		m.notice = "Pick a choice by number, or use a /command."
		m.writeStoryContent()
		return m, nil
	}

	choice := m.view.Choices[n-1]
	m.loading = true
	m.err = nil
	m.notice = ""
	m.writeStoryContent()
	return m, tea.Batch(m.progressTickCmd(), func() tea.Msg {
		view, err := submitChoice(m.client, m.config.APIBaseURL, m.view.ID, choice)
		return turnMsg{view: view, err: err}
	})
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/save":
		return m, func() tea.Msg {
			if err := saveSession(m.client, m.config.APIBaseURL, m.view.ID); err != nil {
				return noticeMsg{err: err}
			}
			return noticeMsg{text: "Game saved."}
		}

	case "/load":
		return m, func() tea.Msg {
			view, err := loadSession(m.client, m.config.APIBaseURL, m.view.ID)
			return turnMsg{view: view, err: err}
		}

	case "/summary":
		return m, func() tea.Msg {
			summary, err := getSummary(m.client, m.config.APIBaseURL, m.view.ID)
			if err != nil {
				return noticeMsg{err: err}
			}
			return noticeMsg{text: summary}
		}

	case "/export":
		return m, func() tea.Msg {
			log, err := exportLog(m.client, m.config.APIBaseURL, m.view.ID)
			if err != nil {
				return noticeMsg{err: err}
			}
			if err := clipboard.WriteAll(log); err != nil {
				return noticeMsg{err: fmt.Errorf("clipboard unavailable: %w", err)}
			}
			return noticeMsg{text: "Story log copied to clipboard."}
		}

	case "/direction":
		if arg == "" {
			m.notice = "Usage: /direction <where the story should go>"
			m.writeStoryContent()
			return m, nil
		}
		return m, func() tea.Msg {
			if err := setDirection(m.client, m.config.APIBaseURL, m.view.ID, arg); err != nil {
				return noticeMsg{err: err}
			}
			return noticeMsg{text: "Direction noted. It takes effect on your next choice."}
		}

	default:
		m.notice = "Unknown command. Try /save, /load, /summary, /export, /direction."
		m.writeStoryContent()
		return m, nil
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y", "enter":
			return m, tea.Quit
		case "n", "N", "esc":
			m.showQuitModal = false
			return m, nil
		}
	}
	return m, nil
}

func (m ConsoleUI) renderProgressBar() string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	frame := frames[m.progressTick%len(frames)]
	return loadingStyle.Render(frame+" The story unfolds...") + "\n"
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.showQuitModal {
		modal := modalStyle.Render("Quit the adventure?\n\n[y] yes   [n] no")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
	}

	storyPanel := storyPanelStyle.Render(
		m.storyViewport.View() + "\n\n" + m.textarea.View(),
	)
	metaPanel := metaPanelStyle.Render(m.metaViewport.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}
