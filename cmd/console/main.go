package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/storyweave/adventure/pkg/i18n"
	"github.com/storyweave/adventure/pkg/state"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:    5 * time.Minute,
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	setup := promptSetup()

	fmt.Println("\nStarting your story...")
	view, err := startSession(client, cfg.APIBaseURL, setup)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start session: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, client, view),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// promptSetup walks the player through the story configuration.
func promptSetup() *state.GameSetup {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("ADVENTURE — story setup")
	fmt.Println()

	setup := &state.GameSetup{
		Genre:      ask(reader, "Genre (e.g. fantasy, noir, space opera)", "fantasy"),
		Persona:    ask(reader, "Your persona", "a wandering adventurer"),
		Background: ask(reader, "World background (optional)", ""),
		Intro:      ask(reader, "Opening situation (optional)", ""),
		Lang:       i18n.Match(ask(reader, "Language (ko/en/ja)", "ko")),
	}

	countStr := ask(reader, "Number of companions (0-4)", "0")
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 0 || count > 4 {
		count = 0
	}
	setup.NumCharacters = count
	for i := 0; i < count; i++ {
		name := ask(reader, fmt.Sprintf("Companion %d name", i+1), fmt.Sprintf("Companion %d", i+1))
		desc := ask(reader, fmt.Sprintf("Companion %d description", i+1), "")
		setup.CharacterNames = append(setup.CharacterNames, name)
		setup.CharacterDescriptions = append(setup.CharacterDescriptions, desc)
	}

	return setup
}

func ask(reader *bufio.Reader, prompt, fallback string) string {
	if fallback != "" {
		fmt.Printf("%s [%s]: ", prompt, fallback)
	} else {
		fmt.Printf("%s: ", prompt)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return fallback
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback
	}
	return line
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
