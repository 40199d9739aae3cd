package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/storyweave/adventure/internal/session"
	"github.com/storyweave/adventure/pkg/scene"
	"github.com/storyweave/adventure/pkg/state"
)

func decodeError(body []byte, status int) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("%s", errResp.Error)
	}
	return fmt.Errorf("API returned status %d", status)
}

func decodeView(resp *http.Response) (*session.View, error) {
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(body, resp.StatusCode)
	}

	var view session.View
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &view, nil
}

func startSession(client *http.Client, baseURL string, setup *state.GameSetup) (*session.View, error) {
	payload, err := json.Marshal(setup)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal setup: %w", err)
	}
	resp, err := client.Post(baseURL+"/v1/sessions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeView(resp)
}

func submitChoice(client *http.Client, baseURL string, id uuid.UUID, choice scene.Choice) (*session.View, error) {
	payload, err := json.Marshal(choice)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal choice: %w", err)
	}
	resp, err := client.Post(fmt.Sprintf("%s/v1/sessions/%s/choice", baseURL, id), "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeView(resp)
}

func saveSession(client *http.Client, baseURL string, id uuid.UUID) error {
	resp, err := client.Post(fmt.Sprintf("%s/v1/sessions/%s/save", baseURL, id), "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return decodeError(body, resp.StatusCode)
	}
	return nil
}

func loadSession(client *http.Client, baseURL string, id uuid.UUID) (*session.View, error) {
	resp, err := client.Post(fmt.Sprintf("%s/v1/sessions/%s/load", baseURL, id), "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeView(resp)
}

func setDirection(client *http.Client, baseURL string, id uuid.UUID, direction string) error {
	payload, err := json.Marshal(map[string]string{"direction": direction})
	if err != nil {
		return fmt.Errorf("failed to marshal direction: %w", err)
	}
	resp, err := client.Post(fmt.Sprintf("%s/v1/sessions/%s/direction", baseURL, id), "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return decodeError(body, resp.StatusCode)
	}
	return nil
}

func getSummary(client *http.Client, baseURL string, id uuid.UUID) (string, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/sessions/%s/summary", baseURL, id))
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(body, resp.StatusCode)
	}

	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return payload["summary"], nil
}

func exportLog(client *http.Client, baseURL string, id uuid.UUID) (string, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/sessions/%s/export", baseURL, id))
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(body, resp.StatusCode)
	}
	return string(body), nil
}
