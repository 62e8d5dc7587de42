package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"perfmetrics-agent/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sender posts state payloads to a report endpoint
type Sender struct {
	apiURL  string
	apiKey  string
	version string
	client  *http.Client
}

// NewSender returns a Sender with a 10s request timeout
func NewSender(apiURL, apiKey, version string) *Sender {
	return &Sender{
		apiURL:  apiURL,
		apiKey:  apiKey,
		version: version,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIResponse is the endpoint's reply
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Agent   string `json:"agent"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// SendState posts state as a flat payload
func (s *Sender) SendState(ctx context.Context, state *models.State) error {
	payload := state.ToPayload()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.apiKey)
	req.Header.Set("User-Agent", "perfmetrics-agent/"+s.version)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		var apiResp APIResponse
		if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Error != "" {
			return fmt.Errorf("API error (%d): %s [%s]", resp.StatusCode, apiResp.Error, apiResp.Code)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Success {
		slog.Debug("metrics sent", "agent", apiResp.Agent)
	}

	return nil
}
