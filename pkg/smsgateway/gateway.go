package smsgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ArowuTest/prizedraw-engine/pkg/jwt"
)

// Gateway represents an SMS gateway interface
type Gateway interface {
	Name() string
	SendSMS(ctx context.Context, msisdn, message string) (string, error)
}

// HTTPGateway posts messages to a JSON SMS API authenticated with a short-lived bearer token
type HTTPGateway struct {
	BaseURL      string
	SenderID     string
	tokenService *jwt.TokenService
	httpClient   *http.Client
}

// MockGateway accepts every message and keeps it in memory
type MockGateway struct {
	mu   sync.Mutex
	name string
	Sent []SentMessage
}

// SentMessage is a message accepted by the MockGateway
type SentMessage struct {
	MessageID string
	MSISDN    string
	Message   string
}

// NewHTTPGateway creates a new HTTPGateway
func NewHTTPGateway(baseURL, apiKey, senderID string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL:      baseURL,
		SenderID:     senderID,
		tokenService: jwt.NewTokenService(apiKey, "prizedraw-engine"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewMockGateway creates a new Mock SMS gateway
func NewMockGateway(name string) *MockGateway {
	return &MockGateway{name: name}
}

// Name returns the gateway name
func (g *HTTPGateway) Name() string { return "http" }

// SendSMS sends an SMS through the HTTP API
func (g *HTTPGateway) SendSMS(ctx context.Context, msisdn, message string) (string, error) {
	token, err := g.tokenService.Sign(g.SenderID, "", nil, 5*time.Minute)
	if err != nil {
		return "", fmt.Errorf("failed to get SMS token: %w", err)
	}

	requestBody := map[string]interface{}{
		"phoneNumber": msisdn,
		"message":     message,
		"senderId":    g.SenderID,
	}
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return response.MessageID, nil
}

// Name returns the gateway name
func (g *MockGateway) Name() string { return g.name }

// SendSMS records the message and returns a synthetic message id
func (g *MockGateway) SendSMS(_ context.Context, msisdn, message string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	msgID := fmt.Sprintf("%s-MOCK-MSG-%d", g.name, len(g.Sent)+1)
	g.Sent = append(g.Sent, SentMessage{MessageID: msgID, MSISDN: msisdn, Message: message})
	return msgID, nil
}

// Messages returns a copy of the accepted messages
func (g *MockGateway) Messages() []SentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]SentMessage, len(g.Sent))
	copy(out, g.Sent)
	return out
}
