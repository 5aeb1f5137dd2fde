package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	_ "github.com/joho/godotenv/autoload"
)

const defaultSMSAPIURL = "https://api.smsapi.pl/sms.do"

// GatewayError is a failed outbound SMS send. Details carries the
// provider-returned diagnostic verbatim so operators can act on it.
type GatewayError struct {
	StatusCode int
	Details    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("sms gateway error (status %d): %s", e.StatusCode, e.Details)
}

// SMSGateway sends a text message to a phone number. The concrete
// implementation is chosen once at startup: a live provider client when a
// credential is configured, otherwise a mock that only logs.
type SMSGateway interface {
	Send(ctx context.Context, to, message string) error
	Mock() bool
}

// NewSMSGateway selects the gateway strategy from the environment. With no
// SMS_API_TOKEN the whole flow still runs for real (codes are generated and
// persisted); only the outbound carriage is stubbed.
func NewSMSGateway() SMSGateway {
	token := os.Getenv("SMS_API_TOKEN")
	if token == "" {
		log.Warn().Msg("SMS_API_TOKEN not set, outbound SMS runs in mock mode")
		return &mockGateway{}
	}

	apiURL := os.Getenv("SMS_API_URL")
	if apiURL == "" {
		apiURL = defaultSMSAPIURL
	}

	return &liveGateway{
		apiURL: apiURL,
		token:  token,
		sender: os.Getenv("SMS_SENDER"),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type liveGateway struct {
	apiURL string
	token  string
	sender string
	client *http.Client
}

func (g *liveGateway) Mock() bool { return false }

func (g *liveGateway) Send(ctx context.Context, to, message string) error {
	form := url.Values{}
	form.Set("to", to)
	form.Set("message", message)
	form.Set("from", g.sender)
	form.Set("format", "json")
	form.Set("encoding", "utf-8")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return &GatewayError{StatusCode: 0, Details: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{StatusCode: resp.StatusCode, Details: "failed to read gateway response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{StatusCode: resp.StatusCode, Details: string(body)}
	}

	// The provider reports some failures inside a 2xx payload.
	var payload struct {
		Error   *int   `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != nil {
		details := payload.Message
		if details == "" {
			details = string(body)
		}
		return &GatewayError{StatusCode: resp.StatusCode, Details: details}
	}

	return nil
}

type mockGateway struct{}

func (g *mockGateway) Mock() bool { return true }

func (g *mockGateway) Send(ctx context.Context, to, message string) error {
	log.Info().Str("to", to).Str("message", message).Msg("Mock SMS send")
	return nil
}
