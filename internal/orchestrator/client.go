// Package orchestrator wraps the HTTP interface of the external channel
// controller: it owns the actual channel connections (QR pairing, message
// transport) and calls back into this system via webhooks.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"crm-channel-bridge/config"
	"crm-channel-bridge/internal/apperrors"
	"crm-channel-bridge/pkg/httputil"
)

// Client issues calls to the orchestrator, keyed by the correlation id it
// assigned to the channel session.
type Client struct {
	http *resty.Client
}

// SendResponse is the orchestrator's reply to a send-message call. Raw
// preserves the full body for downstream delivery to the UI.
type SendResponse struct {
	MessageID string          `json:"messageId"`
	Status    string          `json:"status,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

type sendRequest struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

// NewClient builds an orchestrator client. Calls are retried on transient
// failure with bounded backoff.
func NewClient(cfg *config.Config) *Client {
	httpClient := httputil.WithCallRetry(
		httputil.NewClient(cfg.OrchestratorBaseURL, cfg.OrchestratorTimeout), 2).
		SetHeader("Content-Type", "application/json")
	if cfg.OrchestratorAPIKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+cfg.OrchestratorAPIKey)
	}

	log.Info().Str("baseURL", cfg.OrchestratorBaseURL).Msg("Orchestrator client configured")

	return &Client{http: httpClient}
}

// SendMessage dispatches a text message through the channel session
// identified by the correlation id.
func (c *Client) SendMessage(ctx context.Context, correlationID, number, text string) (*SendResponse, error) {
	var result SendResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendRequest{Number: number, Message: text}).
		SetResult(&result).
		Post(fmt.Sprintf("/sessions/%s/send-message", correlationID))
	if err != nil {
		log.Error().Err(err).Str("correlationID", correlationID).Msg("Orchestrator send-message request failed")
		return nil, &apperrors.UpstreamError{System: "orchestrator", Err: err}
	}
	if resp.IsError() {
		log.Error().Str("correlationID", correlationID).Int("status", resp.StatusCode()).Str("body", resp.String()).Msg("Orchestrator send-message returned an error")
		return nil, &apperrors.UpstreamError{System: "orchestrator", Status: resp.StatusCode(), Body: resp.String()}
	}
	result.Raw = json.RawMessage(resp.Body())
	return &result, nil
}

// Disconnect asks the orchestrator to tear down the channel session.
func (c *Client) Disconnect(ctx context.Context, correlationID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Post(fmt.Sprintf("/sessions/%s/disconnect", correlationID))
	if err != nil {
		log.Error().Err(err).Str("correlationID", correlationID).Msg("Orchestrator disconnect request failed")
		return &apperrors.UpstreamError{System: "orchestrator", Err: err}
	}
	if resp.IsError() {
		log.Error().Str("correlationID", correlationID).Int("status", resp.StatusCode()).Str("body", resp.String()).Msg("Orchestrator disconnect returned an error")
		return &apperrors.UpstreamError{System: "orchestrator", Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
