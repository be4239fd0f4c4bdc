package evolution

import (
	"context"
	"fmt"
	"time"

	"evolution-gateway/internal/config"
	wire "evolution-gateway/pkg/models"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Client talks to the Evolution API. Only the send surface is implemented
// here; instance lifecycle calls go straight from the operator to the
// provider.
type Client struct {
	httpClient *resty.Client
}

func NewClient(cfg *config.Config) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.EvolutionAPIURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", cfg.EvolutionAPIKey)

	return &Client{httpClient: httpClient}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendResponse is the provider's acknowledgement for an outbound message.
type SendResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
	Status string `json:"status"`
}

// SendText posts a text message through the given instance. The recipient may
// be a full JID or a bare number; the transport suffix is stripped either way.
func (c *Client) SendText(ctx context.Context, instanceID, recipient, text string) (*SendResponse, error) {
	payload := sendTextRequest{
		Number: wire.NormalizePhone(recipient),
		Text:   text,
	}

	var sendResp SendResponse
	start := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&sendResp).
		Post("/message/sendText/" + instanceID)
	if err != nil {
		return nil, fmt.Errorf("send text via instance %s: %w", instanceID, err)
	}

	logrus.WithFields(logrus.Fields{
		"instance": instanceID,
		"status":   resp.StatusCode(),
		"duration": time.Since(start),
	}).Debug("Evolution sendText completed")

	if resp.IsError() {
		return nil, fmt.Errorf("send text via instance %s: status %d: %s",
			instanceID, resp.StatusCode(), resp.String())
	}

	return &sendResp, nil
}
