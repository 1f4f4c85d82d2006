package expo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"alertaid-backend/internal/domain"
	"alertaid-backend/internal/infrastructure/fetch"
)

// JSONFetcher is the subset of fetch.Fetcher used here.
type JSONFetcher interface {
	JSON(ctx context.Context, rawURL string, opts fetch.Options, out interface{}) error
}

// Client sends notifications through the Expo push service.
type Client struct {
	fetcher JSONFetcher
	url     string
}

func NewClient(fetcher JSONFetcher, pushURL string) *Client {
	return &Client{
		fetcher: fetcher,
		url:     pushURL,
	}
}

// Ticket is the per-message part of an Expo push response.
type Ticket struct {
	Status  string          `json:"status"`
	ID      string          `json:"id,omitempty"`
	Message string          `json:"message,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Send posts one message and returns the raw receipt. A ticket with status
// "error" or a request-level error list is reported as an error.
func (c *Client) Send(ctx context.Context, msg domain.PushMessage) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrap(err, "marshal push message")
	}

	opts := fetch.Options{
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	}

	var raw json.RawMessage
	if err := c.fetcher.JSON(ctx, c.url, opts, &raw); err != nil {
		return "", errors.Wrap(err, "send expo push")
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return string(raw), errors.Wrap(err, "parse expo response")
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Code, e.Message))
		}
		return string(raw), errors.Errorf("expo rejected request: %s", strings.Join(msgs, "; "))
	}

	// data is a single ticket for a single message, or a one-element array.
	var ticket Ticket
	if len(resp.Data) > 0 && resp.Data[0] == '[' {
		var tickets []Ticket
		if err := json.Unmarshal(resp.Data, &tickets); err == nil && len(tickets) > 0 {
			ticket = tickets[0]
		}
	} else if len(resp.Data) > 0 {
		_ = json.Unmarshal(resp.Data, &ticket)
	}
	if ticket.Status == "error" {
		return string(raw), errors.Errorf("expo ticket error: %s", ticket.Message)
	}
	return string(raw), nil
}
