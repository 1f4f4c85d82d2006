package fcm

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"alertaid-backend/internal/domain"
)

const channelID = "hazard_alerts"

// ErrDisabled is returned by Send when no Firebase credentials were configured.
var ErrDisabled = errors.New("FCM client not initialized")

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type Client struct {
	client messageSender
	log    *zap.Logger
}

// Credentials points at a service account, either as a file or inline JSON.
type Credentials struct {
	Path string
	JSON string
}

// NewClient initializes Firebase Cloud Messaging. Without credentials it
// returns a disabled client rather than an error.
func NewClient(ctx context.Context, creds Credentials, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "fcm"))

	var opt option.ClientOption
	switch {
	case creds.Path != "":
		opt = option.WithCredentialsFile(creds.Path)
	case creds.JSON != "":
		opt = option.WithCredentialsJSON([]byte(creds.JSON))
	default:
		log.Warn("No Firebase credentials found. FCM disabled.")
		return &Client{log: log}, nil
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, errors.Wrap(err, "error initializing firebase app")
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error getting messaging client")
	}

	log.Info("Firebase Cloud Messaging initialized successfully")
	return &Client{client: client, log: log}, nil
}

// Send delivers msg to the device token in msg.To and returns the FCM
// message name.
func (c *Client) Send(ctx context.Context, msg domain.PushMessage) (string, error) {
	if c.client == nil {
		return "", ErrDisabled
	}

	message := &messaging.Message{
		Token: msg.To,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: map[string]string{
			"type": "hazard_alert",
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: channelID,
				Priority:  messaging.PriorityHigh,
			},
		},
	}

	id, err := c.client.Send(ctx, message)
	if err != nil {
		return "", errors.Wrap(err, "error sending message")
	}
	return id, nil
}

// IsEnabled returns true if FCM client is initialized
func (c *Client) IsEnabled() bool {
	return c.client != nil
}
