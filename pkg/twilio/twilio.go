package twilio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	twiliosdk "github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/tanpawarit/neemo/pkg/phone"
)

type Config struct {
	AccountSID        string        `envconfig:"ACCOUNT_SID" required:"true"`
	AuthToken         string        `envconfig:"AUTH_TOKEN" required:"true"`
	WhatsAppNumber    string        `envconfig:"WHATSAPP_NUMBER" required:"true"`
	ValidateSignature bool          `envconfig:"VALIDATE_SIGNATURE" default:"false"`
	MediaTimeout      time.Duration `envconfig:"MEDIA_TIMEOUT" default:"30s"`
	MaxMediaBytes     int64         `envconfig:"MAX_MEDIA_BYTES" default:"26214400"`
}

type messageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// Client sends WhatsApp messages from the configured bot number.
type Client struct {
	api  messageCreator
	from string
}

func NewClient(cfg Config) (*Client, error) {
	sid := strings.TrimSpace(cfg.AccountSID)
	token := strings.TrimSpace(cfg.AuthToken)
	if sid == "" || token == "" {
		return nil, errors.New("twilio account sid and auth token are required")
	}

	from := phone.WhatsApp(cfg.WhatsAppNumber)
	if from == "" {
		return nil, errors.New("twilio whatsapp number is required")
	}

	rest := twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{
		Username: sid,
		Password: token,
	})

	return &Client{api: rest.Api, from: from}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Send delivers body to a phone number and returns the message SID.
// The SDK call is not cancellable, ctx is only checked before sending.
func (c *Client) Send(ctx context.Context, to string, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := phone.WhatsApp(to)
	if dest == "" {
		return "", errors.New("twilio: destination is empty")
	}
	if strings.TrimSpace(body) == "" {
		return "", errors.New("twilio: body is empty")
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(dest)
	params.SetFrom(c.from)
	params.SetBody(body)

	msg, err := c.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio: create message to %s: %w", dest, err)
	}
	if msg == nil || msg.Sid == nil {
		return "", nil
	}
	return *msg.Sid, nil
}
