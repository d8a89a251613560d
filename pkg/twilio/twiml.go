package twilio

import (
	"github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
)

// MessageResponse renders a TwiML messaging response carrying one message.
// An empty body renders an empty <Response/> so Twilio sends nothing.
func MessageResponse(body string) (string, error) {
	if body == "" {
		return twiml.Messages(nil)
	}
	return twiml.Messages([]twiml.Element{
		&twiml.MessagingMessage{Body: body},
	})
}

// SignatureValidator checks the X-Twilio-Signature header of webhook calls.
type SignatureValidator struct {
	validator client.RequestValidator
}

func NewSignatureValidator(authToken string) *SignatureValidator {
	return &SignatureValidator{validator: client.NewRequestValidator(authToken)}
}

// Validate checks signature against the full public URL Twilio called and
// the POSTed form parameters.
func (v *SignatureValidator) Validate(url string, params map[string]string, signature string) bool {
	if signature == "" {
		return false
	}
	return v.validator.Validate(url, params, signature)
}
