package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/agent/llmjson"
)

// FallbackReply answers payloads that do not match any command shape.
const FallbackReply = "Fhamt walou."

type classifierOutput struct {
	Intent        string          `json:"intent"`
	Value         json.RawMessage `json:"value,omitempty"`
	Reply         string          `json:"reply,omitempty"`
	ReplyInDarija string          `json:"reply_in_darija,omitempty"`
}

type ledgerValue struct {
	Customer string          `json:"customer"`
	Amount   json.RawMessage `json:"amount"`
}

var statusSynonyms = map[string]contractx.ShopStatus{
	"open":   contractx.ShopOpen,
	"opened": contractx.ShopOpen,
	"ouvert": contractx.ShopOpen,
	"close":  contractx.ShopClosed,
	"closed": contractx.ShopClosed,
	"ferme":  contractx.ShopClosed,
	"fermé":  contractx.ShopClosed,
}

func decode(out classifierOutput) (contractx.Intent, error) {
	reply := strings.TrimSpace(out.Reply)
	if reply == "" {
		reply = strings.TrimSpace(out.ReplyInDarija)
	}
	kind := contractx.IntentKind(strings.ToUpper(strings.TrimSpace(out.Intent)))
	if kind == "" && reply == "" {
		return nil, fmt.Errorf("%w: neither intent nor reply present", contractx.ErrSchemaViolation)
	}

	switch kind {
	case contractx.IntentUpdateStatus:
		raw, ok := stringValue(out.Value)
		if !ok {
			return fallback(), nil
		}
		if status, ok := statusSynonyms[strings.ToLower(raw)]; ok {
			return contractx.UpdateStatus{Status: status, Confirmation: reply}, nil
		}
		return fallback(), nil

	case contractx.IntentUpdateHours:
		hours, ok := stringValue(out.Value)
		if !ok || hours == "" {
			return fallback(), nil
		}
		return contractx.UpdateHours{Hours: hours, Confirmation: reply}, nil

	case contractx.IntentKarnachDebt, contractx.IntentKarnachPayment:
		v, ok := ledgerPayload(out.Value)
		if !ok {
			return fallback(), nil
		}
		customer := strings.TrimSpace(v.Customer)
		amount, err := llmjson.ParseAmount(v.Amount)
		if customer == "" || err != nil || !amount.IsPositive() {
			return fallback(), nil
		}
		if kind == contractx.IntentKarnachDebt {
			return contractx.KarnachDebt{Customer: customer, Amount: amount, Confirmation: reply}, nil
		}
		return contractx.KarnachPayment{Customer: customer, Amount: amount, Confirmation: reply}, nil

	default:
		if reply == "" {
			return fallback(), nil
		}
		return contractx.Other{Text: reply}, nil
	}
}

func fallback() contractx.Intent {
	return contractx.Other{Text: FallbackReply}
}

// stringValue accepts a JSON string; other JSON kinds do not match.
func stringValue(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// ledgerPayload accepts the {customer, amount} object either inline or
// encoded once more as a JSON string.
func ledgerPayload(raw json.RawMessage) (ledgerValue, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ledgerValue{}, false
	}
	if raw[0] == '"' {
		var nested string
		if err := json.Unmarshal(raw, &nested); err != nil {
			return ledgerValue{}, false
		}
		raw = []byte(llmjson.StripFences(nested))
	}

	var v ledgerValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return ledgerValue{}, false
	}
	if len(v.Amount) == 0 {
		return ledgerValue{}, false
	}
	return v, true
}
