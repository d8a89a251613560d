// Package phone converts WhatsApp transport addresses to the canonical
// international form stored with shops and sessions, and back.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	whatsappPrefix = "whatsapp:"
	// DefaultRegion resolves numbers written without a country code.
	DefaultRegion = "MA"
)

// Normalize strips the transport prefix and returns the E.164 form.
// "whatsapp: +212 6-12 34 56 78", "00212612345678" and "0612345678" all
// become "+212612345678". Input that is not a phone number yields "".
func Normalize(addr string) string {
	s := strings.TrimSpace(addr)
	if len(s) >= len(whatsappPrefix) && strings.EqualFold(s[:len(whatsappPrefix)], whatsappPrefix) {
		s = strings.TrimSpace(s[len(whatsappPrefix):])
	}
	if s == "" {
		return ""
	}

	num, err := phonenumbers.Parse(s, DefaultRegion)
	if err != nil {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// WhatsApp returns the transport address for a phone number.
func WhatsApp(number string) string {
	n := Normalize(number)
	if n == "" {
		return ""
	}
	return whatsappPrefix + n
}
