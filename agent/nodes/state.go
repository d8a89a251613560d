package routernode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

// Fixed replies. Every turn ends in exactly one of these or in text produced
// by the executor.
const (
	PongReply             = "🏓 Pong !"
	NotRegisteredReply    = "❓ Numéro inconnu. Inscrivez votre boutique ici : %s"
	ShopListHeader        = "Vous gérez plusieurs boutiques. Répondez avec le numéro de la boutique à piloter :"
	SelectionReply        = "✅ Boutique active : %s.\nEnvoyez vos commandes, ou « menu » pour changer de boutique."
	UnsupportedMediaReply = "Désolé, je comprends seulement les messages, les vocaux et les photos."
	AudioErrorReply       = "Désolé, je n'ai pas pu écouter votre vocal. Réessayez ou écrivez-moi."
	ImageErrorReply       = "Désolé, je n'ai pas pu lire cette photo. Réessayez avec une image plus nette."
	EmptyMessageReply     = "Fhamt walou. Envoyez un message ou un vocal."
	TechnicalErrorReply   = "Désolé, problème technique."
)

const pingKeyword = "ping"

var resetKeywords = map[string]bool{
	"menu":     true,
	"changer":  true,
	"boutique": true,
}

type ImageMode string

const (
	ImageModeInvoice ImageMode = "invoice"
	ImageModeShelf   ImageMode = "shelf"
)

func ParseImageMode(raw string) (ImageMode, error) {
	switch ImageMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ImageModeInvoice:
		return ImageModeInvoice, nil
	case ImageModeShelf:
		return ImageModeShelf, nil
	default:
		return "", fmt.Errorf("%w: unknown image mode %q", contractx.ErrValidation, raw)
	}
}

type GraphInput = contractx.InboundMessage

type GraphOutput = contractx.Reply

// GraphState carries one turn through the router graph. Once Done is set the
// remaining nodes pass the state through untouched.
type GraphState struct {
	Phone string
	Body  string
	Media []contractx.Media
	Now   time.Time

	Shops     []contractx.ShopRef
	MultiShop bool
	Target    *contractx.ShopRef

	CommandText string
	Intent      contractx.Intent

	Reply     string
	Done      bool
	Succeeded bool
}

func (s *GraphState) finish(reply string) *GraphState {
	s.Reply = reply
	s.Done = true
	return s
}

func (s *GraphState) succeed(reply string) *GraphState {
	s.Succeeded = true
	return s.finish(reply)
}

func keyword(body string) string {
	return strings.ToLower(strings.TrimSpace(body))
}

func nilStateErr() error {
	return fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
}
