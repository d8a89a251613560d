package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/invoice.txt
	invoiceRaw string

	//go:embed template/shelf.txt
	shelfRaw string
)

// PromptSet holds loaded prompt content. Classifier is an eino FString
// template, so literal braces in it are doubled.
type PromptSet struct {
	Classifier string
	Invoice    string
	Shelf      string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
		Invoice:    strings.TrimSpace(invoiceRaw),
		Shelf:      strings.TrimSpace(shelfRaw),
	}
}

func (p PromptSet) Validate() error {
	for name, v := range map[string]string{
		"classifier": p.Classifier,
		"invoice":    p.Invoice,
		"shelf":      p.Shelf,
	} {
		if v == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
	}
	return nil
}
