package routernode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

// ExtractCommand resolves the command text. Only the first attachment is
// read. Images end the turn with a summary; audio is transcribed and
// continues to classification.
func ExtractCommand(
	ctx context.Context,
	in *GraphState,
	transcriber contractx.Transcriber,
	images contractx.ImageExtractor,
	mode ImageMode,
) (*GraphState, error) {
	if in == nil {
		return nil, nilStateErr()
	}
	if in.Done {
		return in, nil
	}

	if len(in.Media) == 0 {
		in.CommandText = strings.TrimSpace(in.Body)
		if in.CommandText == "" {
			return in.finish(EmptyMessageReply), nil
		}
		return in, nil
	}

	m := in.Media[0]
	logger := log.Ctx(ctx).With().Str("phone", in.Phone).Str("content_type", m.ContentType).Logger()

	switch {
	case m.IsImage():
		summary, err := summarizeImage(ctx, images, mode, m.URL)
		if err != nil {
			logger.Error().Err(err).Str("mode", string(mode)).Msg("image extraction failed")
			return in.finish(ImageErrorReply), nil
		}
		return in.succeed(summary), nil

	case m.IsAudio():
		text, err := transcriber.Transcribe(ctx, m.URL)
		if err != nil {
			logger.Error().Err(err).Msg("transcription failed")
			return in.finish(AudioErrorReply), nil
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return in.finish(AudioErrorReply), nil
		}
		logger.Debug().Str("transcript", text).Msg("audio transcribed")
		in.CommandText = text
		return in, nil

	default:
		return in.finish(UnsupportedMediaReply), nil
	}
}

func summarizeImage(ctx context.Context, images contractx.ImageExtractor, mode ImageMode, url string) (string, error) {
	if mode == ImageModeShelf {
		shelf, err := images.ExtractShelf(ctx, url)
		if err != nil {
			return "", err
		}
		return ShelfSummary(shelf), nil
	}

	invoice, err := images.ExtractInvoice(ctx, url)
	if err != nil {
		return "", err
	}
	return InvoiceSummary(invoice), nil
}

func InvoiceSummary(inv contractx.InvoiceExtraction) string {
	var b strings.Builder
	b.WriteString("🧾 Facture analysée")
	if inv.Supplier != "" {
		fmt.Fprintf(&b, " : %s", inv.Supplier)
	}
	if inv.Date != "" {
		fmt.Fprintf(&b, " (%s)", inv.Date)
	}
	for _, it := range inv.Items {
		fmt.Fprintf(&b, "\n- %s x%s à %s DH", it.Name, formatQuantity(it.Quantity), it.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal : %s DH", inv.Total.StringFixed(2))
	return b.String()
}

func ShelfSummary(shelf contractx.ShelfExtraction) string {
	if len(shelf.Products) == 0 {
		return "📦 Aucun produit reconnu sur la photo."
	}
	var b strings.Builder
	b.WriteString("📦 Produits comptés :")
	for _, p := range shelf.Products {
		fmt.Fprintf(&b, "\n- %s : %s", p.Name, formatQuantity(p.Quantity))
	}
	return b.String()
}

func formatQuantity(q float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", q), "0"), ".")
}
