package media

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/agent/llmjson"
)

const (
	defaultVisionModel = "gpt-4o"
	visionMaxTokens    = 1000
)

var _ contractx.ImageExtractor = (*ImageExtractor)(nil)

type ExtractorConfig struct {
	Model         string
	InvoicePrompt string
	ShelfPrompt   string
}

// ImageExtractor reads invoices and shelf photos with a vision model. The
// image is inlined as a data URL because Twilio media URLs need credentials
// the model provider does not have.
type ImageExtractor struct {
	client     *openaisdk.Client
	downloader Downloader
	cfg        ExtractorConfig
}

func NewImageExtractor(client *openaisdk.Client, downloader Downloader, cfg ExtractorConfig) (*ImageExtractor, error) {
	if strings.TrimSpace(cfg.InvoicePrompt) == "" {
		return nil, fmt.Errorf("%w: invoice", contractx.ErrPromptMissing)
	}
	if strings.TrimSpace(cfg.ShelfPrompt) == "" {
		return nil, fmt.Errorf("%w: shelf", contractx.ErrPromptMissing)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultVisionModel
	}
	return &ImageExtractor{client: client, downloader: downloader, cfg: cfg}, nil
}

type invoiceWire struct {
	Supplier    string          `json:"supplier"`
	Fournisseur string          `json:"fournisseur"`
	Date        string          `json:"date"`
	Total       json.RawMessage `json:"total"`
	Items       []itemWire      `json:"items"`
	Products    []itemWire      `json:"products"`
}

type itemWire struct {
	Name        string          `json:"name"`
	Product     string          `json:"product"`
	Quantity    json.RawMessage `json:"quantity"`
	Price       json.RawMessage `json:"price"`
	PriceUnit   json.RawMessage `json:"price_unit"`
	BuyingPrice json.RawMessage `json:"buying_price"`
}

type shelfWire struct {
	Products []itemWire `json:"products"`
}

func (e *ImageExtractor) ExtractInvoice(ctx context.Context, mediaURL string) (contractx.InvoiceExtraction, error) {
	content, err := e.analyze(ctx, mediaURL, e.cfg.InvoicePrompt, "Analyse cette facture.")
	if err != nil {
		return contractx.InvoiceExtraction{}, err
	}

	var wire invoiceWire
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return contractx.InvoiceExtraction{}, fmt.Errorf("%w: invoice json: %v", contractx.ErrSchemaViolation, err)
	}

	out := contractx.InvoiceExtraction{
		Supplier: firstNonEmpty(wire.Supplier, wire.Fournisseur),
		Date:     strings.TrimSpace(wire.Date),
		Total:    lenientDecimal(wire.Total),
	}
	raw := wire.Items
	if len(raw) == 0 {
		raw = wire.Products
	}
	for _, it := range raw {
		name := firstNonEmpty(it.Name, it.Product)
		if name == "" {
			continue
		}
		qty := lenientDecimal(it.Quantity)
		if len(it.Quantity) == 0 || qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		price := lenientDecimal(firstRaw(it.Price, it.PriceUnit, it.BuyingPrice))
		out.Items = append(out.Items, contractx.LineItem{
			Name:     name,
			Price:    price,
			Quantity: qty.InexactFloat64(),
		})
	}
	if out.Total.IsZero() {
		for _, it := range out.Items {
			out.Total = out.Total.Add(it.Total())
		}
	}
	return out, nil
}

func (e *ImageExtractor) ExtractShelf(ctx context.Context, mediaURL string) (contractx.ShelfExtraction, error) {
	content, err := e.analyze(ctx, mediaURL, e.cfg.ShelfPrompt, "Count the products on this shelf.")
	if err != nil {
		return contractx.ShelfExtraction{}, err
	}

	var wire shelfWire
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return contractx.ShelfExtraction{}, fmt.Errorf("%w: shelf json: %v", contractx.ErrSchemaViolation, err)
	}

	var out contractx.ShelfExtraction
	for _, it := range wire.Products {
		name := firstNonEmpty(it.Name, it.Product)
		if name == "" {
			continue
		}
		out.Products = append(out.Products, contractx.ShelfProduct{
			Name:     name,
			Quantity: lenientDecimal(it.Quantity).InexactFloat64(),
		})
	}
	return out, nil
}

func (e *ImageExtractor) analyze(ctx context.Context, mediaURL, systemPrompt, instruction string) (string, error) {
	m, err := e.downloader.Download(ctx, mediaURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrMediaDownload, err)
	}

	contentType := strings.TrimSpace(m.ContentType)
	if contentType == "" {
		contentType = "image/jpeg"
	}
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(m.Data)

	resp, err := e.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(e.cfg.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt),
			openaisdk.UserMessage([]openaisdk.ChatCompletionContentPartUnionParam{
				openaisdk.TextContentPart(instruction),
				openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		MaxTokens: openaisdk.Int(visionMaxTokens),
		ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: vision: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: vision returned no choices", contractx.ErrSchemaViolation)
	}

	content := llmjson.StripFences(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty vision response", contractx.ErrSchemaViolation)
	}
	log.Ctx(ctx).Debug().Int("chars", len(content)).Msg("vision response received")
	return content, nil
}

// lenientDecimal reads numbers the model may quote or format with a comma or
// currency suffix. Unreadable values are zero.
func lenientDecimal(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	d, err := llmjson.ParseAmount(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func firstRaw(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
